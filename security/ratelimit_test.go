package security

import "testing"

func TestFormatIntHandlesMultiDigitValues(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{9, "9"},
		{10, "10"},
		{20, "20"},
		{100, "100"},
	}
	for _, tt := range tests {
		if got := formatInt(tt.in); got != tt.want {
			t.Errorf("formatInt(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatFloatHandlesMultiDigitValues(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2"},
		{5, "5"},
		{10, "10"},
		{2.5, "2.5"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBucketAllowRespectsBurstCapacity(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	b := rl.getBucket("test-key", RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3})

	for i := 0; i < 3; i++ {
		if !b.allow() {
			t.Fatalf("expected request %d to be allowed within burst capacity", i+1)
		}
	}
	if b.allow() {
		t.Error("expected the request beyond burst capacity to be rejected")
	}
}

func TestGetBucketReusesExistingBucketForSameKey(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	cfg := RateLimitConfig{RequestsPerSecond: 5, BurstSize: 10}
	b1 := rl.getBucket("same-key", cfg)
	b2 := rl.getBucket("same-key", cfg)

	if b1 != b2 {
		t.Error("expected getBucket to return the same bucket instance for the same key")
	}
}
