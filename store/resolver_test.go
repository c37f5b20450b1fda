package store

import "testing"

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"empty", "", false},
		{"positive integer", "42", true},
		{"zero", "0", false},
		{"negative", "-1", false},
		{"place id ChIJ prefix", "ChIJN1t_tDeuEmsRUsoyG83frY4", true},
		{"place id ChlJ lowercase-L quirk", "ChlJN1t_tDeuEmsRUsoyG83frY4", true},
		{"too short to be a place id", "ChIJ1", false},
		{"unrecognised shape", "not-a-valid-key", false},
		{"whitespace padded integer", "  7  ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := ValidateFormat(tt.raw)
			if ok != tt.ok {
				t.Errorf("ValidateFormat(%q) = (%v, %q), want ok=%v", tt.raw, ok, reason, tt.ok)
			}
			if !ok && reason == "" {
				t.Errorf("ValidateFormat(%q) rejected without a reason", tt.raw)
			}
		})
	}
}

func TestResolveNumericIDNeverTouchesDB(t *testing.T) {
	r := New(nil) // a nil *sql.DB is safe as long as the numeric fast path never queries it

	id, err := r.Resolve("123")
	if err != nil {
		t.Fatalf("unexpected error resolving a plain positive integer: %v", err)
	}
	if id != 123 {
		t.Errorf("expected id 123, got %d", id)
	}
}

func TestResolveRejectsNonPositiveInteger(t *testing.T) {
	r := New(nil)

	if _, err := r.Resolve("0"); err == nil {
		t.Error("expected an error resolving store id 0")
	}
	if _, err := r.Resolve("-5"); err == nil {
		t.Error("expected an error resolving a negative store id")
	}
}

func TestResolveRejectsUnrecognisedShape(t *testing.T) {
	r := New(nil)

	if _, err := r.Resolve("garbage"); err == nil {
		t.Error("expected an error resolving an unrecognised store key shape")
	}
}

func TestSafeResolveFallsBackOnFailure(t *testing.T) {
	r := New(nil)

	id := r.SafeResolve("garbage", 99)
	if id != 99 {
		t.Errorf("expected fallback id 99, got %d", id)
	}

	id = r.SafeResolve("123", 99)
	if id != 123 {
		t.Errorf("expected the resolved id 123 to win over the fallback, got %d", id)
	}
}
