package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestFactoryFunctionsSetCodeSeverityAndHTTPCode(t *testing.T) {
	tests := []struct {
		name             string
		createErr        func() *AppError
		expectedCode     string
		expectedSeverity string
		expectedHTTP     int
	}{
		{
			name:             "invalid store id",
			createErr:        func() *AppError { return InvalidStoreID("not-a-place-id") },
			expectedCode:     CodeInvalidStoreID,
			expectedSeverity: SeverityWarning,
			expectedHTTP:     http.StatusBadRequest,
		},
		{
			name:             "ocr unrecognised",
			createErr:        func() *AppError { return OcrUnrecognised("empty menu_items") },
			expectedCode:     CodeOcrUnrecognised,
			expectedSeverity: SeverityWarning,
			expectedHTTP:     http.StatusUnprocessableEntity,
		},
		{
			name:             "ocr backend error",
			createErr:        func() *AppError { return OcrBackendError(fmt.Errorf("dial tcp: timeout")) },
			expectedCode:     CodeOcrBackendError,
			expectedSeverity: SeverityError,
			expectedHTTP:     http.StatusInternalServerError,
		},
		{
			name:             "not found",
			createErr:        func() *AppError { return NotFound("store") },
			expectedCode:     CodeNotFound,
			expectedSeverity: SeverityWarning,
			expectedHTTP:     http.StatusNotFound,
		},
		{
			name:             "push failed",
			createErr:        func() *AppError { return PushFailed(fmt.Errorf("line api 500")) },
			expectedCode:     CodePushFailed,
			expectedSeverity: SeverityError,
			expectedHTTP:     http.StatusInternalServerError, // default HTTPCode from New, unused by non-HTTP callers
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.createErr()
			if err.Code != tt.expectedCode {
				t.Errorf("expected code %s, got %s", tt.expectedCode, err.Code)
			}
			if err.Severity != tt.expectedSeverity {
				t.Errorf("expected severity %s, got %s", tt.expectedSeverity, err.Severity)
			}
			if err.HTTPCode != tt.expectedHTTP {
				t.Errorf("expected http code %d, got %d", tt.expectedHTTP, err.HTTPCode)
			}
			if err.Error() == "" {
				t.Error("Error() should not be empty")
			}
		})
	}
}

func TestAppErrorUnwrapRoundTrips(t *testing.T) {
	underlying := fmt.Errorf("connection refused")
	wrapped := OcrBackendError(underlying)

	if wrapped.Unwrap() != underlying {
		t.Error("Unwrap should return the original underlying error")
	}
}

func TestAsExtractsAppError(t *testing.T) {
	var err error = InvalidStoreID("xyz")

	appErr, ok := As(err)
	if !ok {
		t.Fatal("expected As to succeed on an *AppError")
	}
	if appErr.Code != CodeInvalidStoreID {
		t.Errorf("expected code %s, got %s", CodeInvalidStoreID, appErr.Code)
	}

	_, ok = As(fmt.Errorf("plain error"))
	if ok {
		t.Error("expected As to fail on a non-AppError")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := OcrTimeout()
	if !Is(err, CodeOcrTimeout) {
		t.Error("expected Is to match on the same code")
	}
	if Is(err, CodeInvalidStoreID) {
		t.Error("expected Is to reject a mismatched code")
	}
}

func TestMarshalJSONOmitsUnderlyingError(t *testing.T) {
	err := OcrBackendError(fmt.Errorf("leaked internal detail"))
	data, merr := err.MarshalJSON()
	if merr != nil {
		t.Fatalf("MarshalJSON failed: %v", merr)
	}
	if string(data) == "" {
		t.Fatal("expected non-empty JSON")
	}
	// The underlying transport error must never leak to API clients.
	if contains(data, "leaked internal detail") {
		t.Error("MarshalJSON must not serialize the wrapped Err field")
	}
}

func contains(data []byte, s string) bool {
	return len(s) > 0 && indexOf(string(data), s) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
