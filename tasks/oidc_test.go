package tasks

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerifyRequestRejectsMissingBearerPrefix(t *testing.T) {
	v := &Verifier{audience: "https://example.run.app", invokerServiceAcct: "tasks@example.iam.gserviceaccount.com"}

	req := httptest.NewRequest(http.MethodPost, "/orders/process-task", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	if err := v.VerifyRequest(req); err == nil {
		t.Error("expected an error when the Authorization header is not a Bearer token")
	}
}

func TestVerifyRequestRejectsAbsentAuthorizationHeader(t *testing.T) {
	v := &Verifier{audience: "https://example.run.app", invokerServiceAcct: "tasks@example.iam.gserviceaccount.com"}

	req := httptest.NewRequest(http.MethodPost, "/orders/process-task", nil)

	if err := v.VerifyRequest(req); err == nil {
		t.Error("expected an error when no Authorization header is present")
	}
}

func TestContainsString(t *testing.T) {
	list := []string{"https://a.example.com", "https://b.example.com"}
	if !containsString(list, "https://a.example.com") {
		t.Error("expected containsString to find a present entry")
	}
	if containsString(list, "https://c.example.com") {
		t.Error("expected containsString to reject an absent entry")
	}
	if containsString(nil, "anything") {
		t.Error("expected containsString to reject on a nil list")
	}
}
