package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHandleEditRequiresCorrections(t *testing.T) {
	t.Parallel()

	server := newTestServer(newFakeAuthStore())

	for _, body := range []string{`{"notes":"call the organizer"}`, `{}`} {
		_, c, rec := newJSONContext(http.MethodPatch, "/api/v1/pending/1", body)
		c.SetParamNames("id")
		c.SetParamValues("1")

		if err := server.handleEdit(c); err != nil {
			t.Fatalf("handleEdit returned error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status for %q = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}

		var resp jsendResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Status != "fail" {
			t.Fatalf("status field = %q, want fail", resp.Status)
		}
	}
}

func TestPendingStatusParam(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "pending", "ACTIVE", " rejected "} {
		if _, err := pendingStatusParam(raw); err != nil {
			t.Fatalf("pendingStatusParam(%q) error = %v", raw, err)
		}
	}
	if _, err := pendingStatusParam("archived"); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}
