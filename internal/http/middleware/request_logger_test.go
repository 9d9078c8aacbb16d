package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wolfman30/vetbot/pkg/logging"
)

func TestRequestLoggerRecordsStatusAndSession(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/appointments", nil)
	req.Header.Set(SessionHeader, "session_abc")
	rec := httptest.NewRecorder()
	RequestLogger(logger)(handler).ServeHTTP(rec, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["session_id"] != "session_abc" {
		t.Fatalf("expected session id in log, got %v", entry["session_id"])
	}
	if entry["status"] != float64(http.StatusCreated) {
		t.Fatalf("expected status 201 in log, got %v", entry["status"])
	}
	if entry["path"] != "/api/appointments" {
		t.Fatalf("unexpected path %v", entry["path"])
	}
}
