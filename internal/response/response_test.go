package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, reqID string, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.Set(ContextKeySessionID, "sess-1")
		h(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return w, body
}

func TestSuccessEnvelope(t *testing.T) {
	w, body := serve(t, "req-42", func(c *gin.Context) {
		Success(c, http.StatusAccepted, map[string]string{"status": "GENERATING"})
	})
	if w.Code != http.StatusAccepted || body.Error != nil {
		t.Fatalf("got %d %+v", w.Code, body.Error)
	}
	if body.Metadata.RequestID != "req-42" || w.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("request id not echoed: %+v", body.Metadata)
	}
	if body.Metadata.SessionID != "sess-1" || body.Metadata.Timestamp == "" {
		t.Fatalf("metadata: %+v", body.Metadata)
	}
}

func TestFailWithFields(t *testing.T) {
	w, body := serve(t, "", func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"subject": "subject is a required field"})
	})
	if w.Code != http.StatusBadRequest || body.Error == nil {
		t.Fatalf("got %d", w.Code)
	}
	if body.Error.Code != ErrValidation || body.Error.Message != GetMessage(ErrValidation) {
		t.Fatalf("error body: %+v", body.Error)
	}
	if body.Error.Fields["subject"] == "" || body.Metadata.RequestID == "" {
		t.Fatalf("fields or generated request id missing: %+v", body)
	}
}

func TestOversizedRequestIDIsReplaced(t *testing.T) {
	long := strings.Repeat("x", maxRequestIDLength+1)
	_, body := serve(t, long, func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrNotFound) })
	if body.Metadata.RequestID == long || body.Metadata.RequestID == "" {
		t.Fatalf("request id=%q", body.Metadata.RequestID)
	}
}

func TestUnknownCodeMessage(t *testing.T) {
	if got := GetMessage("SOMETHING_ELSE"); got != "An unexpected error occurred." {
		t.Fatalf("got %q", got)
	}
}
