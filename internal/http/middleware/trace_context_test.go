package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/gitguide-backend/internal/platform/ctxutil"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext(), RequestLogger(logger.Nop()))
	var seen *ctxutil.Trace
	capture := func(c *gin.Context) {
		seen = ctxutil.TraceFrom(c.Request.Context())
		c.Status(http.StatusOK)
	}
	r.GET("/api/projects/:id/progress", capture)
	r.POST("/api/projects/:id/days/:day/advance", capture)

	projectID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/projects/"+projectID.String()+"/progress", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-1" || seen.TraceID == "" {
		t.Fatalf("trace: %+v", seen)
	}
	if seen.ProjectID != projectID.String() || seen.DayNumber != nil {
		t.Fatalf("scope: %+v", seen)
	}
	if rec.Header().Get("X-Request-Id") != "req-1" || rec.Header().Get("X-Trace-Id") != seen.TraceID {
		t.Fatalf("response headers: %v", rec.Header())
	}
	if memo := seen.Memo(); memo["project_id"] != projectID.String() || memo["request_id"] != "req-1" {
		t.Fatalf("memo: %+v", memo)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/projects/"+projectID.String()+"/days/3/advance", nil))
	if seen.DayNumber == nil || *seen.DayNumber != 3 {
		t.Fatalf("day scope: %+v", seen)
	}
	if rec.Header().Get("X-Request-Id") == "" || rec.Header().Get("X-Request-Id") == "req-1" {
		t.Fatalf("expected a fresh request id, got %q", rec.Header().Get("X-Request-Id"))
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/projects/not-a-uuid/progress", nil))
	if seen.ProjectID != "" {
		t.Fatalf("malformed project id should be left out: %+v", seen)
	}
}
