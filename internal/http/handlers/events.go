package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/gitguide-backend/internal/http/response"
	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

// EventSource delivers a project's progress events until ctx is done.
type EventSource interface {
	Subscribe(ctx context.Context, projectID uuid.UUID, onEvent func(ev progression.ProgressEvent)) error
}

type EventsHandler struct {
	log       *logger.Logger
	source    EventSource
	heartbeat time.Duration
}

func NewEventsHandler(log *logger.Logger, source EventSource) *EventsHandler {
	return &EventsHandler{
		log:       log.With("handler", "EventsHandler"),
		source:    source,
		heartbeat: 25 * time.Second,
	}
}

// GET /api/projects/:id/events
func (h *EventsHandler) Stream(c *gin.Context) {
	projectID, err := uuidParam(c, "id", "invalid_project_id")
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Slow readers drop events rather than stall the bus.
	events := make(chan progression.ProgressEvent, 64)
	err = h.source.Subscribe(ctx, projectID, func(ev progression.ProgressEvent) {
		select {
		case events <- ev:
		default:
			h.log.Warn("SSE client too slow; dropping event", "project_id", projectID, "type", ev.Type)
		}
	})
	if err != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "events_unavailable", err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Status(http.StatusOK)
	c.Writer.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			c.SSEvent(string(ev.Type), ev)
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
		}
		c.Writer.Flush()
	}
}
