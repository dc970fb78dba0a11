package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gitguide-backend/internal/http/response"
	"github.com/yungbote/gitguide-backend/internal/modules/progression"
)

type DayHandler struct {
	engine ProgressionEngine
}

func NewDayHandler(engine ProgressionEngine) *DayHandler {
	return &DayHandler{engine: engine}
}

// GET /api/projects/:id/days/:day
func (h *DayHandler) GetDay(c *gin.Context) {
	projectID, n, err := projectAndDay(c)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	report, err := h.engine.DayStatus(c.Request.Context(), projectID, n)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, report)
}

// POST /api/projects/:id/days/:day/advance
//
// Opens the day after :day once :day's gate is satisfied. An unsatisfied
// gate answers 409 with the counts so the client can show them.
func (h *DayHandler) Advance(c *gin.Context) {
	projectID, n, err := projectAndDay(c)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	res, err := h.engine.TryUnlockDay(c.Request.Context(), projectID, n)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	if res.DayLocked {
		response.RespondErrorDetails(c, http.StatusConflict, "day_locked", fmt.Sprintf("day %d is still locked", n), res.Gate)
		return
	}
	if !res.Open() && !res.Terminal {
		response.RespondErrorDetails(c, http.StatusConflict, "gate_not_satisfied", res.Gate.Message(), res.Gate)
		return
	}
	response.RespondOK(c, gin.H{"unlock": res})
}

type generateRequest struct {
	Force bool `json:"force"`
}

// POST /api/projects/:id/days/:day/generate
func (h *DayHandler) Generate(c *gin.Context) {
	projectID, n, err := projectAndDay(c)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	var outcome progression.GenerationOutcome
	if req.Force || c.Query("force") == "true" {
		outcome, err = h.engine.RegenerateDay(c.Request.Context(), projectID, n)
	} else {
		outcome, err = h.engine.EnsureGenerated(c.Request.Context(), projectID, n)
	}
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	status := http.StatusOK
	if outcome == progression.GenerationTriggered {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"day_number": n, "generation": outcome})
}

// POST /api/projects/:id/days/:day/content
func (h *DayHandler) ApplyContent(c *gin.Context) {
	projectID, n, err := projectAndDay(c)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	var content progression.DayContent
	if err := c.ShouldBindJSON(&content); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.engine.ApplyGeneratedContent(c.Request.Context(), projectID, n, content)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}
