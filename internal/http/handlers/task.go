package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gitguide-backend/internal/http/response"
	"github.com/yungbote/gitguide-backend/internal/modules/progression"
)

type TaskHandler struct {
	engine ProgressionEngine
}

func NewTaskHandler(engine ProgressionEngine) *TaskHandler {
	return &TaskHandler{engine: engine}
}

// POST /api/projects/:id/tasks/:task_id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	projectID, err := uuidParam(c, "id", "invalid_project_id")
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	taskID, err := uuidParam(c, "task_id", "invalid_task_id")
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	res, err := h.engine.CompleteTask(c.Request.Context(), projectID, taskID)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	if res.Locked {
		response.RespondError(c, http.StatusConflict, "task_locked", fmt.Errorf("finish the earlier tasks first"))
		return
	}
	response.RespondOK(c, res)
}

// POST /api/projects/:id/tasks/:task_id/verify
func (h *TaskHandler) VerifyTask(c *gin.Context) {
	projectID, err := uuidParam(c, "id", "invalid_project_id")
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	taskID, err := uuidParam(c, "task_id", "invalid_task_id")
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	var in progression.VerificationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.engine.VerifyTask(c.Request.Context(), projectID, taskID, in)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	if res.Locked {
		response.RespondError(c, http.StatusConflict, "task_locked", fmt.Errorf("finish the previous setup step first"))
		return
	}
	response.RespondOK(c, res)
}
