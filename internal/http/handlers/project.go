package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/gitguide-backend/internal/http/response"
	"github.com/yungbote/gitguide-backend/internal/modules/progression"
)

type ProjectHandler struct {
	engine ProgressionEngine
}

func NewProjectHandler(engine ProgressionEngine) *ProjectHandler {
	return &ProjectHandler{engine: engine}
}

type createProjectRequest struct {
	UserID     uuid.UUID `json:"user_id" binding:"required"`
	RepoURL    string    `json:"repo_url" binding:"required"`
	Name       string    `json:"name"`
	SkillLevel string    `json:"skill_level"`
	Domain     string    `json:"domain"`
}

// POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	project, created, err := h.engine.InitializeProject(c.Request.Context(), progression.ProjectInput{
		UserID:     req.UserID,
		RepoURL:    req.RepoURL,
		Name:       req.Name,
		SkillLevel: req.SkillLevel,
		Domain:     req.Domain,
	})
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	if created {
		response.RespondCreated(c, gin.H{"project": project, "created": true})
		return
	}
	response.RespondOK(c, gin.H{"project": project, "created": false})
}

// GET /api/projects/:id/progress
func (h *ProjectHandler) GetProgress(c *gin.Context) {
	projectID, err := uuidParam(c, "id", "invalid_project_id")
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	snap, err := h.engine.Snapshot(c.Request.Context(), projectID)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": snap})
}

// POST /api/projects/:id/progress/refresh
func (h *ProjectHandler) RefreshProgress(c *gin.Context) {
	projectID, err := uuidParam(c, "id", "invalid_project_id")
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	snap, err := h.engine.RecomputeAll(c.Request.Context(), projectID)
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": snap})
}
