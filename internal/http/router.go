package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/gitguide-backend/internal/http/handlers"
	httpMW "github.com/yungbote/gitguide-backend/internal/http/middleware"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName string
	CORSOrigins []string
	Log         *logger.Logger

	HealthHandler  *httpH.HealthHandler
	ProjectHandler *httpH.ProjectHandler
	DayHandler     *httpH.DayHandler
	TaskHandler    *httpH.TaskHandler
	EventsHandler  *httpH.EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Projects
		if cfg.ProjectHandler != nil {
			api.POST("/projects", cfg.ProjectHandler.CreateProject)
			api.GET("/projects/:id/progress", cfg.ProjectHandler.GetProgress)
			api.POST("/projects/:id/progress/refresh", cfg.ProjectHandler.RefreshProgress)
		}

		// Progress events (SSE)
		if cfg.EventsHandler != nil {
			api.GET("/projects/:id/events", cfg.EventsHandler.Stream)
		}

		// Days
		if cfg.DayHandler != nil {
			api.GET("/projects/:id/days/:day", cfg.DayHandler.GetDay)
			api.POST("/projects/:id/days/:day/advance", cfg.DayHandler.Advance)
			api.POST("/projects/:id/days/:day/generate", cfg.DayHandler.Generate)
			api.POST("/projects/:id/days/:day/content", cfg.DayHandler.ApplyContent)
		}

		// Tasks
		if cfg.TaskHandler != nil {
			api.POST("/projects/:id/tasks/:task_id/complete", cfg.TaskHandler.CompleteTask)
			api.POST("/projects/:id/tasks/:task_id/verify", cfg.TaskHandler.VerifyTask)
		}
	}

	return r
}
