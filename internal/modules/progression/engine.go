package progression

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/gitguide-backend/internal/data/repos"
	types "github.com/yungbote/gitguide-backend/internal/domain"
	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
	"github.com/yungbote/gitguide-backend/internal/platform/envutil"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

type Config struct {
	// RepositorySuffix is the required ending of the practice repository name.
	RepositorySuffix string
	// CommitWindow is how recent the verified commit must be.
	CommitWindow time.Duration
	// PrefetchFirstDay triggers Day 1 generation as soon as a project exists.
	PrefetchFirstDay bool
	Now              func() time.Time
}

func DefaultConfig() Config {
	return Config{
		RepositorySuffix: "-gitguide",
		CommitWindow:     24 * time.Hour,
		PrefetchFirstDay: true,
	}
}

func LoadConfig() Config {
	def := DefaultConfig()
	return Config{
		RepositorySuffix: envutil.String("PROGRESSION_REPOSITORY_SUFFIX", def.RepositorySuffix),
		CommitWindow:     envutil.Duration("PROGRESSION_COMMIT_WINDOW", def.CommitWindow),
		PrefetchFirstDay: envutil.Bool("PROGRESSION_PREFETCH_FIRST_DAY", def.PrefetchFirstDay),
	}
}

type Deps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Projects    repos.ProjectRepo
	Days        repos.DayRepo
	Concepts    repos.ConceptRepo
	Subconcepts repos.SubconceptRepo
	Tasks       repos.TaskRepo

	// Optional collaborators.
	Verifier   Verifier
	Dispatcher Dispatcher
	Events     EventPublisher

	Curriculum *Curriculum
	Config     Config
}

// Engine owns progression state: completion cascade, unlock frontier, the
// Day 0 verification gate, generation scheduling and progress reporting.
// It keeps no state between calls; every operation re-reads the store.
type Engine struct {
	db  *gorm.DB
	log *logger.Logger

	projects    repos.ProjectRepo
	days        repos.DayRepo
	concepts    repos.ConceptRepo
	subconcepts repos.SubconceptRepo
	tasks       repos.TaskRepo

	verifier   Verifier
	dispatcher Dispatcher
	events     EventPublisher

	curriculum *Curriculum
	cfg        Config
	tracer     trace.Tracer
}

func New(deps Deps) (*Engine, error) {
	if deps.DB == nil || deps.Log == nil {
		return nil, fmt.Errorf("progression engine: db and logger required")
	}
	if deps.Projects == nil || deps.Days == nil || deps.Concepts == nil || deps.Subconcepts == nil || deps.Tasks == nil {
		return nil, fmt.Errorf("progression engine: missing repos")
	}
	cfg := deps.Config
	def := DefaultConfig()
	if cfg.RepositorySuffix == "" {
		cfg.RepositorySuffix = def.RepositorySuffix
	}
	if cfg.CommitWindow <= 0 {
		cfg.CommitWindow = def.CommitWindow
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	curriculum := deps.Curriculum
	if curriculum == nil {
		c, err := DefaultCurriculum()
		if err != nil {
			return nil, err
		}
		curriculum = c
	}
	return &Engine{
		db:          deps.DB,
		log:         deps.Log.With("service", "ProgressionEngine"),
		projects:    deps.Projects,
		days:        deps.Days,
		concepts:    deps.Concepts,
		subconcepts: deps.Subconcepts,
		tasks:       deps.Tasks,
		verifier:    deps.Verifier,
		dispatcher:  deps.Dispatcher,
		events:      deps.Events,
		curriculum:  curriculum,
		cfg:         cfg,
		tracer:      otel.Tracer("gitguide/progression"),
	}, nil
}

// SetDispatcher wires the generation dispatcher after construction; the
// in-process dispatcher needs the engine itself to apply content.
func (e *Engine) SetDispatcher(d Dispatcher) { e.dispatcher = d }

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) now() time.Time { return e.cfg.Now() }

// inTx runs fn in one transaction. Store errors come back as *StoreError.
func (e *Engine) inTx(ctx context.Context, op string, fn func(dbc dbctx.Context) error) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
	return classifyStoreError(op, err)
}

func (e *Engine) startSpan(ctx context.Context, name string, projectID uuid.UUID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("project_id", projectID.String()))
	return e.tracer.Start(ctx, "progression."+name, trace.WithAttributes(attrs...))
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (e *Engine) publish(ctx context.Context, ev ProgressEvent) {
	if e.events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.Warn("progress event publish failed", "type", ev.Type, "project_id", ev.ProjectID, "error", err)
	}
}

func validDayNumber(n int) error {
	if n < types.FirstDayNumber || n > types.LastDayNumber {
		return invalid("day number %d out of range [%d,%d]", n, types.FirstDayNumber, types.LastDayNumber)
	}
	return nil
}

func (e *Engine) dayFor(dbc dbctx.Context, projectID uuid.UUID, dayNumber int) (*types.Day, error) {
	day, err := e.days.GetByProjectAndNumber(dbc, projectID, dayNumber)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, notFound(fmt.Sprintf("project %s day", projectID), dayNumber)
	}
	return day, nil
}

func (e *Engine) taskFor(dbc dbctx.Context, projectID, taskID uuid.UUID) (*types.Task, error) {
	task, err := e.tasks.GetByID(dbc, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil || task.ProjectID != projectID {
		return nil, notFound("task", taskID)
	}
	return task, nil
}

func intPtr(v int) *int { return &v }

func uuidPtr(v uuid.UUID) *uuid.UUID { return &v }
