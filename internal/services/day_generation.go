package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

// DayContentStore is the slice of the progression engine a generation run
// talks to.
type DayContentStore interface {
	Brief(ctx context.Context, projectID uuid.UUID, dayNumber int) (*progression.DayBrief, error)
	ApplyGeneratedContent(ctx context.Context, projectID uuid.UUID, dayNumber int, content progression.DayContent) (*progression.ApplyResult, error)
	ReleaseGeneration(ctx context.Context, projectID uuid.UUID, dayNumber int) (bool, error)
}

// DayGenerationService runs the generate-then-apply pipeline for one day.
// The Temporal activities and the in-process dispatcher both go through it.
type DayGenerationService interface {
	Generate(ctx context.Context, req progression.GenerationRequest) (progression.DayContent, error)
	Apply(ctx context.Context, req progression.GenerationRequest, content progression.DayContent) (*progression.ApplyResult, error)
	Release(ctx context.Context, req progression.GenerationRequest) error
	Run(ctx context.Context, req progression.GenerationRequest) error
}

type dayGenerationService struct {
	log       *logger.Logger
	store     DayContentStore
	generator progression.ContentGenerator
}

func NewDayGenerationService(log *logger.Logger, store DayContentStore, generator progression.ContentGenerator) (DayGenerationService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if store == nil || generator == nil {
		return nil, fmt.Errorf("day generation missing deps")
	}
	return &dayGenerationService{
		log:       log.With("service", "DayGenerationService"),
		store:     store,
		generator: generator,
	}, nil
}

func (s *dayGenerationService) Generate(ctx context.Context, req progression.GenerationRequest) (progression.DayContent, error) {
	brief, err := s.store.Brief(ctx, req.ProjectID, req.DayNumber)
	if err != nil {
		return progression.DayContent{}, err
	}
	content, err := s.generator.GenerateDay(ctx, *brief)
	if err != nil {
		return progression.DayContent{}, fmt.Errorf("generate day %d: %w", req.DayNumber, err)
	}
	if err := content.Validate(); err != nil {
		return progression.DayContent{}, err
	}
	s.log.Debug("day content generated", "project_id", req.ProjectID, "day_number", req.DayNumber, "concepts", len(content.Concepts))
	return content, nil
}

func (s *dayGenerationService) Apply(ctx context.Context, req progression.GenerationRequest, content progression.DayContent) (*progression.ApplyResult, error) {
	res, err := s.store.ApplyGeneratedContent(ctx, req.ProjectID, req.DayNumber, content)
	if err != nil {
		return nil, err
	}
	if res.AlreadyGenerated {
		s.log.Debug("day content already present", "project_id", req.ProjectID, "day_number", req.DayNumber)
	}
	return res, nil
}

func (s *dayGenerationService) Release(ctx context.Context, req progression.GenerationRequest) error {
	_, err := s.store.ReleaseGeneration(ctx, req.ProjectID, req.DayNumber)
	return err
}

// Run generates and applies one day. On failure the claim is released so a
// later EnsureGenerated can dispatch again.
func (s *dayGenerationService) Run(ctx context.Context, req progression.GenerationRequest) error {
	content, err := s.Generate(ctx, req)
	if err == nil {
		_, err = s.Apply(ctx, req, content)
	}
	if err == nil {
		return nil
	}
	s.log.Warn("day generation failed", "project_id", req.ProjectID, "day_number", req.DayNumber, "error", err)
	if relErr := s.Release(context.WithoutCancel(ctx), req); relErr != nil {
		return errors.Join(err, fmt.Errorf("release generation: %w", relErr))
	}
	return err
}
