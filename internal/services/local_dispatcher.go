package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

// LocalGenerationDispatcher runs generation in-process on a bounded number
// of goroutines. It is the fallback when Temporal is not configured.
type LocalGenerationDispatcher struct {
	log  *logger.Logger
	gen  DayGenerationService
	sem  *semaphore.Weighted
	base context.Context
	stop context.CancelFunc

	// mu orders wg.Add against the wg.Wait in Close.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ progression.Dispatcher = (*LocalGenerationDispatcher)(nil)

func NewLocalGenerationDispatcher(log *logger.Logger, gen DayGenerationService, concurrency int) (*LocalGenerationDispatcher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if gen == nil {
		return nil, fmt.Errorf("day generation service required")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	base, stop := context.WithCancel(context.Background())
	return &LocalGenerationDispatcher{
		log:  log.With("service", "LocalGenerationDispatcher"),
		gen:  gen,
		sem:  semaphore.NewWeighted(int64(concurrency)),
		base: base,
		stop: stop,
	}, nil
}

// RequestGeneration returns immediately; the run happens on a background
// goroutine detached from the caller's context.
func (d *LocalGenerationDispatcher) RequestGeneration(ctx context.Context, req progression.GenerationRequest) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("local dispatcher stopped: %w", context.Canceled)
	}
	d.wg.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.wg.Done()
		if err := d.sem.Acquire(d.base, 1); err != nil {
			d.log.Warn("generation dropped on shutdown", "project_id", req.ProjectID, "day_number", req.DayNumber)
			if relErr := d.gen.Release(context.Background(), req); relErr != nil {
				d.log.Warn("release generation failed", "project_id", req.ProjectID, "day_number", req.DayNumber, "error", relErr)
			}
			return
		}
		defer d.sem.Release(1)

		if err := d.gen.Run(d.base, req); err != nil {
			d.log.Warn("local generation failed", "project_id", req.ProjectID, "day_number", req.DayNumber, "error", err)
			return
		}
		d.log.Info("local generation finished", "project_id", req.ProjectID, "day_number", req.DayNumber)
	}()
	return nil
}

// Wait blocks until every accepted request has finished.
func (d *LocalGenerationDispatcher) Wait() { d.wg.Wait() }

// Close stops accepting requests, cancels queued ones and waits for running
// ones to return.
func (d *LocalGenerationDispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.stop()
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}
