package progression

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	types "github.com/yungbote/gitguide-backend/internal/domain"
)

var (
	// ErrNotFound means the entity does not exist or is not owned by the
	// stated project. Never retried automatically.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument covers out-of-range day numbers, malformed content
	// and operations aimed at the wrong kind of task or day.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict is returned when a regenerate targets completed work.
	ErrConflict = errors.New("conflict")
	// ErrTransientStore marks persistence failures. The operation was rolled
	// back and is safe to retry.
	ErrTransientStore = errors.New("transient store failure")
	// ErrVerificationFailed is matched by every *VerificationError.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrVerifierUnavailable means the verification service could not be
	// reached. Nothing was changed.
	ErrVerifierUnavailable = errors.New("verification service unavailable")
	// ErrDispatchFailed means a generation request could not be handed off.
	// The generation claim has been released.
	ErrDispatchFailed = errors.New("generation dispatch failed")
)

// Sentinels a Verifier wraps to signal a negative answer rather than a
// transport problem.
var (
	ErrRemoteNotFound = errors.New("remote resource not found")
	ErrNoRecentCommit = errors.New("no commit inside the window")
)

// StoreError wraps a persistence failure for one engine operation.
type StoreError struct {
	Op   string
	Code string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("progression %s: store failure (sqlstate %s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("progression %s: store failure: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrTransientStore }

func (e *StoreError) Retryable() bool { return true }

// Contention reports Postgres serialization or deadlock aborts.
func (e *StoreError) Contention() bool {
	return e.Code == "40001" || e.Code == "40P01"
}

// VerificationError is a negative verification answer with a reason that
// can be shown to the learner.
type VerificationError struct {
	Kind   types.VerificationKind
	Reason string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s verification failed: %s", e.Kind, e.Reason)
}

func (e *VerificationError) Is(target error) bool { return target == ErrVerificationFailed }

func rejected(kind types.VerificationKind, format string, args ...interface{}) *VerificationError {
	return &VerificationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func notFound(what string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}

// classifyStoreError passes engine errors through untouched and wraps
// anything else as a StoreError.
func classifyStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	for _, known := range []error{ErrNotFound, ErrInvalidArgument, ErrConflict, ErrVerificationFailed, ErrVerifierUnavailable, ErrDispatchFailed} {
		if errors.Is(err, known) {
			return err
		}
	}
	out := &StoreError{Op: op, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		out.Code = pgErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		out.Code = "canceled"
	}
	return out
}
