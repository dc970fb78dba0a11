package bus

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
)

// Bus fans progress events out per project. Publish satisfies
// progression.EventPublisher.
type Bus interface {
	Publish(ctx context.Context, ev progression.ProgressEvent) error
	Subscribe(ctx context.Context, projectID uuid.UUID, onEvent func(ev progression.ProgressEvent)) error
	Close() error
}

const DefaultChannelPrefix = "gitguide:progress"

// Channel is the pub/sub channel that carries one project's events.
func Channel(prefix string, projectID uuid.UUID) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return fmt.Sprintf("%s:%s", prefix, projectID)
}

type noopBus struct{}

// NewNoopBus drops every event. Used when Redis is not configured.
func NewNoopBus() Bus { return noopBus{} }

func (noopBus) Publish(context.Context, progression.ProgressEvent) error { return nil }

func (noopBus) Subscribe(context.Context, uuid.UUID, func(progression.ProgressEvent)) error {
	return fmt.Errorf("event bus not configured")
}

func (noopBus) Close() error { return nil }
