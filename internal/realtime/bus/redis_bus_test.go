package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

func TestChannel(t *testing.T) {
	id := uuid.MustParse("6f1c3a52-3b1e-4a8e-9a38-3c0b1d2e4f50")
	cases := []struct {
		prefix string
		want   string
	}{
		{"", "gitguide:progress:" + id.String()},
		{"events", "events:" + id.String()},
		{"events:", "events:" + id.String()},
		{"  ", "gitguide:progress:" + id.String()},
	}
	for _, tc := range cases {
		if got := Channel(tc.prefix, id); got != tc.want {
			t.Fatalf("Channel(%q) = %q, want %q", tc.prefix, got, tc.want)
		}
	}
}

func TestNoopBus(t *testing.T) {
	b := NewNoopBus()
	if err := b.Publish(context.Background(), progression.ProgressEvent{ProjectID: uuid.New()}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := b.Subscribe(context.Background(), uuid.New(), func(progression.ProgressEvent) {}); err == nil {
		t.Fatalf("Subscribe should report an unconfigured bus")
	}
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	if _, err := NewRedisBus(logger.Nop(), RedisConfig{}); err == nil {
		t.Fatalf("expected error without an address")
	}
	if _, err := NewRedisBus(nil, RedisConfig{Addr: "localhost:6379"}); err == nil {
		t.Fatalf("expected error without a logger")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	b, err := NewRedisBus(logger.Nop(), RedisConfig{Addr: addr, ChannelPrefix: "gitguide:test"})
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	projectID := uuid.New()
	got := make(chan progression.ProgressEvent, 1)
	if err := b.Subscribe(ctx, projectID, func(ev progression.ProgressEvent) { got <- ev }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	day := 3
	sent := progression.ProgressEvent{Type: progression.EventDayUnlocked, ProjectID: projectID, DayNumber: &day, At: time.Now().UTC()}
	if err := b.Publish(ctx, sent); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case ev := <-got:
		if ev.Type != sent.Type || ev.DayNumber == nil || *ev.DayNumber != day {
			t.Fatalf("received %+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("no event received")
	}
}
