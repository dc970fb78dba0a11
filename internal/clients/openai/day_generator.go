package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/envutil"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

const DefaultModel = openai.GPT4oMini

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

func LoadConfig() Config {
	return Config{
		APIKey:     envutil.String("OPENAI_API_KEY", ""),
		BaseURL:    envutil.String("OPENAI_BASE_URL", ""),
		Model:      envutil.String("OPENAI_MODEL", DefaultModel),
		MaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 3),
		RetryDelay: envutil.Duration("OPENAI_RETRY_DELAY", time.Second),
		Timeout:    envutil.Duration("OPENAI_TIMEOUT", 3*time.Minute),
	}
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// DayGenerator asks a chat model for one day's concepts, subconcepts and
// tasks, shaped as progression.DayContent.
type DayGenerator struct {
	log        *logger.Logger
	client     chatClient
	model      string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

var _ progression.ContentGenerator = (*DayGenerator)(nil)

func NewDayGenerator(log *logger.Logger, cfg Config) (*DayGenerator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		oc.BaseURL = strings.TrimRight(base, "/")
	}
	return newDayGenerator(log, openai.NewClientWithConfig(oc), cfg), nil
}

func newDayGenerator(log *logger.Logger, client chatClient, cfg Config) *DayGenerator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &DayGenerator{
		log:        log.With("service", "OpenAIDayGenerator"),
		client:     client,
		model:      model,
		maxRetries: retries,
		retryDelay: cfg.RetryDelay,
		timeout:    timeout,
	}
}

func (g *DayGenerator) GenerateDay(ctx context.Context, brief progression.DayBrief) (progression.DayContent, error) {
	system := daySystemPrompt
	user := dayUserPrompt(brief)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return progression.DayContent{}, ctx.Err()
			case <-time.After(backoff(g.retryDelay, attempt)):
			}
		}

		content, err := g.attempt(ctx, system, user)
		if err == nil {
			return content, nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		g.log.Warn("day generation attempt failed", "project_id", brief.ProjectID, "day_number", brief.DayNumber, "attempt", attempt+1, "error", err)
	}
	return progression.DayContent{}, fmt.Errorf("generate day %d after %d attempts: %w", brief.DayNumber, g.maxRetries+1, lastErr)
}

func (g *DayGenerator) attempt(ctx context.Context, system, user string) (progression.DayContent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.4,
	})
	if err != nil {
		return progression.DayContent{}, err
	}
	if len(resp.Choices) == 0 {
		return progression.DayContent{}, fmt.Errorf("no completion choices returned")
	}

	var out progression.DayContent
	if err := json.Unmarshal([]byte(stripFence(resp.Choices[0].Message.Content)), &out); err != nil {
		return progression.DayContent{}, fmt.Errorf("parse day content: %w", err)
	}
	if err := out.Validate(); err != nil {
		return progression.DayContent{}, err
	}
	return out, nil
}

func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= 30*time.Second {
			return 30 * time.Second
		}
	}
	return d
}

// stripFence removes a ```json fence some models wrap around JSON output.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
