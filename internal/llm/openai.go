package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/finassist/internal/config"
)

const (
	defaultModel       = "gpt-4o-mini"
	defaultTimeout     = 60 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 500 * time.Millisecond
)

// Options configures the OpenAI client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	Timeout        time.Duration
	RequestsPerMin int
	MaxRetries     int
}

// OptionsFromConfig resolves the API key (environment first) and the [llm]
// section into client options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		APIKey:         config.GetAPIKey(cfg),
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		Timeout:        time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		RequestsPerMin: cfg.LLM.RequestsPerMin,
	}
}

// generator is the subset of *openai.LLM the client calls.
type generator interface {
	GenerateContent(ctx context.Context, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error)
}

// OpenAI talks to an OpenAI-compatible chat-completions endpoint.
type OpenAI struct {
	llm        generator
	opts       Options
	limiter    *rate.Limiter
	maxRetries int
	logger     *zap.Logger
}

// NewOpenAI creates a client. It fails fast with ErrMissingAPIKey.
func NewOpenAI(opts Options, logger *zap.Logger) (*OpenAI, error) {
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}

	lcOpts := []openai.Option{
		openai.WithToken(opts.APIKey),
		openai.WithModel(opts.Model),
	}
	if opts.BaseURL != "" {
		lcOpts = append(lcOpts, openai.WithBaseURL(opts.BaseURL))
	}
	client, err := openai.New(lcOpts...)
	if err != nil {
		return nil, fmt.Errorf("llm: creating OpenAI client: %w", err)
	}
	return newOpenAI(client, opts, logger), nil
}

func newOpenAI(g generator, opts Options, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	limit := rate.Inf
	if opts.RequestsPerMin > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMin) / 60)
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	return &OpenAI{
		llm:        g,
		opts:       opts,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: retries,
		logger:     logger.Named("llm"),
	}
}

// Model returns the configured model name.
func (c *OpenAI) Model() string { return c.opts.Model }

// Complete returns the whole reply.
func (c *OpenAI) Complete(ctx context.Context, msgs []Message) (string, error) {
	return c.generate(ctx, msgs, nil)
}

// Stream returns the reply as it is generated.
func (c *OpenAI) Stream(ctx context.Context, msgs []Message) (*Stream, error) {
	if len(msgs) == 0 {
		return nil, errors.New("llm: no messages")
	}
	return NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		_, err := c.generate(ctx, msgs, emit)
		return err
	}), nil
}

func (c *OpenAI) generate(ctx context.Context, msgs []Message, emit func(string) error) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	callOpts := []llms.CallOption{llms.WithTemperature(c.opts.Temperature)}
	streamed := false
	if emit != nil {
		callOpts = append(callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			streamed = true
			return emit(string(chunk))
		}))
	}

	content := toMessageContent(msgs)
	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm: rate limiter: %w", err)
		}

		resp, err := c.llm.GenerateContent(ctx, content, callOpts...)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", ErrEmptyResponse
			}
			c.logger.Debug("completion finished",
				zap.String("model", c.opts.Model),
				zap.Int("messages", len(msgs)),
				zap.Duration("elapsed", time.Since(start)))
			return resp.Choices[0].Content, nil
		}

		if ctx.Err() != nil {
			return "", fmt.Errorf("llm: %w", ctx.Err())
		}
		// A partially streamed reply cannot be retried without duplicating text.
		if streamed || !isRateLimit(err) {
			return "", fmt.Errorf("llm: generate: %w", err)
		}
		lastErr = err
		c.logger.Warn("rate limited, backing off", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", fmt.Errorf("%w: %v", ErrRateLimited, lastErr)
}

func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}

func toMessageContent(msgs []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		var t schema.ChatMessageType
		switch m.Role {
		case RoleSystem:
			t = schema.ChatMessageTypeSystem
		case RoleAssistant:
			t = schema.ChatMessageTypeAI
		default:
			t = schema.ChatMessageTypeHuman
		}
		out = append(out, llms.TextParts(t, m.Content))
	}
	return out
}
