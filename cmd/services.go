package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/assistant"
	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/llm"
	"github.com/theirongolddev/finassist/internal/notify"
	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/rag"
)

// services are the long-lived components shared by chat and serve.
type services struct {
	data      *pipeline.Provider
	client    *llm.OpenAI
	alarms    *notify.Scheduler
	assistant *assistant.Assistant
}

func missingKeyError() error {
	return fmt.Errorf("%w\n  Set OPENAI_API_KEY or run `finassist setup`", llm.ErrMissingAPIKey)
}

func newLLM(cfg config.Config, logger *zap.Logger) (*llm.OpenAI, error) {
	client, err := llm.NewOpenAI(llm.OptionsFromConfig(cfg), logger)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return nil, missingKeyError()
	}
	return client, err
}

func newServices(cfg config.Config, logger *zap.Logger) (*services, error) {
	client, err := newLLM(cfg, logger)
	if err != nil {
		return nil, err
	}
	data := newProvider(cfg, logger)
	alarms := notify.NewScheduler(notify.SenderFromConfig(cfg, logger), logger)

	a, err := assistant.New(assistant.Deps{
		LLM:       client,
		Data:      data.Current,
		Alarms:    alarms,
		AlarmSpec: cfg.Alarm.Schedule,
		Currency:  currency(cfg),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &services{data: data, client: client, alarms: alarms, assistant: a}, nil
}

// openAnswerer opens the knowledge base index. It returns nil when the
// index has not been built yet.
func openAnswerer(cfg config.Config, client llm.Client, logger *zap.Logger) (*rag.Answerer, error) {
	idx, err := openIndex(cfg, logger)
	if err != nil {
		return nil, err
	}
	if !idx.Ready() {
		return nil, nil
	}
	return rag.NewAnswerer(idx, client, logger), nil
}

func openIndex(cfg config.Config, logger *zap.Logger) (*rag.Index, error) {
	embed, err := rag.NewOpenAIEmbedding(cfg)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return nil, missingKeyError()
	}
	if err != nil {
		return nil, err
	}
	return rag.Open(rag.OptionsFromConfig(cfg), embed, logger)
}

func (s *services) stop(ctx context.Context) {
	s.alarms.Stop(ctx)
}
