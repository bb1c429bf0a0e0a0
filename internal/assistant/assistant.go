package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/llm"
	"github.com/theirongolddev/finassist/internal/notify"
	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/report"
)

// DataFunc returns the current history, forecast and metrics.
type DataFunc func(ctx context.Context) (*pipeline.Result, error)

// AlarmScheduler registers reminders.
type AlarmScheduler interface {
	Schedule(spec string, r notify.Reminder) (string, error)
}

// Deps are the services an Assistant is built from.
type Deps struct {
	LLM       llm.Client
	Data      DataFunc
	Alarms    AlarmScheduler // optional
	AlarmSpec string         // cron spec for chat-created alarms
	Currency  string
	Logger    *zap.Logger
}

// Assistant answers chat messages.
type Assistant struct {
	deps   Deps
	logger *zap.Logger
}

// New validates deps and returns an assistant.
func New(deps Deps) (*Assistant, error) {
	if deps.LLM == nil {
		return nil, errors.New("assistant: no LLM client")
	}
	if deps.Data == nil {
		return nil, errors.New("assistant: no data source")
	}
	if deps.AlarmSpec == "" {
		deps.AlarmSpec = "0 9 1 * *"
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{deps: deps, logger: logger.Named("assistant")}, nil
}

// Conversation is the turn history of one chat. It is safe for concurrent
// use: Respond takes one turn at a time, so a second message waits until
// the reply to the first has been recorded.
type Conversation struct {
	ID string

	turn  chan struct{}
	mu    sync.Mutex
	turns []llm.Message
}

// NewConversation creates an empty conversation.
func NewConversation(id string) *Conversation {
	return &Conversation{ID: id, turn: make(chan struct{}, 1)}
}

// Len returns the number of recorded turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Turns returns a copy of the recorded turns.
func (c *Conversation) Turns() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Message(nil), c.turns...)
}

func (c *Conversation) add(msgs ...llm.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, msgs...)
}

// begin waits for the conversation's turn slot.
func (c *Conversation) begin(ctx context.Context) error {
	select {
	case c.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conversation) end() { <-c.turn }

// Respond classifies message and returns the reply as a stream. Canned
// replies arrive as a single chunk. The user message and the reply are
// recorded in conv together, and only once the reply completes.
func (a *Assistant) Respond(ctx context.Context, conv *Conversation, message string) (*llm.Stream, Intent, error) {
	if err := conv.begin(ctx); err != nil {
		return nil, Intent{}, err
	}
	streaming := false
	defer func() {
		if !streaming {
			conv.end()
		}
	}()

	prior := conv.Turns()
	intent := Classify(message, len(prior))
	a.logger.Debug("message classified", zap.String("conversation", conv.ID), zap.Stringer("intent", intent.Kind))

	var (
		reply string
		err   error
	)
	switch intent.Kind {
	case IntentGreeting:
		reply = Greeting
	case IntentForecast:
		reply, err = a.forecastReply(ctx)
	case IntentAlarm:
		reply, err = a.scheduleAlarm()
	case IntentTopic:
		reply, _ = TopicDefinition(intent.Topic)
	default:
		s, err := a.generalReply(ctx, prior, message)
		if err != nil {
			return nil, intent, err
		}
		streaming = true
		return a.record(ctx, conv, message, s), intent, nil
	}
	if err != nil {
		return nil, intent, err
	}
	conv.add(llm.User(message), llm.Assistant(reply))
	return llm.Text(reply), intent, nil
}

func (a *Assistant) forecastReply(ctx context.Context) (string, error) {
	res, err := a.deps.Data(ctx)
	if err != nil {
		a.logger.Warn("forecast unavailable", zap.Error(err))
		return NoData, nil
	}
	return report.Forecast(*res.Forecast, res.Metrics, a.deps.Currency), nil
}

func (a *Assistant) scheduleAlarm() (string, error) {
	if a.deps.Alarms == nil {
		return "", errors.New("assistant: alarms are not enabled")
	}
	_, err := a.deps.Alarms.Schedule(a.deps.AlarmSpec, notify.Reminder{
		Subject: "finassist harcama hatırlatması",
		Body:    "Bu ayki harcamalarınızı gözden geçirmeyi unutmayın.",
		Render: func(ctx context.Context) (string, error) {
			res, err := a.deps.Data(ctx)
			if err != nil {
				return "", err
			}
			return report.Reminder(pipeline.Budget(res.History, res.Forecast), a.deps.Currency), nil
		},
	})
	if err != nil {
		return "", fmt.Errorf("scheduling alarm: %w", err)
	}
	return AlarmConfirmation, nil
}

func (a *Assistant) generalReply(ctx context.Context, prior []llm.Message, message string) (*llm.Stream, error) {
	res, err := a.deps.Data(ctx)
	if err != nil {
		// The model can still answer general questions without the tables.
		a.logger.Warn("answering without expense data", zap.Error(err))
		res = nil
	}
	system, err := SystemPrompt(res, a.deps.Currency)
	if err != nil {
		return nil, err
	}
	msgs := make([]llm.Message, 0, len(prior)+2)
	msgs = append(msgs, llm.System(system))
	msgs = append(msgs, prior...)
	msgs = append(msgs, llm.User(message))
	return a.deps.LLM.Stream(ctx, msgs)
}

// record relays inner and, once it ends without error, appends message
// and the complete reply to conv. It releases the conversation's turn on
// every exit path.
func (a *Assistant) record(ctx context.Context, conv *Conversation, message string, inner *llm.Stream) *llm.Stream {
	return llm.NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		defer conv.end()
		stop := context.AfterFunc(ctx, inner.Cancel)
		defer stop()
		for {
			c, ok := inner.Next()
			if !ok {
				if err := inner.Err(); err != nil {
					return err
				}
				conv.add(llm.User(message), llm.Assistant(inner.Text()))
				return nil
			}
			if c.Err != nil {
				return c.Err
			}
			if err := emit(c.Text); err != nil {
				inner.Cancel()
				return err
			}
		}
	})
}
