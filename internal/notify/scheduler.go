// Package notify schedules spending reminders and delivers them by email
// or to the log.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// BodyFunc renders a reminder body at the moment it fires.
type BodyFunc func(ctx context.Context) (string, error)

// Reminder is what gets delivered when an alarm fires.
type Reminder struct {
	Subject string
	Body    string
	// Render, when set, replaces Body with fresh content at fire time.
	Render BodyFunc
}

// Alarm is a scheduled reminder.
type Alarm struct {
	ID       string
	Spec     string
	Reminder Reminder
	Created  time.Time
	Next     time.Time

	entry cron.EntryID
}

// Scheduler runs reminders on cron schedules. Alarms live in memory only.
type Scheduler struct {
	cron    *cron.Cron
	sender  Sender
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	alarms map[string]*Alarm
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(sender Sender, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(),
		sender:  sender,
		logger:  logger.Named("notify"),
		timeout: 30 * time.Second,
		alarms:  make(map[string]*Alarm),
	}
}

// Schedule registers a reminder under a standard five-field cron spec (or
// a descriptor such as "@monthly") and returns its alarm ID.
func (s *Scheduler) Schedule(spec string, r Reminder) (string, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return "", fmt.Errorf("notify: invalid schedule %q: %w", spec, err)
	}

	a := &Alarm{
		ID:       uuid.NewString(),
		Spec:     spec,
		Reminder: r,
		Created:  time.Now(),
	}
	a.entry = s.cron.Schedule(sched, cron.FuncJob(func() { _ = s.Fire(a.ID) }))

	s.mu.Lock()
	s.alarms[a.ID] = a
	s.mu.Unlock()

	s.logger.Info("alarm scheduled", zap.String("id", a.ID), zap.String("spec", spec))
	return a.ID, nil
}

// Fire delivers an alarm's reminder immediately.
func (s *Scheduler) Fire(id string) error {
	s.mu.Lock()
	a, ok := s.alarms[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("notify: unknown alarm %s", id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	body := a.Reminder.Body
	if a.Reminder.Render != nil {
		rendered, err := a.Reminder.Render(ctx)
		if err != nil {
			s.logger.Warn("rendering reminder failed", zap.String("id", id), zap.Error(err))
		} else {
			body = rendered
		}
	}
	if err := s.sender.Send(ctx, a.Reminder.Subject, body); err != nil {
		s.logger.Error("delivering reminder failed", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// Cancel removes an alarm. It reports whether the alarm existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	a, ok := s.alarms[id]
	delete(s.alarms, id)
	s.mu.Unlock()
	if ok {
		s.cron.Remove(a.entry)
	}
	return ok
}

// List returns the alarms ordered by creation time, with their next run.
func (s *Scheduler) List() []Alarm {
	s.mu.Lock()
	out := make([]Alarm, 0, len(s.alarms))
	for _, a := range s.alarms {
		cp := *a
		cp.Next = s.cron.Entry(a.entry).Next
		out = append(out, cp)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Start begins running alarms in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for running deliveries or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
