package llm

import (
	"context"
	"strings"
	"sync"
)

// DefaultBuffer is the chunk channel capacity. A slow consumer blocks the
// producer once this many chunks are pending.
const DefaultBuffer = 16

// Chunk is one increment of a streamed reply. A chunk with a non-nil Err
// is terminal.
type Chunk struct {
	Text string
	Err  error
}

// Stream is an in-flight reply delivered over a bounded channel.
type Stream struct {
	ch     chan Chunk
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	text strings.Builder
	err  error
}

// Producer writes a reply through emit. emit fails once the stream is
// cancelled.
type Producer func(ctx context.Context, emit func(text string) error) error

// NewStream runs produce in its own goroutine and returns the stream it
// feeds.
func NewStream(ctx context.Context, produce Producer) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		ch:     make(chan Chunk, DefaultBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.ch)
		defer cancel()
		emit := func(text string) error {
			if text == "" {
				return nil
			}
			select {
			case s.ch <- Chunk{Text: text}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := produce(ctx, emit); err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			// The terminal error chunk must not block a consumer that
			// already gave up.
			select {
			case s.ch <- Chunk{Err: err}:
			case <-ctx.Done():
				select {
				case s.ch <- Chunk{Err: err}:
				default:
				}
			}
		}
	}()
	return s
}

// Text returns an already-complete stream holding a single chunk.
func Text(text string) *Stream {
	return NewStream(context.Background(), func(_ context.Context, emit func(string) error) error {
		return emit(text)
	})
}

// Chunks exposes the raw channel. It is closed after the terminal chunk.
func (s *Stream) Chunks() <-chan Chunk { return s.ch }

// Next blocks for the next chunk. ok is false once the stream has ended.
func (s *Stream) Next() (c Chunk, ok bool) {
	c, ok = <-s.ch
	if ok {
		s.record(c)
	} else {
		s.finish()
	}
	return c, ok
}

// Cancel stops the producer. Pending chunks may still be read.
func (s *Stream) Cancel() { s.cancel() }

// Collect drains the stream and returns the full text.
func (s *Stream) Collect() (string, error) {
	err := s.Partials(func(string) {})
	return s.Text(), err
}

// Partials calls fn with the growing reply after every chunk, until the
// stream ends. It returns the stream's terminal error, if any.
func (s *Stream) Partials(fn func(partial string)) error {
	for {
		c, ok := s.Next()
		if !ok {
			return s.Err()
		}
		if c.Err != nil {
			continue
		}
		fn(s.Text())
	}
}

// Text returns everything received so far.
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Err returns the terminal error once one has been read.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed when the stream has been fully read.
func (s *Stream) Done() <-chan struct{} { return s.done }

func (s *Stream) record(c Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Err != nil {
		s.err = c.Err
		return
	}
	s.text.WriteString(c.Text)
}

func (s *Stream) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
