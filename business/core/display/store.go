package display

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// queueSize is the number of updates that can be waiting for the renderer
// before producers block.
const queueSize = 100

// ErrClosed is returned when posting to a store that has been shut down.
var ErrClosed = errors.New("display store closed")

// RenderFunc receives every view produced by the renderer.
type RenderFunc func(View)

// Store owns the state. Producers post updates and the single renderer
// goroutine applies them in order.
type Store struct {
	log     *zap.SugaredLogger
	render  RenderFunc
	updates chan Update
	shut    chan struct{}
	wg      sync.WaitGroup

	mu    sync.RWMutex
	state State
}

// New constructs a store and starts the renderer.
func New(log *zap.SugaredLogger, render RenderFunc) *Store {
	if render == nil {
		render = func(View) {}
	}

	s := Store{
		log:     log,
		render:  render,
		updates: make(chan Update, queueSize),
		shut:    make(chan struct{}),
		state:   NewState(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.renderOperations()
	}()

	return &s
}

// Shutdown stops the renderer. Updates still queued are dropped.
func (s *Store) Shutdown() {
	s.log.Infow("display", "status", "shutdown started")
	defer s.log.Infow("display", "status", "shutdown completed")

	close(s.shut)
	s.wg.Wait()
}

// Post queues the update for the renderer.
func (s *Store) Post(ctx context.Context, u Update) error {
	select {
	case <-s.shut:
		return ErrClosed
	default:
	}

	select {
	case s.updates <- u:
		return nil
	case <-s.shut:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetInput posts the new input text and returns its byte size once the
// renderer has applied it, so a write submitted next uses this text.
func (s *Store) SetInput(ctx context.Context, text string) (int, error) {
	u := Update{Source: InputEdit, Kind: KindInput, Data: text, applied: make(chan struct{})}
	if err := s.Post(ctx, u); err != nil {
		return 0, err
	}

	select {
	case <-u.applied:
		return ByteSize(text), nil
	case <-s.shut:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Copy()
}

// View returns the rendered form of the current state.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Render(s.state)
}

// renderOperations applies updates until shutdown.
func (s *Store) renderOperations() {
	s.log.Infow("display", "status", "renderer started")
	defer s.log.Infow("display", "status", "renderer completed")

	for {
		select {
		case u := <-s.updates:
			s.mu.Lock()
			Apply(&s.state, u)
			v := Render(s.state)
			s.mu.Unlock()

			if u.applied != nil {
				close(u.applied)
			}

			s.log.Debugw("display", "status", "applied", "source", u.Source, "kind", u.Kind, "seq", v.Seq)
			s.render(v)

		case <-s.shut:
			return
		}
	}
}
