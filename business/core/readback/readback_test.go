package readback_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/storagecost/business/core/display"
	"github.com/ardanlabs/storagecost/business/core/readback"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

type reader struct {
	mu       sync.Mutex
	self     string
	child    string
	childErr error
	block    chan struct{}
}

func (r *reader) ReadRecentDataFromSelf(ctx context.Context) (string, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.self, nil
}

func (r *reader) ReadRecentChildData(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.child, r.childErr
}

func (r *reader) set(self string, child string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.self, r.child = self, child
}

// store keeps the updates of each source in their own queue.
type store struct {
	updates map[display.Source]chan display.Update
}

func newStore() *store {
	return &store{
		updates: map[display.Source]chan display.Update{
			display.SelfRead:  make(chan display.Update, 10),
			display.ChildRead: make(chan display.Update, 10),
		},
	}
}

func (s *store) Post(ctx context.Context, u display.Update) error {
	select {
	case s.updates[u.Source] <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func next(t *testing.T, s *store, source display.Source) display.Update {
	select {
	case u := <-s.updates[source]:
		return u
	case <-time.After(5 * time.Second):
		t.Fatalf("no update posted for %s", source)
	}
	return display.Update{}
}

// =============================================================================

func TestPolling(t *testing.T) {
	t.Log("Given the need to read back both storage locations.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the poller starts and is signaled.", testID)
		{
			r := reader{self: "one", child: "two"}
			s := newStore()

			p := readback.Run(readback.Config{
				Log:     zap.NewNop().Sugar(),
				Reader:  &r,
				Store:   s,
				Timeout: time.Second,
			})
			defer p.Shutdown()

			if u := next(t, s, display.SelfRead); u.Kind != display.KindRead || u.Data != "one" {
				t.Fatalf("\t%s\tTest %d:\tShould post the self value on start: %+v", failed, testID, u)
			}
			if u := next(t, s, display.ChildRead); u.Kind != display.KindRead || u.Data != "two" {
				t.Fatalf("\t%s\tTest %d:\tShould post the child value on start: %+v", failed, testID, u)
			}
			t.Logf("\t%s\tTest %d:\tShould post both values on start.", success, testID)

			r.set("three", "four")
			p.Signal()

			if u := next(t, s, display.SelfRead); u.Data != "three" {
				t.Fatalf("\t%s\tTest %d:\tShould post the new self value when signaled: %+v", failed, testID, u)
			}
			if u := next(t, s, display.ChildRead); u.Data != "four" {
				t.Fatalf("\t%s\tTest %d:\tShould post the new child value when signaled: %+v", failed, testID, u)
			}
			t.Logf("\t%s\tTest %d:\tShould post both values when signaled.", success, testID)
		}
	}
}

func TestReadFailure(t *testing.T) {
	t.Log("Given the need to surface failed reads.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the child read fails.", testID)
		{
			r := reader{self: "one", childErr: errors.New("execution reverted")}
			s := newStore()

			var mu sync.Mutex
			results := make(map[display.Source]error)

			p := readback.Run(readback.Config{
				Log:     zap.NewNop().Sugar(),
				Reader:  &r,
				Store:   s,
				Timeout: time.Second,
				OnRead: func(source display.Source, err error) {
					mu.Lock()
					defer mu.Unlock()
					results[source] = err
				},
			})
			defer p.Shutdown()

			u := next(t, s, display.ChildRead)
			if u.Kind != display.KindReadFailed || u.Err.Kind != display.ErrKindRead {
				t.Fatalf("\t%s\tTest %d:\tShould post a read failure: %+v", failed, testID, u)
			}
			t.Logf("\t%s\tTest %d:\tShould post a read failure.", success, testID)

			if _, err := p.Read(context.Background(), display.ChildRead); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould return the error on demand.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould return the error on demand.", success, testID)

			next(t, s, display.SelfRead)

			mu.Lock()
			defer mu.Unlock()
			if results[display.ChildRead] == nil {
				t.Fatalf("\t%s\tTest %d:\tShould report the failed read.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report the failed read.", success, testID)
		}
	}
}

func TestIndependentSources(t *testing.T) {
	t.Log("Given the need to read each location independently.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the self read hangs.", testID)
		{
			r := reader{child: "child data", block: make(chan struct{})}
			s := newStore()

			p := readback.Run(readback.Config{
				Log:    zap.NewNop().Sugar(),
				Reader: &r,
				Store:  s,
			})
			defer p.Shutdown()

			if u := next(t, s, display.ChildRead); u.Data != "child data" {
				t.Fatalf("\t%s\tTest %d:\tShould still post the child value: %+v", failed, testID, u)
			}
			t.Logf("\t%s\tTest %d:\tShould still post the child value.", success, testID)

			data, err := p.Read(context.Background(), display.ChildRead)
			if err != nil || data != "child data" {
				t.Fatalf("\t%s\tTest %d:\tShould read the child on demand: %q %v", failed, testID, data, err)
			}
			t.Logf("\t%s\tTest %d:\tShould read the child on demand.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a read is requested for a write source.", testID)
		{
			if _, err := readback.ParseSource("event"); !errors.Is(err, readback.ErrUnknownSource) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the name, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the name.", success, testID)

			src, err := readback.ParseSource("child")
			if err != nil || src != display.ChildRead {
				t.Fatalf("\t%s\tTest %d:\tShould map child to the child read: %v %v", failed, testID, src, err)
			}
			t.Logf("\t%s\tTest %d:\tShould map child to the child read.", success, testID)
		}
	}
}
