// Package readback polls the two storage locations of the contract and posts
// what it finds to the display store. The self and child reads run in their
// own goroutines so a slow read of one never delays the other.
package readback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/storagecost/business/core/display"
	"go.uber.org/zap"
)

// ErrUnknownSource is returned when a read is requested for a source that is
// not a read-back location.
var ErrUnknownSource = errors.New("unknown read source")

// Reader is the set of contract reads the poller requires.
type Reader interface {
	ReadRecentDataFromSelf(ctx context.Context) (string, error)
	ReadRecentChildData(ctx context.Context) (string, error)
}

// Store is where the poller posts its results.
type Store interface {
	Post(ctx context.Context, u display.Update) error
}

// ResultFunc is called after every read with its error, if any.
type ResultFunc func(source display.Source, err error)

// Config represents the mandatory settings for the poller. An Interval of
// zero turns off periodic reads, leaving only the reads that are signaled.
type Config struct {
	Log      *zap.SugaredLogger
	Reader   Reader
	Store    Store
	Interval time.Duration
	Timeout  time.Duration
	OnRead   ResultFunc
}

// Sources lists the read-back locations.
var Sources = []display.Source{display.SelfRead, display.ChildRead}

// ParseSource converts the name used on the API into a read source.
func ParseSource(name string) (display.Source, error) {
	switch name {
	case "self":
		return display.SelfRead, nil
	case "child":
		return display.ChildRead, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSource, name)
}

// =============================================================================

// Poller manages the read-back goroutines.
type Poller struct {
	log      *zap.SugaredLogger
	reader   Reader
	store    Store
	interval time.Duration
	timeout  time.Duration
	onRead   ResultFunc

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	shut    chan struct{}
	refresh map[display.Source]chan struct{}
}

// Run creates a poller and starts one goroutine per read source. Every
// source is read once on start.
func Run(cfg Config) *Poller {
	ctx, cancel := context.WithCancel(context.Background())

	p := Poller{
		log:      cfg.Log,
		reader:   cfg.Reader,
		store:    cfg.Store,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		onRead:   cfg.OnRead,
		ctx:      ctx,
		cancel:   cancel,
		shut:     make(chan struct{}),
		refresh:  make(map[display.Source]chan struct{}),
	}

	for _, source := range Sources {
		ch := make(chan struct{}, 1)
		ch <- struct{}{}
		p.refresh[source] = ch
	}

	g := len(Sources)
	p.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	for _, source := range Sources {
		go func(source display.Source) {
			defer p.wg.Done()
			hasStarted <- true
			p.operations(source)
		}(source)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &p
}

// Shutdown terminates the goroutines, abandoning reads in flight.
func (p *Poller) Shutdown() {
	p.log.Infow("readback", "status", "shutdown started")
	defer p.log.Infow("readback", "status", "shutdown completed")

	p.cancel()
	close(p.shut)
	p.wg.Wait()
}

// Signal requests a fresh read of every source. If a read is already
// signaled for a source, that read will pick up the latest value.
func (p *Poller) Signal() {
	for _, ch := range p.refresh {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Read performs one read of the source, posts the result and returns it.
func (p *Poller) Read(ctx context.Context, source display.Source) (string, error) {
	if source != display.SelfRead && source != display.ChildRead {
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	data, err := p.read(ctx, source)
	if p.onRead != nil {
		p.onRead(source, err)
	}

	u := display.Update{Source: source, Kind: display.KindRead, Data: data}
	if err != nil {
		u = display.Update{
			Source: source,
			Kind:   display.KindReadFailed,
			Err:    display.Error{Kind: display.ErrKindRead, Message: err.Error()},
		}
	}

	if perr := p.store.Post(p.ctx, u); perr != nil {
		p.log.Errorw("readback", "status", "post result", "source", source, "ERROR", perr)
	}

	if err != nil {
		return "", err
	}
	return data, nil
}

// =============================================================================

// operations reads the source every interval and whenever signaled.
func (p *Poller) operations(source display.Source) {
	p.log.Infow("readback", "status", "G started", "source", source)
	defer p.log.Infow("readback", "status", "G completed", "source", source)

	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
		case <-p.refresh[source]:
		case <-p.shut:
			return
		}

		if p.isShutdown() {
			return
		}

		if _, err := p.Read(p.ctx, source); err != nil && !p.isShutdown() {
			p.log.Errorw("readback", "status", "read", "source", source, "ERROR", err)
		}
	}
}

// read calls the contract read for the source.
func (p *Poller) read(ctx context.Context, source display.Source) (string, error) {
	if source == display.SelfRead {
		return p.reader.ReadRecentDataFromSelf(ctx)
	}
	return p.reader.ReadRecentChildData(ctx)
}

// isShutdown is used to test if a shutdown has been signaled.
func (p *Poller) isShutdown() bool {
	select {
	case <-p.shut:
		return true
	default:
		return false
	}
}
