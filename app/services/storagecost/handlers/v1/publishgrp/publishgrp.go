// Package publishgrp maintains the group of handlers for publishing data and
// following the display state.
package publishgrp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ardanlabs/storagecost/business/core/display"
	"github.com/ardanlabs/storagecost/business/core/publish"
	"github.com/ardanlabs/storagecost/business/core/readback"
	"github.com/ardanlabs/storagecost/business/sys/validate"
	"github.com/ardanlabs/storagecost/business/web/errs"
	"github.com/ardanlabs/storagecost/foundation/events"
	"github.com/ardanlabs/storagecost/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Store is the display state the handlers read and edit.
type Store interface {
	SetInput(ctx context.Context, text string) (int, error)
	View() display.View
}

// Publisher starts and cancels writes.
type Publisher interface {
	Submit(ctx context.Context, strategy publish.Strategy) (*publish.Task, error)
	Cancel(strategy publish.Strategy) error
}

// Poller performs on demand reads.
type Poller interface {
	Read(ctx context.Context, source display.Source) (string, error)
}

// Handlers manages the set of publish endpoints.
type Handlers struct {
	Log       *zap.SugaredLogger
	Store     Store
	Publisher Publisher
	Poller    Poller
	Evts      *events.Events
	WS        websocket.Upgrader
}

// SetInput replaces the input text and reports its size in bytes.
func (h Handlers) SetInput(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var in Input
	if err := web.Decode(r, &in); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	bytes, err := h.Store.SetInput(ctx, in.Data)
	if err != nil {
		return fmt.Errorf("setting input: %w", err)
	}

	return web.Respond(ctx, w, InputResult{Data: in.Data, Bytes: bytes}, http.StatusOK)
}

// Publish starts a write with the strategy named in the path. A body with
// data sets the input first, so the write uses exactly that text. Without a
// body the current input is written.
func (h Handlers) Publish(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	strategy, err := publish.ParseStrategy(web.Param(r, "strategy"))
	if err != nil {
		return validate.NewFieldsError("strategy", err)
	}

	var in Publish
	if err := web.Decode(r, &in); err != nil && !errors.Is(err, io.EOF) {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if in.Data != nil {
		if _, err := h.Store.SetInput(ctx, *in.Data); err != nil {
			return fmt.Errorf("setting input: %w", err)
		}
	}

	task, err := h.Publisher.Submit(ctx, strategy)
	if err != nil {
		switch {
		case errors.Is(err, publish.ErrEmptyInput):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case errors.Is(err, publish.ErrPending):
			return errs.Conflict(err)
		case errors.Is(err, publish.ErrShutdown):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("submitting %s: %w", strategy, err)
	}

	h.Log.Infow("publish", "traceid", web.GetTraceID(ctx), "task", task.ID, "strategy", strategy)

	resp := Task{
		TaskID:   task.ID,
		Strategy: string(task.Strategy),
		Status:   string(task.Outcome().Status),
		Data:     task.Data,
		Started:  task.Started,
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// Cancel stops waiting on the write in flight for the strategy.
func (h Handlers) Cancel(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	strategy, err := publish.ParseStrategy(web.Param(r, "strategy"))
	if err != nil {
		return validate.NewFieldsError("strategy", err)
	}

	if err := h.Publisher.Cancel(strategy); err != nil {
		if errors.Is(err, publish.ErrNotPending) {
			return errs.NotFound(err)
		}
		return fmt.Errorf("cancelling %s: %w", strategy, err)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Read performs one read of the storage location named in the path.
func (h Handlers) Read(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	name := web.Param(r, "source")

	source, err := readback.ParseSource(name)
	if err != nil {
		return validate.NewFieldsError("source", err)
	}

	data, err := h.Poller.Read(ctx, source)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("reading %s: %w", name, err), http.StatusBadGateway)
	}

	return web.Respond(ctx, w, Read{Source: name, Data: data}, http.StatusOK)
}

// State returns the rendered display state.
func (h Handlers) State(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Store.View(), http.StatusOK)
}

// Events handles a web socket to push every rendered view to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Nothing has been rendered yet, so start the client with the current
	// state.
	if len(ch) == 0 {
		msg, err := json.Marshal(h.Store.View())
		if err != nil {
			return err
		}
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			return nil
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
