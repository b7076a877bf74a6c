// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ardanlabs/storagecost/app/services/storagecost/handlers/debug/checkgrp"
	"github.com/ardanlabs/storagecost/app/services/storagecost/handlers/uigrp"
	v1 "github.com/ardanlabs/storagecost/app/services/storagecost/handlers/v1"
	"github.com/ardanlabs/storagecost/app/services/storagecost/handlers/v1/publishgrp"
	"github.com/ardanlabs/storagecost/business/web/mid"
	"github.com/ardanlabs/storagecost/foundation/events"
	"github.com/ardanlabs/storagecost/foundation/web"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown   chan os.Signal
	Log        *zap.SugaredLogger
	Tracer     trace.Tracer
	CORSOrigin string
	Contract   string
	Account    string
	Store      publishgrp.Store
	Publisher  publishgrp.Publisher
	Poller     publishgrp.Poller
	Evts       *events.Events
}

// PublicMux constructs a http.Handler with all application routes defined.
func PublicMux(cfg MuxConfig) (http.Handler, error) {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		cfg.Tracer,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Cors(cfg.CORSOrigin),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests. The Cors middleware above
	// sets the headers.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
	app.Handle(http.MethodOptions, "", "/*", h)

	// Register the page.
	ui, err := uigrp.New(cfg.Contract, cfg.Account)
	if err != nil {
		return nil, fmt.Errorf("loading ui: %w", err)
	}
	app.Handle(http.MethodGet, "", "/", ui.Index)

	// Load the v1 routes.
	v1.Routes(app, v1.Config{
		Log:       cfg.Log,
		Store:     cfg.Store,
		Publisher: cfg.Publisher,
		Poller:    cfg.Poller,
		Evts:      cfg.Evts,
	})

	return app, nil
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service.
func DebugMux(build string, log *zap.SugaredLogger, node checkgrp.Node) http.Handler {
	mux := DebugStandardLibraryMux()

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		Node:  node,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	return mux
}
