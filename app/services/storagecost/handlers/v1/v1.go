// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/storagecost/app/services/storagecost/handlers/v1/publishgrp"
	"github.com/ardanlabs/storagecost/foundation/events"
	"github.com/ardanlabs/storagecost/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log       *zap.SugaredLogger
	Store     publishgrp.Store
	Publisher publishgrp.Publisher
	Poller    publishgrp.Poller
	Evts      *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	pgh := publishgrp.Handlers{
		Log:       cfg.Log,
		Store:     cfg.Store,
		Publisher: cfg.Publisher,
		Poller:    cfg.Poller,
		Evts:      cfg.Evts,
	}

	app.Handle(http.MethodPut, version, "/input", pgh.SetInput)
	app.Handle(http.MethodPost, version, "/publish/:strategy", pgh.Publish)
	app.Handle(http.MethodDelete, version, "/publish/:strategy", pgh.Cancel)
	app.Handle(http.MethodGet, version, "/read/:source", pgh.Read)
	app.Handle(http.MethodGet, version, "/state", pgh.State)
	app.Handle(http.MethodGet, version, "/events", pgh.Events)
}
