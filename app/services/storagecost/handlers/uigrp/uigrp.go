// Package uigrp serves the page used to publish data and watch the results.
package uigrp

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/ardanlabs/storagecost/foundation/web"
)

//go:embed assets/index.html
var assets embed.FS

// Strategy is one publish button on the page.
type Strategy struct {
	Name   string
	Source string
	Label  string
	Why    string
}

// strategies lists the buttons in display order.
var strategies = []Strategy{
	{
		Name:   "event",
		Source: "event_emit",
		Label:  "Publish as event data",
		Why: "This is by far the cheapest option when it comes to putting data onchain. The big caveat is that event " +
			"data can not be used from within the chain. No composability is possible. This is an ideal storage " +
			"place for any data that you do not need to change but you do want to protect from censorship.",
	},
	{
		Name:   "self",
		Source: "self_write",
		Label:  "Publish as contract data",
		Why: "This is not cheap but it is ideal for any data that needs some composability. For instance, a SVG NFT " +
			"project that builds the asset from stored SVG fragments each time the URI is requested would need to " +
			"store the data in this or the next way.",
	},
	{
		Name:   "child",
		Source: "child_write",
		Label:  "Publish as separate contract",
		Why: "Storing content in its own contract is generally the most expensive solution listed here but it " +
			"comes with a few extra benefits on top of all the benefits listed in the last method. You can deploy " +
			"the contract with whatever logic you need to shape the data while also being careful not to exceed " +
			"constraints based on gas limits. This is the most composable way of storing data.",
	},
}

// Handlers manages the page endpoint.
type Handlers struct {
	tmpl     *template.Template
	contract string
	account  string
}

// New parses the page template.
func New(contract string, account string) (*Handlers, error) {
	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}

	h := Handlers{
		tmpl:     tmpl,
		contract: contract,
		account:  account,
	}

	return &h, nil
}

// Index renders the page.
func (h *Handlers) Index(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	data := struct {
		Contract   string
		Account    string
		Strategies []Strategy
	}{
		Contract:   h.contract,
		Account:    h.account,
		Strategies: strategies,
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing index template: %w", err)
	}

	if err := web.SetStatusCode(ctx, http.StatusOK); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	return nil
}
