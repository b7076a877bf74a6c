// Package web contains a small web framework extension.
package web

import (
	"context"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// A Handler is a type that handles a http request within our own little mini
// framework.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// App is the entrypoint into our application and what configures our context
// object for each of our http handlers. Feel free to add any configuration
// data/logic on this App struct.
type App struct {
	*httptreemux.ContextMux
	shutdown chan os.Signal
	tracer   trace.Tracer
	mw       []Middleware
}

// NewApp creates an App value that handle a set of routes for the application.
func NewApp(shutdown chan os.Signal, tracer trace.Tracer, mw ...Middleware) *App {
	return &App{
		ContextMux: httptreemux.NewContextMux(),
		shutdown:   shutdown,
		tracer:     tracer,
		mw:         mw,
	}
}

// SignalShutdown is used to gracefully shut down the app when an integrity
// issue is identified.
func (a *App) SignalShutdown() {
	a.shutdown <- syscall.SIGTERM
}

// Handle sets a handler function for a given HTTP method and path pair
// to the application server mux.
func (a *App) Handle(method string, group string, path string, handler Handler, mw ...Middleware) {

	// First wrap handler specific middleware around this handler.
	handler = wrapMiddleware(mw, handler)

	// Add the application's general middleware to the handler chain.
	handler = wrapMiddleware(a.mw, handler)

	// The function to execute for each request.
	h := func(w http.ResponseWriter, r *http.Request) {
		ctx, span := a.startSpan(r)
		defer span.End()

		// Set the context with the required values to
		// process the request.
		v := Values{
			TraceID: traceID(span),
			Now:     time.Now().UTC(),
		}
		ctx = context.WithValue(ctx, key, &v)

		// Call the wrapped handler functions.
		if err := handler(ctx, w, r); err != nil {
			if IsShutdown(err) {
				a.SignalShutdown()
				return
			}
		}
	}

	finalPath := path
	if group != "" {
		finalPath = "/" + group + path
	}

	a.ContextMux.Handle(method, finalPath, h)
}

// startSpan initializes the request by adding a span and writing otel
// related information into the response writer for the response.
func (a *App) startSpan(r *http.Request) (context.Context, trace.Span) {
	ctx, span := a.tracer.Start(r.Context(), "pkg.web.handle")
	span.SetAttributes(
		attribute.String("method", r.Method),
		attribute.String("endpoint", r.RequestURI),
	)

	return ctx, span
}

// traceID returns the span trace id when tracing is enabled. A noop tracer
// produces invalid ids, in which case a random uuid is used.
func traceID(span trace.Span) string {
	sc := span.SpanContext()
	if sc.TraceID().IsValid() {
		return sc.TraceID().String()
	}

	return uuid.NewString()
}
