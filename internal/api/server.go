// Package api configures and exposes the HTTP server, routes, metrics, docs
// and related middleware for the research service.
package api

import (
	_ "embed"
	"fmt"
	"net/http"
	"research/internal/api/handler/v1handler"
	"research/internal/config"
	"research/pkg/controller"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
)

// v1Spec contains the embedded OpenAPI specification for version 1 of the API.
//
//go:embed specs/v1.yaml
var v1Spec []byte

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
// All durations are used to configure server timeouts, and zero values
// should be considered as using the defaults provided by net/http where applicable.
type Options struct {
	// SecHandlerOptions configures the security handler (authn/authz) for v1 endpoints.
	SecHandlerOptions *v1handler.SecHandlerOptions

	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must exceed the research time cap or streams get cut off.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the timeout applied via http.TimeoutHandler to the
	// non-streaming routes. The streaming route is mounted outside it.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
}

// NewOptions constructs an Options value from the provided application configuration.
// It maps HTTP server-related settings from config.Config to the Options used by the API server.
func NewOptions(cfg *config.Config) Options {
	return Options{
		SecHandlerOptions: v1handler.NewSecHandlerOptions(cfg),

		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
	}
}

type Deps struct {
	v1handler.Deps
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// It sets up:
// - Prometheus metrics endpoint (MetricsPath)
// - Embedded OpenAPI v1 spec and Swagger UI
// - v1 API routes behind bearer authentication
// - the SSE streaming route, mounted outside the request timeout
// - pprof endpoints for profiling
// It also wraps everything with CORS and logging middlewares.
func NewServer(deps Deps, opts Options) (*http.Server, error) {
	handler := v1handler.New(deps.Deps)

	secHandler, err := v1handler.NewSecHandler(opts.SecHandlerOptions)
	if err != nil {
		return nil, fmt.Errorf("could not create sec handler: %w", err)
	}

	mux := http.NewServeMux()

	// public service descriptor and health probe
	mux.HandleFunc("GET /{$}", handler.Root)
	mux.HandleFunc("GET /health", handler.Health)

	// prometheus metrics server
	mux.Handle(opts.MetricsPath, promhttp.Handler())

	// v1 specs file
	mux.HandleFunc("/specs/v1.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(v1Spec)
	})
	// v1 api swagger playground
	mux.Handle("/v1/docs/", v5emb.New(
		"Deep Research Service",
		"/specs/v1.yaml",
		"/v1/docs/",
	))

	// v1 api
	mux.Handle("POST /v1/research", secHandler.WithAuth(http.HandlerFunc(handler.CreateResearch)))
	mux.Handle("GET /v1/research", secHandler.WithAuth(http.HandlerFunc(handler.ListResearches)))
	mux.Handle("GET /v1/research/{id}", secHandler.WithAuth(http.HandlerFunc(handler.GetResearch)))
	mux.Handle("DELETE /v1/research/{id}", secHandler.WithAuth(http.HandlerFunc(handler.DeleteResearch)))

	// pprof
	mux.Handle("/debug/pprof/", controller.PprofMux())

	// The streaming route bypasses the request timeout: a research run is
	// allowed to stream for up to an hour while every other route stays
	// tightly bounded.
	root := http.NewServeMux()
	root.Handle("POST /v1/research/stream",
		secHandler.WithAuth(http.HandlerFunc(handler.StreamResearch)))
	root.Handle("/", http.TimeoutHandler(mux, opts.RequestTimeout, `{"error":"request timed out"}`))

	// cors
	h := controller.WithCORS(root)

	// logger
	h = controller.WithLogger(h)

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}, nil
}
