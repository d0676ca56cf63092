// Package researcher wraps the laconic research agent. It exposes two
// researchers (iterative and deep) that surface their progress as free-text
// log lines through an installed LogFunc, the same way the agent library
// reports progress to humans. Callers that need structured progress pattern-
// match those lines.
package researcher

import (
	"context"
	"net/http"

	"github.com/smhanov/laconic"
)

// LogFunc receives every progress line a researcher produces, in order.
type LogFunc func(line string)

// Request carries the validated parameters of one research run.
type Request struct {
	// Query is the research question or topic.
	Query string
	// MaxIterations bounds the research loop.
	MaxIterations int
	// MaxTimeMinutes bounds the wall-clock duration of the run.
	MaxTimeMinutes int
	// OutputLength is a free-form desired report length, e.g. "5 pages".
	OutputLength string
	// BackgroundContext is prior knowledge handed to the agent.
	BackgroundContext string
}

// Report is the outcome of a research run.
type Report struct {
	// Text is the final report.
	Text string
	// Findings are the raw synthesized knowledge snippets collected during
	// the run, used for citation extraction.
	Findings []string
	// Cost is the accumulated model cost in dollars, when reported.
	Cost float64
}

// Researcher runs one research request to completion.
//
//go:generate mockgen -typed -package mockresearcher -destination ./mock/researcher.go . Researcher
type Researcher interface {
	Run(ctx context.Context, req Request) (Report, error)
}

// Option configures a researcher.
type Option func(*options)

type options struct {
	log         LogFunc
	httpClient  *http.Client
	searcher    laconic.SearchProvider
	concurrency int
}

// WithLogFunc installs the progress line sink.
func WithLogFunc(log LogFunc) Option {
	return func(o *options) { o.log = log }
}

// WithHTTPClient overrides the HTTP client used for model and fetch calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithSearcher overrides the search provider selected by the LLM config.
func WithSearcher(searcher laconic.SearchProvider) Option {
	return func(o *options) { o.searcher = searcher }
}

// WithSectionConcurrency bounds how many report sections a deep researcher
// works on in parallel.
func WithSectionConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{concurrency: defaultSectionConcurrency}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
