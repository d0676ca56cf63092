package researcher

import (
	"context"
	"errors"
	"fmt"
	"research/pkg/serrors"
	"time"

	"github.com/smhanov/laconic"
	"github.com/smhanov/laconic/fetch"
)

// Iterative runs a single laconic research loop: plan, search, synthesize,
// repeat, then draft the final response. The reasoning model plans, the fast
// model synthesizes and the main model writes the report.
type Iterative struct {
	cfg  LLMConfig
	opts options
}

// NewIterative constructs an iterative researcher.
func NewIterative(cfg LLMConfig, opts ...Option) *Iterative {
	return &Iterative{cfg: cfg, opts: newOptions(opts)}
}

// Run executes the research loop within the request's time budget.
func (r *Iterative) Run(ctx context.Context, req Request) (Report, error) {
	searcher := r.opts.searcher
	if searcher == nil {
		var err error
		if searcher, err = r.cfg.newSearcher(); err != nil {
			return Report{}, fmt.Errorf("could not build search provider: %w", err)
		}
	}

	pr := &probe{log: r.opts.log}
	agent := laconic.New(
		laconic.WithPlannerModel(&loggingPlanner{next: r.cfg.newModel(r.cfg.ReasoningModel, r.opts.httpClient), pr: pr}),
		laconic.WithSynthesizerModel(&loggingSynthesizer{next: r.cfg.newModel(r.cfg.FastModel, r.opts.httpClient), pr: pr}),
		laconic.WithFinalizerModel(&loggingFinalizer{next: r.cfg.newModel(r.cfg.MainModel, r.opts.httpClient), pr: pr}),
		laconic.WithSearchProvider(&loggingSearcher{next: searcher, pr: pr}),
		laconic.WithFetchProvider(fetch.NewHTTP()),
		laconic.WithMaxIterations(req.MaxIterations),
	)

	if req.MaxTimeMinutes > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.MaxTimeMinutes)*time.Minute)
		defer cancel()
	}

	question := req.Query
	if req.OutputLength != "" {
		question = fmt.Sprintf("%s\n\nDesired output length: %s.", question, req.OutputLength)
	}

	var answerOpts []laconic.AnswerOption
	if req.BackgroundContext != "" {
		answerOpts = append(answerOpts, laconic.WithKnowledge(req.BackgroundContext))
	}

	result, err := agent.Answer(ctx, question, answerOpts...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Report{}, serrors.Wrap(serrors.ErrTimeout, err, "research exceeded %d minutes", req.MaxTimeMinutes)
		}

		return Report{}, fmt.Errorf("could not run research agent: %w", err)
	}

	return Report{Text: result.Answer, Findings: pr.Findings(), Cost: result.Cost}, nil
}
