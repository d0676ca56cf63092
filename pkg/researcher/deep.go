package researcher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"research/pkg/serrors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultSectionConcurrency = 3
	maxPlanSections           = 6
)

const planSystemPrompt = "You are a research editor. Given a research topic, " +
	"produce an outline of the report as a numbered list of section titles, " +
	"one per line, nothing else. Use between 3 and 6 sections."

const assembleSystemPrompt = "You are a research writer. Assemble the drafted " +
	"sections into one coherent report in markdown. Keep every source URL " +
	"that appears in the drafts. Do not invent new facts."

// Deep researches a topic section by section: the fast model plans the report
// outline, one iterative research loop runs per section with bounded
// concurrency, and the main model assembles the final report.
type Deep struct {
	cfg  LLMConfig
	opts options
}

// NewDeep constructs a deep researcher.
func NewDeep(cfg LLMConfig, opts ...Option) *Deep {
	return &Deep{cfg: cfg, opts: newOptions(opts)}
}

func (r *Deep) logf(format string, args ...any) {
	if r.opts.log != nil {
		r.opts.log(fmt.Sprintf(format, args...))
	}
}

// Run executes the plan/research/assemble pipeline within the request's time budget.
func (r *Deep) Run(ctx context.Context, req Request) (Report, error) {
	if req.MaxTimeMinutes > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.MaxTimeMinutes)*time.Minute)
		defer cancel()
	}

	sections, planCost, err := r.plan(ctx, req)
	if err != nil {
		return Report{}, err
	}

	r.logf("Initializing Research Loops for %d sections", len(sections))

	drafts := make([]string, len(sections))
	findings := make([][]string, len(sections))
	costs := make([]float64, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.concurrency)
	for i, section := range sections {
		g.Go(func() error {
			start := time.Now()

			sub := NewIterative(r.cfg, WithLogFunc(r.opts.log), WithHTTPClient(r.opts.httpClient), WithSearcher(r.opts.searcher))
			report, err := sub.Run(gctx, Request{
				Query:             fmt.Sprintf("%s\n\nFocus on the report section %q.", req.Query, section),
				MaxIterations:     req.MaxIterations,
				BackgroundContext: req.BackgroundContext,
			})
			if err != nil {
				return fmt.Errorf("could not research section %q: %w", section, err)
			}

			drafts[i] = report.Text
			findings[i] = report.Findings
			costs[i] = report.Cost

			r.logf("<draft>%s\n%s</draft>", section, report.Text)
			r.logf("Section %q completed in %s", section, time.Since(start).Round(time.Second))

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Report{}, serrors.Wrap(serrors.ErrTimeout, err, "research exceeded %d minutes", req.MaxTimeMinutes)
		}

		return Report{}, err
	}

	r.logf("Building Final Report")

	text, assembleCost, err := r.assemble(ctx, req, sections, drafts)
	if err != nil {
		return Report{}, err
	}

	report := Report{Text: text, Cost: planCost + assembleCost}
	for i := range sections {
		report.Findings = append(report.Findings, findings[i]...)
		report.Cost += costs[i]
	}

	return report, nil
}

// plan asks the fast model for a section outline.
func (r *Deep) plan(ctx context.Context, req Request) ([]string, float64, error) {
	r.logf("Building Report Plan")

	prompt := fmt.Sprintf("Topic: %s", req.Query)
	if req.OutputLength != "" {
		prompt = fmt.Sprintf("%s\nDesired report length: %s.", prompt, req.OutputLength)
	}
	if req.BackgroundContext != "" {
		prompt = fmt.Sprintf("%s\nBackground: %s", prompt, req.BackgroundContext)
	}

	resp, err := r.cfg.newModel(r.cfg.FastModel, r.opts.httpClient).Generate(ctx, planSystemPrompt, prompt)
	if err != nil {
		return nil, 0, fmt.Errorf("could not plan report sections: %w", err)
	}

	sections := parseSections(resp.Text)
	if len(sections) == 0 {
		// unusable outline, research the topic as a single section
		sections = []string{req.Query}
	}

	r.logf("Report plan created with %d sections", len(sections))

	return sections, resp.Cost, nil
}

// assemble merges the section drafts into the final report with the main model.
func (r *Deep) assemble(ctx context.Context, req Request, sections, drafts []string) (string, float64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", req.Query)
	if req.OutputLength != "" {
		fmt.Fprintf(&b, "Desired report length: %s.\n", req.OutputLength)
	}
	for i, section := range sections {
		fmt.Fprintf(&b, "\n## %s\n%s\n", section, drafts[i])
	}

	resp, err := r.cfg.newModel(r.cfg.MainModel, r.opts.httpClient).Generate(ctx, assembleSystemPrompt, b.String())
	if err != nil {
		return "", 0, fmt.Errorf("could not assemble final report: %w", err)
	}

	return resp.Text, resp.Cost, nil
}

var sectionLineRegex = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s+(.+)$`)

// parseSections reads section titles out of a numbered or bulleted outline.
func parseSections(outline string) []string {
	var sections []string
	for _, line := range strings.Split(outline, "\n") {
		m := sectionLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if title := strings.TrimSpace(m[1]); title != "" {
			sections = append(sections, title)
		}
		if len(sections) == maxPlanSections {
			break
		}
	}

	return sections
}
