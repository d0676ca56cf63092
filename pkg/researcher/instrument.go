package researcher

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/smhanov/laconic"
)

// probe is shared by the instrumented providers of one run. It narrates the
// agent's progress through the LogFunc and collects synthesized findings for
// citation extraction. Providers may be called from multiple goroutines in
// deep mode, hence the mutex.
type probe struct {
	log LogFunc

	mu        sync.Mutex
	iteration int
	findings  []string
}

func (p *probe) logf(format string, args ...any) {
	if p.log != nil {
		p.log(fmt.Sprintf(format, args...))
	}
}

func (p *probe) nextIteration() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.iteration++

	return p.iteration
}

func (p *probe) addFinding(finding string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.findings = append(p.findings, finding)
}

func (p *probe) Findings() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.findings...)
}

var plannerQueryRegex = regexp.MustCompile(`(?i)query\s*:\s*(.+)`)

// summarizeDecision pulls a human-readable thought and, when the planner
// requested a search, its query out of the planner's raw response.
func summarizeDecision(raw string) (thought, query string) {
	if m := plannerQueryRegex.FindStringSubmatch(raw); len(m) == 2 {
		query = strings.TrimSpace(m[1])
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "action") || strings.HasPrefix(lower, "query") {
			continue
		}
		thought = line

		break
	}

	return thought, query
}

// loggingPlanner wraps the planner model, narrating each loop iteration.
type loggingPlanner struct {
	next laconic.LLMProvider
	pr   *probe
}

func (l *loggingPlanner) Generate(ctx context.Context, systemPrompt, userPrompt string) (laconic.LLMResponse, error) {
	l.pr.logf("=== Starting Iteration %d ===", l.pr.nextIteration())

	resp, err := l.next.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return resp, err
	}

	thought, query := summarizeDecision(resp.Text)
	if thought != "" {
		l.pr.logf("<thought>%s</thought>", thought)
	}
	if query != "" {
		l.pr.logf("<task>%s</task>", query)
		l.pr.logf("<action>WebSearch: %s</action>", query)
	} else {
		l.pr.logf("<action>Answer</action>")
	}

	return resp, nil
}

// loggingSynthesizer wraps the synthesizer model and records its compressed
// knowledge as findings.
type loggingSynthesizer struct {
	next laconic.LLMProvider
	pr   *probe
}

func (l *loggingSynthesizer) Generate(ctx context.Context, systemPrompt, userPrompt string) (laconic.LLMResponse, error) {
	resp, err := l.next.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return resp, err
	}

	if finding := strings.TrimSpace(resp.Text); finding != "" {
		l.pr.addFinding(finding)
		l.pr.logf("<findings>%s</findings>", finding)
	}

	return resp, nil
}

// loggingFinalizer wraps the finalizer model.
type loggingFinalizer struct {
	next laconic.LLMProvider
	pr   *probe
}

func (l *loggingFinalizer) Generate(ctx context.Context, systemPrompt, userPrompt string) (laconic.LLMResponse, error) {
	l.pr.logf("Drafting Final Response")

	return l.next.Generate(ctx, systemPrompt, userPrompt)
}

// loggingSearcher wraps the search provider, narrating tool execution.
type loggingSearcher struct {
	next laconic.SearchProvider
	pr   *probe
}

func (l *loggingSearcher) Search(ctx context.Context, query string) ([]laconic.SearchResult, error) {
	l.pr.logf("Tool execution progress: web search %q started", query)

	results, err := l.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	l.pr.logf("Tool execution progress: web search %q returned %d results", query, len(results))

	return results, nil
}
