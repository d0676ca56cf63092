package research

import (
	"context"
	"research/pkg/domain"
	"research/pkg/events"
	"research/pkg/logger"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// interceptor translates the researcher's free-text log lines into typed
// events by substring matching. The contract is deliberately the library's
// human-readable log text; unmatched lines produce no event. Every line is
// also forwarded to the zap logger at debug level.
//
// Emission is synchronous so clients see events in log order. When emission
// fails (client gone), the interceptor cancels the research run.
type interceptor struct {
	mode   domain.ResearchMode
	emit   events.Emitter
	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes matching and emission: in deep mode the section workers
	// all log through the same interceptor concurrently.
	mu        sync.Mutex
	iteration int
	failed    error
}

func newInterceptor(ctx context.Context,
	cancel context.CancelFunc,
	mode domain.ResearchMode,
	emit events.Emitter) *interceptor {
	return &interceptor{mode: mode, emit: emit, ctx: ctx, cancel: cancel}
}

// Log is installed as the researcher's LogFunc.
func (ic *interceptor) Log(line string) {
	logger.Debug(ic.ctx, "Researcher log", zap.String("line", line))

	ic.mu.Lock()
	defer ic.mu.Unlock()

	event, ok := ic.match(line)
	if !ok {
		return
	}

	if err := ic.emit(ic.ctx, event); err != nil {
		if ic.failed == nil {
			ic.failed = err
		}
		// stop the run, nobody is listening anymore
		ic.cancel()
	}
}

// Err reports the first emission failure, if any.
func (ic *interceptor) Err() error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	return ic.failed
}

// Iterations reports how many loop iterations were observed.
func (ic *interceptor) Iterations() int {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	return ic.iteration
}

func (ic *interceptor) match(line string) (events.Event, bool) {
	if ic.mode == domain.ModeDeep {
		return ic.matchDeep(line)
	}

	return ic.matchIterative(line)
}

func (ic *interceptor) matchIterative(line string) (events.Event, bool) {
	switch {
	case strings.Contains(line, "Starting Iteration"):
		ic.iteration++

		return events.IterationStart(ic.iteration, line), true
	case strings.Contains(line, "<thought>"):
		return events.Observations(stripTag(line, "thought")), true
	case strings.Contains(line, "<task>"):
		return events.GapDetected(stripTag(line, "task")), true
	case strings.Contains(line, "<action>"):
		return events.ToolSelection(stripTag(line, "action")), true
	case strings.Contains(line, "Tool execution progress"):
		return events.ToolProgress(line), true
	case strings.Contains(line, "<findings>"):
		return events.FindingsUpdate(stripTag(line, "findings")), true
	case strings.Contains(line, "Drafting Final Response"):
		return events.Finalizing("Creating final report..."), true
	}

	return events.Event{}, false
}

func (ic *interceptor) matchDeep(line string) (events.Event, bool) {
	switch {
	case strings.Contains(line, "Building Report Plan"):
		return events.Planning(), true
	case strings.Contains(line, "Report plan created with"):
		return events.PlanCreated(line), true
	case strings.Contains(line, "Initializing Research Loops"):
		return events.ResearchStart(), true
	case strings.Contains(line, "<draft>"):
		section, draft := splitDraft(stripTag(line, "draft"))

		return events.SectionDraft(section, draft), true
	case strings.Contains(line, "Building Final Report"):
		return events.Finalizing("Compiling final report..."), true
	case strings.Contains(line, "completed in"):
		return events.Progress(line), true
	}

	return events.Event{}, false
}

// stripTag removes the <tag>...</tag> wrapper and trims whitespace.
func stripTag(line, tag string) string {
	line = strings.ReplaceAll(line, "<"+tag+">", "")
	line = strings.ReplaceAll(line, "</"+tag+">", "")

	return strings.TrimSpace(line)
}

// splitDraft separates a draft line into its section title (first line) and
// the draft body.
func splitDraft(s string) (section, draft string) {
	section, draft, found := strings.Cut(s, "\n")
	if !found {
		return strings.TrimSpace(s), ""
	}

	return strings.TrimSpace(section), strings.TrimSpace(draft)
}
