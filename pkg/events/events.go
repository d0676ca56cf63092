// Package events defines the typed progress events streamed to clients and
// their Server-Sent Events encoding.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"research/pkg/domain"

	"github.com/go-faster/jx"
)

// Type names an event on the wire.
type Type string

// Event vocabulary. Iterative researches emit the iteration/observation
// family, deep researches the planning/section family; both share started,
// citation, final_report, completed and error.
const (
	TypeStarted        Type = "started"
	TypeIterationStart Type = "iteration_start"
	TypeObservations   Type = "observations"
	TypeGapDetected    Type = "gap_detected"
	TypeToolSelection  Type = "tool_selection"
	TypeToolProgress   Type = "tool_progress"
	TypeFindingsUpdate Type = "findings_update"
	TypePlanning       Type = "planning"
	TypePlanCreated    Type = "plan_created"
	TypeResearchStart  Type = "research_start"
	TypeSectionDraft   Type = "section_draft"
	TypeProgress       Type = "progress"
	TypeFinalizing     Type = "finalizing"
	TypeCitation       Type = "citation"
	TypeFinalReport    Type = "final_report"
	TypeCompleted      Type = "completed"
	TypeError          Type = "error"
)

// Event is one typed progress update. Data is the event-specific payload and
// must marshal to a JSON object.
type Event struct {
	Type Type
	Data any
}

// Emitter delivers one event to a client. Implementations must preserve call
// order; delivery errors abort the research run.
type Emitter func(ctx context.Context, event Event) error

// StartedData announces a research run and echoes its effective parameters.
type StartedData struct {
	Mode           domain.ResearchMode `json:"mode"`
	Query          string              `json:"query"`
	MaxIterations  int                 `json:"maxIterations"`
	MaxTimeMinutes int                 `json:"maxTimeMinutes"`
}

// IterationData marks the start of a research loop iteration.
type IterationData struct {
	Iteration int    `json:"iteration"`
	Message   string `json:"message"`
}

// MessageData carries a single free-text progress line.
type MessageData struct {
	Message string `json:"message"`
}

// ObservationsData carries the agent's reasoning about the state so far.
type ObservationsData struct {
	Content string `json:"content"`
}

// GapData names the knowledge gap the agent decided to address next.
type GapData struct {
	Gap string `json:"gap"`
}

// ToolsData names the tools the agent selected for the current gap.
type ToolsData struct {
	Tools string `json:"tools"`
}

// FindingsData carries new findings collected during an iteration.
type FindingsData struct {
	Findings string `json:"findings"`
}

// SectionDraftData carries a drafted report section (deep mode).
type SectionDraftData struct {
	Section string `json:"section"`
	Draft   string `json:"draft"`
}

// FinalReportData carries the finished report with extracted citations.
// Iterations is only set for iterative runs.
type FinalReportData struct {
	Report     string            `json:"report"`
	Citations  []domain.Citation `json:"citations"`
	Iterations int               `json:"iterations,omitempty"`
}

// ErrorData describes a failed run.
type ErrorData struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// Started constructs the initial event of every stream.
func Started(mode domain.ResearchMode, query string, maxIterations, maxTimeMinutes int) Event {
	return Event{Type: TypeStarted, Data: StartedData{
		Mode:           mode,
		Query:          query,
		MaxIterations:  maxIterations,
		MaxTimeMinutes: maxTimeMinutes,
	}}
}

// IterationStart constructs an iteration_start event.
func IterationStart(iteration int, message string) Event {
	return Event{Type: TypeIterationStart, Data: IterationData{Iteration: iteration, Message: message}}
}

// Observations constructs an observations event.
func Observations(content string) Event {
	return Event{Type: TypeObservations, Data: ObservationsData{Content: content}}
}

// GapDetected constructs a gap_detected event.
func GapDetected(gap string) Event {
	return Event{Type: TypeGapDetected, Data: GapData{Gap: gap}}
}

// ToolSelection constructs a tool_selection event.
func ToolSelection(tools string) Event {
	return Event{Type: TypeToolSelection, Data: ToolsData{Tools: tools}}
}

// ToolProgress constructs a tool_progress event.
func ToolProgress(message string) Event {
	return Event{Type: TypeToolProgress, Data: MessageData{Message: message}}
}

// FindingsUpdate constructs a findings_update event.
func FindingsUpdate(findings string) Event {
	return Event{Type: TypeFindingsUpdate, Data: FindingsData{Findings: findings}}
}

// Planning constructs a planning event.
func Planning() Event {
	return Event{Type: TypePlanning, Data: MessageData{Message: "Creating report outline..."}}
}

// PlanCreated constructs a plan_created event.
func PlanCreated(message string) Event {
	return Event{Type: TypePlanCreated, Data: MessageData{Message: message}}
}

// ResearchStart constructs a research_start event.
func ResearchStart() Event {
	return Event{Type: TypeResearchStart, Data: MessageData{Message: "Starting parallel section research..."}}
}

// SectionDraft constructs a section_draft event.
func SectionDraft(section, draft string) Event {
	return Event{Type: TypeSectionDraft, Data: SectionDraftData{Section: section, Draft: draft}}
}

// Progress constructs a progress event.
func Progress(message string) Event {
	return Event{Type: TypeProgress, Data: MessageData{Message: message}}
}

// Finalizing constructs a finalizing event.
func Finalizing(message string) Event {
	return Event{Type: TypeFinalizing, Data: MessageData{Message: message}}
}

// CitationFound constructs a citation event.
func CitationFound(citation domain.Citation) Event {
	return Event{Type: TypeCitation, Data: citation}
}

// FinalReport constructs a final_report event.
func FinalReport(report string, citations []domain.Citation, iterations int) Event {
	if citations == nil {
		citations = []domain.Citation{}
	}

	return Event{Type: TypeFinalReport, Data: FinalReportData{
		Report:     report,
		Citations:  citations,
		Iterations: iterations,
	}}
}

// Completed constructs the terminal event of a successful stream.
func Completed(message string) Event {
	return Event{Type: TypeCompleted, Data: MessageData{Message: message}}
}

// Failed constructs the terminal event of a failed stream. kind should be the
// semantic error kind name, matching the original payload's exception type slot.
func Failed(err error, kind string) Event {
	return Event{Type: TypeError, Data: ErrorData{Error: err.Error(), Type: kind}}
}

// Encode renders the event as its single JSON wire object
// {"type": ..., "data": ...}.
func (e Event) Encode() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("could not marshal %s payload: %w", e.Type, err)
	}

	var enc jx.Encoder
	enc.ObjStart()
	enc.FieldStart("type")
	enc.Str(string(e.Type))
	enc.FieldStart("data")
	enc.Raw(payload)
	enc.ObjEnd()

	return enc.Bytes(), nil
}
