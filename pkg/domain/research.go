package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResearchID uniquely identifies a research request.
// It wraps uuid.UUID to provide type safety at the domain layer.
type ResearchID uuid.UUID

// ResearchMode selects which researcher runs a request.
type ResearchMode string

const (
	// ModeIterative runs the single iterative research loop. Faster, shorter reports.
	ModeIterative ResearchMode = "iterative"
	// ModeDeep plans report sections and researches them in parallel. Slower, longer reports.
	ModeDeep ResearchMode = "deep"
)

// ResearchStatus represents the lifecycle state of a research request.
type ResearchStatus string

const (
	// StatusPending indicates the research has been enqueued but not started yet.
	StatusPending ResearchStatus = "PENDING"
	// StatusRunning indicates the research is currently streaming to a client.
	StatusRunning ResearchStatus = "RUNNING"
	// StatusCompleted indicates the research finished and a report is available.
	StatusCompleted ResearchStatus = "COMPLETED"
	// StatusFailed indicates the research ended with an error; see LastError and Attempts.
	StatusFailed ResearchStatus = "FAILED"
)

// Citation is a best-effort source reference scraped from the researcher's
// free-text findings or from the final report.
type Citation struct {
	// ID is a sequential number starting at 1 within one research run.
	ID int `json:"id"`
	// URL is the source address as it appeared in the text.
	URL string `json:"url"`
	// Title is a heuristic title: markdown link text or the sentence fragment
	// preceding the URL, falling back to the URL itself.
	Title string `json:"title"`
	// SourceType is currently always "web".
	SourceType string `json:"sourceType"`
	// Snippet is the surrounding finding text, truncated.
	Snippet string `json:"snippet"`
}

// ResearchResult holds the outcome of a completed research run.
type ResearchResult struct {
	// Report is the final report text produced by the research library.
	Report string `json:"report,omitempty"`
	// Citations are the sources extracted from findings or the report.
	Citations []Citation `json:"citations,omitempty"`
	// Iterations is the number of research loop iterations observed.
	Iterations int `json:"iterations,omitempty"`
	// Cost is the accumulated model cost in dollars, when the provider reports it.
	Cost float64 `json:"cost,omitempty"`
}

// Research represents a single research request and its current state.
type Research struct {
	// ID is the unique identifier of the research request.
	ID ResearchID `json:"id"`
	// UserID identifies the user who submitted the request.
	UserID UserID `json:"userId"`

	// Query is the research question or topic.
	Query string `json:"query"`
	// Mode selects the iterative or deep researcher.
	Mode ResearchMode `json:"mode"`
	// Status is the current lifecycle state.
	Status ResearchStatus `json:"status"`
	// Result contains the latest known outcome.
	Result ResearchResult `json:"result"`

	// Attempts is the number of processing attempts made so far.
	Attempts uint `json:"attempts"`
	// LastError stores the most recent processing error message, if any.
	LastError string `json:"-"`

	// CreatedAt is when the request was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is when the request last changed (status or result).
	UpdatedAt time.Time `json:"updatedAt"`
	// DeletedAt marks a soft delete; zero value means not deleted.
	DeletedAt time.Time `json:"-"`
}
