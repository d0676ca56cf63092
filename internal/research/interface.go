// Package research orchestrates research runs: it validates requests, streams
// typed progress events to clients, enqueues background runs and manages the
// stored research history.
package research

import (
	"context"
	"research/pkg/domain"
	"research/pkg/events"
)

// Request is an incoming research request before validation. Normalize applies
// the documented defaults and bounds.
type Request struct {
	// Query is the research question or topic.
	Query string `json:"query"`
	// Mode selects the iterative or deep researcher. Defaults to iterative.
	Mode domain.ResearchMode `json:"mode"`
	// MaxIterations bounds the research loop, 1 to 20. Defaults to 5.
	MaxIterations int `json:"maxIterations"`
	// MaxTimeMinutes bounds the run duration, 1 to 60. Defaults to 10.
	MaxTimeMinutes int `json:"maxTimeMinutes"`
	// OutputLength is the desired report length. Defaults to "5 pages".
	OutputLength string `json:"outputLength"`
	// BackgroundContext is prior knowledge handed to the researcher.
	BackgroundContext string `json:"backgroundContext"`
}

//go:generate mockgen -package mockresearch -source=interface.go -destination=mock/mockresearch.go *
type Service interface {
	// Stream validates the request, runs the research and delivers progress
	// events through emit until the terminal completed or error event. The
	// outcome is persisted either way.
	Stream(ctx context.Context, userID domain.UserID, req Request, emit events.Emitter) error
	// Enqueue validates the request and schedules a background run, returning
	// the stored row. Duplicate (query, mode) pairs share one job; a fresh
	// completed result satisfies the new row immediately.
	Enqueue(ctx context.Context, userID domain.UserID, req Request) (*domain.Research, error)
	// UserResearches returns a page of the user's history, newest first, with
	// an RFC3339 cursor for the next page.
	UserResearches(ctx context.Context,
		userID domain.UserID,
		status domain.ResearchStatus,
		cursor string,
		limit uint) ([]domain.Research, string, error)
	// Process runs one queued job to completion and copies the outcome onto
	// every pending row for the job's (query, mode). It is called by the
	// background worker, never by handlers.
	Process(ctx context.Context, args JobArgs) error
	// Result fetches one research by ID.
	Result(ctx context.Context, userID domain.UserID, id domain.ResearchID) (*domain.Research, error)
	// Delete soft-deletes one research by ID.
	Delete(ctx context.Context, userID domain.UserID, id domain.ResearchID) error
}
