package storage

import (
	"context"
	"research/pkg/domain"
	"time"
)

// ResearchUpdates describes the optional fields applied to existing research
// rows during an update. Only provided fields change.
type ResearchUpdates struct {
	// Status is the new lifecycle status.
	Status domain.ResearchStatus
	// Result, when non-nil, replaces the stored result payload.
	Result *domain.ResearchResult
	// LastError, when non-nil, sets the last error text. An empty string
	// clears the column (sets NULL).
	LastError *string
	// MaxAttempts guards failure transitions: when Status is Failed and
	// MaxAttempts > 0, the status only changes once attempts after increment
	// exceed this threshold. A value <= 0 disables the guard.
	MaxAttempts int
}

// UserResearches is one page of a user's research history.
type UserResearches struct {
	// Researches holds the current page, newest first.
	Researches []domain.Research
	// NextCursor is the created_at timestamp to pass for the next page, nil
	// on the last page.
	NextCursor *time.Time
}

// ResearchStorage defines CRUD and query operations on research rows. Rows are
// soft-deleted; queries exclude deleted rows.
type ResearchStorage interface {
	// StoreResearches inserts researches and returns the stored rows with
	// generated fields populated.
	StoreResearches(ctx context.Context, researches ...domain.Research) ([]domain.Research, error)
	// UpdatePendingResearchesByQuery applies updates to every pending row with
	// the given query and mode. Attempts is incremented and updated_at set
	// automatically; the MaxAttempts guard of ResearchUpdates applies.
	UpdatePendingResearchesByQuery(ctx context.Context,
		query string,
		mode domain.ResearchMode,
		updates ResearchUpdates) error
	// PendingResearchCountByQuery counts pending rows for the query and mode
	// across all users.
	PendingResearchCountByQuery(ctx context.Context, query string, mode domain.ResearchMode) (int64, error)
	// UpdateResearchByID updates a single row and returns it, or nil when the
	// row does not exist. updated_at is set automatically.
	UpdateResearchByID(ctx context.Context, id domain.ResearchID, updates ResearchUpdates) (*domain.Research, error)
	// DeleteResearch soft-deletes the user's research and returns the deleted
	// row, or nil when not found.
	DeleteResearch(ctx context.Context, userID domain.UserID, id domain.ResearchID) (*domain.Research, error)
	// UserResearches returns a page of the user's rows created before the
	// optional cursor, newest first. A non-empty status filters the page.
	UserResearches(ctx context.Context,
		userID domain.UserID,
		status domain.ResearchStatus,
		cursor time.Time,
		limit uint) (UserResearches, error)
	// ResearchByID fetches one row scoped to the user, or nil when not found.
	ResearchByID(ctx context.Context, userID domain.UserID, id domain.ResearchID) (*domain.Research, error)
	// LastCompletedResearchByQuery returns the most recent completed row for
	// the query and mode across all users, or nil when none exists.
	LastCompletedResearchByQuery(ctx context.Context, query string, mode domain.ResearchMode) (*domain.Research, error)
}
