package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"research/pkg/domain"
	"research/pkg/storage"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	researchesTable = "researches"
)

func (p *PgSQL) StoreResearches(ctx context.Context, researches ...domain.Research) ([]domain.Research, error) {
	if len(researches) == 0 {
		return nil, nil
	}

	pgResearches, err := domainResearchesToPg(researches)
	if err != nil {
		return nil, err
	}

	var result []PgResearch
	if err := p.Builder.Insert(researchesTable).
		Rows(pgResearches).
		Returning(&PgResearch{}).
		Executor().ScanStructsContext(ctx, &result); err != nil {
		return nil, fmt.Errorf("could not store researches into pg: %w", err)
	}

	return pgResearchesToDomain(result)
}

// updateRecord converts ResearchUpdates into a goqu record. Attempts handling
// differs between the by-query and by-id paths, so it stays with the callers.
func updateRecord(updates storage.ResearchUpdates, incrementAttempts bool) (goqu.Record, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
	}
	if incrementAttempts {
		rec["attempts"] = goqu.L("attempts + 1")
	}

	if updates.Status != "" {
		if updates.Status == domain.StatusFailed && updates.MaxAttempts > 0 {
			// only fail rows that have exhausted their attempts
			rec["status"] = goqu.L("CASE WHEN attempts + 1 >= ? THEN ? ELSE status END",
				updates.MaxAttempts, string(domain.StatusFailed))
		} else {
			rec["status"] = string(updates.Status)
		}
	}

	if updates.Result != nil {
		b, err := json.Marshal(updates.Result)
		if err != nil {
			return nil, fmt.Errorf("could not marshal result: %w", err)
		}

		rec["result"] = b
	}

	if updates.LastError != nil {
		if *updates.LastError == "" {
			rec["last_error"] = goqu.L("NULL")
		} else {
			rec["last_error"] = *updates.LastError
		}
	}

	return rec, nil
}

// UpdatePendingResearchesByQuery updates every pending row matching the query
// and mode. Attempts is incremented and updated_at set automatically.
func (p *PgSQL) UpdatePendingResearchesByQuery(ctx context.Context,
	query string,
	mode domain.ResearchMode,
	updates storage.ResearchUpdates) error {
	rec, err := updateRecord(updates, true)
	if err != nil {
		return err
	}

	if _, err := p.Builder.Update(researchesTable).
		Set(rec).Where(
		goqu.I("query").Eq(query),
		goqu.I("mode").Eq(string(mode)),
		goqu.I("status").Eq(string(domain.StatusPending)),
		goqu.I("deleted_at").IsNull(),
	).Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("could not update pending researches by query in pg: %w", err)
	}

	return nil
}

// PendingResearchCountByQuery counts pending rows for the query and mode
// across all users, excluding soft-deleted rows.
func (p *PgSQL) PendingResearchCountByQuery(ctx context.Context,
	query string,
	mode domain.ResearchMode) (int64, error) {
	count, err := p.Builder.From(researchesTable).
		Where(
			goqu.I("query").Eq(query),
			goqu.I("mode").Eq(string(mode)),
			goqu.I("status").Eq(string(domain.StatusPending)),
			goqu.I("deleted_at").IsNull(),
		).
		CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not count pending researches in pg: %w", err)
	}

	return count, nil
}

// UpdateResearchByID updates a single row and returns it, ignoring
// soft-deleted rows. Returns nil when the row does not exist.
func (p *PgSQL) UpdateResearchByID(ctx context.Context,
	id domain.ResearchID,
	updates storage.ResearchUpdates) (*domain.Research, error) {
	rec, err := updateRecord(updates, false)
	if err != nil {
		return nil, err
	}

	var row PgResearch
	found, err := p.Builder.Update(researchesTable).
		Set(rec).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgResearch{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update research by id in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// DeleteResearch soft-deletes the user's research by setting deleted_at and
// returns the deleted row, or nil when not found.
func (p *PgSQL) DeleteResearch(ctx context.Context,
	userID domain.UserID,
	id domain.ResearchID) (*domain.Research, error) {
	var row PgResearch
	found, err := p.Builder.Update(researchesTable).
		Set(goqu.Record{
			"deleted_at": goqu.L("CURRENT_TIMESTAMP"),
		}).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("user_id").Eq(uuid.UUID(userID)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgResearch{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not delete research in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// UserResearches returns one page of the user's rows created before the
// optional cursor, newest first, optionally filtered by status.
func (p *PgSQL) UserResearches(ctx context.Context,
	userID domain.UserID,
	status domain.ResearchStatus,
	cursor time.Time,
	limit uint) (storage.UserResearches, error) {
	w := []goqu.Expression{
		goqu.I("user_id").Eq(uuid.UUID(userID)),
		goqu.I("deleted_at").IsNull(),
	}
	if status != "" {
		w = append(w, goqu.I("status").Eq(string(status)))
	}
	if !cursor.IsZero() {
		w = append(w, goqu.I("created_at").Lt(cursor))
	}

	// fetch one extra row to detect a next page
	fetch := limit + 1
	ds := p.Builder.From(researchesTable).
		Where(w...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(fetch)

	var rows []PgResearch
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.UserResearches{}, fmt.Errorf("could not fetch user researches from pg: %w", err)
	}

	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		trimmed := rows[:limit]
		nextCursor = &trimmed[len(trimmed)-1].CreatedAt
		rows = trimmed
	}

	domainRows, err := pgResearchesToDomain(rows)
	if err != nil {
		return storage.UserResearches{}, err
	}

	return storage.UserResearches{
		Researches: domainRows,
		NextCursor: nextCursor,
	}, nil
}

// ResearchByID fetches one row scoped to the user, excluding soft-deleted
// rows. Returns nil when not found.
func (p *PgSQL) ResearchByID(ctx context.Context,
	userID domain.UserID,
	id domain.ResearchID) (*domain.Research, error) {
	var row PgResearch
	found, err := p.Builder.From(researchesTable).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("user_id").Eq(uuid.UUID(userID)),
			goqu.I("deleted_at").IsNull(),
		).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch research by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// LastCompletedResearchByQuery returns the most recent completed row for the
// query and mode across all users, or nil when none exists.
func (p *PgSQL) LastCompletedResearchByQuery(ctx context.Context,
	query string,
	mode domain.ResearchMode) (*domain.Research, error) {
	var row PgResearch
	found, err := p.Builder.From(researchesTable).
		Where(
			goqu.I("query").Eq(query),
			goqu.I("mode").Eq(string(mode)),
			goqu.I("status").Eq(string(domain.StatusCompleted)),
			goqu.I("deleted_at").IsNull(),
		).
		Order(goqu.I("updated_at").Desc()).
		Limit(1).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch last completed research: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}
