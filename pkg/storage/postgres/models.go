package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"research/pkg/domain"
	"time"

	"github.com/google/uuid"
)

type PgResearch struct {
	ID     uuid.UUID `db:"id"      goqu:"skipinsert"`
	UserID uuid.UUID `db:"user_id"`

	Query  string          `db:"query"`
	Mode   string          `db:"mode"`
	Status string          `db:"status"`
	Result json.RawMessage `db:"result" goqu:"skipinsert"`

	Attempts  uint           `db:"attempts"   goqu:"skipinsert"`
	LastError sql.NullString `db:"last_error" goqu:"skipinsert"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
	DeletedAt sql.NullTime `db:"deleted_at" goqu:"skipinsert"`
}

func (p *PgResearch) ToDomain() (*domain.Research, error) {
	var result domain.ResearchResult
	if err := json.Unmarshal(p.Result, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal research result: %w", err)
	}

	return &domain.Research{
		ID:        domain.ResearchID(p.ID),
		UserID:    domain.UserID(p.UserID),
		Query:     p.Query,
		Mode:      domain.ResearchMode(p.Mode),
		Status:    domain.ResearchStatus(p.Status),
		Result:    result,
		Attempts:  p.Attempts,
		LastError: p.LastError.String,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt.Time,
		DeletedAt: p.DeletedAt.Time,
	}, nil
}

func (p *PgResearch) FromDomain(research domain.Research) error {
	result, err := json.Marshal(research.Result)
	if err != nil {
		return fmt.Errorf("could not marshal research result: %w", err)
	}

	*p = PgResearch{
		ID:       uuid.UUID(research.ID),
		UserID:   uuid.UUID(research.UserID),
		Query:    research.Query,
		Mode:     string(research.Mode),
		Status:   string(research.Status),
		Result:   result,
		Attempts: research.Attempts,
		LastError: sql.NullString{
			String: research.LastError,
			Valid:  research.LastError != "",
		},
		CreatedAt: research.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  research.UpdatedAt,
			Valid: !research.UpdatedAt.IsZero(),
		},
		DeletedAt: sql.NullTime{
			Time:  research.DeletedAt,
			Valid: !research.DeletedAt.IsZero(),
		},
	}

	return nil
}

func domainResearchesToPg(researches []domain.Research) ([]PgResearch, error) {
	out := make([]PgResearch, len(researches))
	for i := range out {
		if err := out[i].FromDomain(researches[i]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func pgResearchesToDomain(researches []PgResearch) ([]domain.Research, error) {
	out := make([]domain.Research, 0, len(researches))
	for _, research := range researches {
		d, err := research.ToDomain()
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}
