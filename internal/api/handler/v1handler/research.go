package v1handler

import (
	"net/http"
	"research/internal/research"
	"research/pkg/domain"
	"research/pkg/serrors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Research is the wire representation of a stored research.
type Research struct {
	ID     uuid.UUID              `json:"id"`
	Query  string                 `json:"query"`
	Mode   string                 `json:"mode"`
	Status string                 `json:"status"`
	Result *domain.ResearchResult `json:"result,omitempty"`

	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// ResearchList is one page of a user's research history.
type ResearchList struct {
	Items      []Research `json:"items"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

func DomainResearchToV1(in *domain.Research) Research {
	out := Research{
		ID:        uuid.UUID(in.ID),
		Query:     in.Query,
		Mode:      string(in.Mode),
		Status:    string(in.Status),
		Attempts:  int(in.Attempts), //nolint: gosec
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
	if in.Status == domain.StatusCompleted {
		result := in.Result
		out.Result = &result
	}

	return out
}

// CreateResearch schedules a background research run.
func (h *Handler) CreateResearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeRequest(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	res, err := h.deps.Research.Enqueue(ctx, GetUserIDFromContext(ctx), req)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusCreated, DomainResearchToV1(res))
}

// GetResearch returns one research by ID.
func (h *Handler) GetResearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	res, err := h.deps.Research.Result(ctx, GetUserIDFromContext(ctx), id)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusOK, DomainResearchToV1(res))
}

// ListResearches returns a page of the user's research history.
func (h *Handler) ListResearches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := uint(DefaultLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || parsed == 0 {
			writeError(ctx, w, serrors.With(serrors.ErrBadRequest, "invalid limit"))

			return
		}
		limit = uint(parsed)
	}

	items, nextCursor, err := h.deps.Research.UserResearches(ctx,
		GetUserIDFromContext(ctx),
		domain.ResearchStatus(r.URL.Query().Get("status")),
		r.URL.Query().Get("cursor"),
		limit)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	list := ResearchList{Items: make([]Research, 0, len(items)), NextCursor: nextCursor}
	for i := range items {
		list.Items = append(list.Items, DomainResearchToV1(&items[i]))
	}

	writeJSON(ctx, w, http.StatusOK, list)
}

// DeleteResearch soft-deletes one research by ID.
func (h *Handler) DeleteResearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	if err := h.deps.Research.Delete(ctx, GetUserIDFromContext(ctx), id); err != nil {
		writeError(ctx, w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (domain.ResearchID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return domain.ResearchID{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid research id")
	}

	return domain.ResearchID(id), nil
}

func decodeRequest(r *http.Request) (research.Request, error) {
	var req research.Request
	if err := jsonDecode(r, &req); err != nil {
		return research.Request{}, err
	}

	return req, nil
}
