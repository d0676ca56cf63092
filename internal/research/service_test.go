package research

import (
	"context"
	"errors"
	"research/pkg/domain"
	"research/pkg/events"
	"research/pkg/researcher"
	"research/pkg/serrors"
	"research/pkg/storage"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/require"
)

// fakeStorage is an in-memory storage.Storage for service tests.
type fakeStorage struct {
	rows map[uuid.UUID]*domain.Research

	jobAdded      bool
	addedJobs     []river.JobArgs
	lastCompleted *domain.Research
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{rows: map[uuid.UUID]*domain.Research{}, jobAdded: true}
}

func (f *fakeStorage) StoreResearches(_ context.Context, researches ...domain.Research) ([]domain.Research, error) {
	out := make([]domain.Research, 0, len(researches))
	for _, r := range researches {
		r.ID = domain.ResearchID(uuid.New())
		r.CreatedAt = time.Now()
		f.rows[uuid.UUID(r.ID)] = &r
		out = append(out, r)
	}

	return out, nil
}

func (f *fakeStorage) UpdatePendingResearchesByQuery(_ context.Context,
	query string,
	mode domain.ResearchMode,
	updates storage.ResearchUpdates) error {
	for _, row := range f.rows {
		if row.Query != query || row.Mode != mode || row.Status != domain.StatusPending {
			continue
		}
		row.Attempts++
		applyUpdates(row, updates)
	}

	return nil
}

func (f *fakeStorage) PendingResearchCountByQuery(_ context.Context,
	query string,
	mode domain.ResearchMode) (int64, error) {
	var n int64
	for _, row := range f.rows {
		if row.Query == query && row.Mode == mode && row.Status == domain.StatusPending {
			n++
		}
	}

	return n, nil
}

func (f *fakeStorage) UpdateResearchByID(_ context.Context,
	id domain.ResearchID,
	updates storage.ResearchUpdates) (*domain.Research, error) {
	row, ok := f.rows[uuid.UUID(id)]
	if !ok || !row.DeletedAt.IsZero() {
		return nil, nil //nolint: nilnil
	}
	applyUpdates(row, updates)
	row.UpdatedAt = time.Now()

	return row, nil
}

func (f *fakeStorage) DeleteResearch(_ context.Context,
	userID domain.UserID,
	id domain.ResearchID) (*domain.Research, error) {
	row, ok := f.rows[uuid.UUID(id)]
	if !ok || row.UserID != userID || !row.DeletedAt.IsZero() {
		return nil, nil //nolint: nilnil
	}
	row.DeletedAt = time.Now()

	return row, nil
}

func (f *fakeStorage) UserResearches(_ context.Context,
	userID domain.UserID,
	status domain.ResearchStatus,
	_ time.Time,
	_ uint) (storage.UserResearches, error) {
	var page storage.UserResearches
	for _, row := range f.rows {
		if row.UserID != userID || !row.DeletedAt.IsZero() {
			continue
		}
		if status != "" && row.Status != status {
			continue
		}
		page.Researches = append(page.Researches, *row)
	}

	return page, nil
}

func (f *fakeStorage) ResearchByID(_ context.Context,
	userID domain.UserID,
	id domain.ResearchID) (*domain.Research, error) {
	row, ok := f.rows[uuid.UUID(id)]
	if !ok || row.UserID != userID || !row.DeletedAt.IsZero() {
		return nil, nil //nolint: nilnil
	}

	return row, nil
}

func (f *fakeStorage) LastCompletedResearchByQuery(context.Context,
	string,
	domain.ResearchMode) (*domain.Research, error) {
	return f.lastCompleted, nil
}

func (f *fakeStorage) AddJob(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (bool, error) {
	f.addedJobs = append(f.addedJobs, args)

	return f.jobAdded, nil
}

func (f *fakeStorage) Close() error { return nil }

func (f *fakeStorage) Begin(context.Context) (storage.TxStorage, error) {
	return nil, storage.ErrAlreadyInTx
}

func (f *fakeStorage) WithTx(_ context.Context, cb func(storage.AllStorage) error) error {
	return cb(f)
}

func applyUpdates(row *domain.Research, updates storage.ResearchUpdates) {
	if updates.Status != "" {
		if updates.Status != domain.StatusFailed ||
			updates.MaxAttempts <= 0 ||
			int(row.Attempts) >= updates.MaxAttempts {
			row.Status = updates.Status
		}
	}
	if updates.Result != nil {
		row.Result = *updates.Result
	}
	if updates.LastError != nil {
		row.LastError = *updates.LastError
	}
}

// fakeResearcher replays scripted log lines and returns a fixed report.
type fakeResearcher struct {
	log    researcher.LogFunc
	lines  []string
	report researcher.Report
	err    error
}

func (f *fakeResearcher) Run(context.Context, researcher.Request) (researcher.Report, error) {
	for _, line := range f.lines {
		f.log(line)
	}
	if f.err != nil {
		return researcher.Report{}, f.err
	}

	return f.report, nil
}

func newService(store storage.Storage, fake func(log researcher.LogFunc) *fakeResearcher) Service {
	return New(store, Options{
		MaxAttempts:    3,
		ResultCacheTTL: time.Hour,
		Factory: func(_ domain.ResearchMode, log researcher.LogFunc) researcher.Researcher {
			return fake(log)
		},
	})
}

func TestService_Stream_Success(t *testing.T) {
	store := newFakeStorage()
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{
			log: log,
			lines: []string{
				"=== Starting Iteration 1 ===",
				"<findings>results at https://example.com/paper explained</findings>",
				"Drafting Final Response",
			},
			report: researcher.Report{
				Text:     "# Report\nSee https://example.com/paper.",
				Findings: []string{"results at https://example.com/paper explained"},
			},
		}
	})

	emit, collected := collectEvents()
	userID := domain.UserID(uuid.New())
	err := svc.Stream(context.Background(), userID, Request{Query: "quantum computing"}, emit)
	require.NoError(t, err)

	types := make([]events.Type, 0, len(*collected))
	for _, event := range *collected {
		types = append(types, event.Type)
	}
	require.Equal(t, []events.Type{
		events.TypeStarted,
		events.TypeIterationStart,
		events.TypeFindingsUpdate,
		events.TypeFinalizing,
		events.TypeCitation,
		events.TypeFinalReport,
		events.TypeCompleted,
	}, types)

	final, ok := (*collected)[5].Data.(events.FinalReportData)
	require.True(t, ok)
	require.Equal(t, 1, final.Iterations)
	require.Len(t, final.Citations, 1)

	// the outcome is persisted
	page, err := store.UserResearches(context.Background(), userID, domain.StatusCompleted, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, page.Researches, 1)
	require.Equal(t, "# Report\nSee https://example.com/paper.", page.Researches[0].Result.Report)
	require.Equal(t, 1, page.Researches[0].Result.Iterations)
}

func TestService_Stream_ResearcherError(t *testing.T) {
	store := newFakeStorage()
	runErr := serrors.With(serrors.ErrRateLimited, "model is throttled")
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{log: log, err: runErr}
	})

	emit, collected := collectEvents()
	userID := domain.UserID(uuid.New())
	err := svc.Stream(context.Background(), userID, Request{Query: "quantum computing"}, emit)
	require.ErrorIs(t, err, serrors.ErrRateLimited)

	last := (*collected)[len(*collected)-1]
	require.Equal(t, events.TypeError, last.Type)
	payload, ok := last.Data.(events.ErrorData)
	require.True(t, ok)
	require.Equal(t, "RATE_LIMITED", payload.Type)

	page, err := store.UserResearches(context.Background(), userID, domain.StatusFailed, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, page.Researches, 1)
	require.Equal(t, "model is throttled", page.Researches[0].LastError)
}

func TestService_Stream_ClientGoneDuringTerminalEvents(t *testing.T) {
	store := newFakeStorage()
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{
			log:   log,
			lines: []string{"=== Starting Iteration 1 ==="},
			report: researcher.Report{
				Text:     "finished report",
				Findings: []string{"see https://example.com/source"},
			},
		}
	})

	// the client drops right after the final report frame
	emit := func(_ context.Context, event events.Event) error {
		if event.Type == events.TypeCompleted {
			return errors.New("client gone")
		}

		return nil
	}
	userID := domain.UserID(uuid.New())
	err := svc.Stream(context.Background(), userID, Request{Query: "quantum computing"}, emit)
	require.Error(t, err)

	// the outcome survives the dropped client
	page, err := store.UserResearches(context.Background(), userID, domain.StatusCompleted, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, page.Researches, 1)
	require.Equal(t, "finished report", page.Researches[0].Result.Report)
}

func TestService_Stream_StartedEmitFailureMarksFailed(t *testing.T) {
	store := newFakeStorage()
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{log: log}
	})

	emit := func(context.Context, events.Event) error {
		return errors.New("client gone")
	}
	userID := domain.UserID(uuid.New())
	err := svc.Stream(context.Background(), userID, Request{Query: "quantum computing"}, emit)
	require.Error(t, err)

	// no row stays in RUNNING
	page, err := store.UserResearches(context.Background(), userID, domain.StatusFailed, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, page.Researches, 1)
	require.Contains(t, page.Researches[0].LastError, "could not emit started event")
}

func TestService_Stream_InvalidRequest(t *testing.T) {
	store := newFakeStorage()
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{log: log}
	})

	emit, collected := collectEvents()
	err := svc.Stream(context.Background(), domain.UserID(uuid.New()), Request{Query: ""}, emit)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
	// nothing was emitted or stored
	require.Empty(t, *collected)
	require.Empty(t, store.rows)
}

func TestService_Enqueue(t *testing.T) {
	store := newFakeStorage()
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{log: log}
	})

	res, err := svc.Enqueue(context.Background(), domain.UserID(uuid.New()), Request{Query: "go generics"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, res.Status)
	require.Len(t, store.addedJobs, 1)

	args, ok := store.addedJobs[0].(JobArgs)
	require.True(t, ok)
	require.Equal(t, "go generics", args.Query)
	require.Equal(t, string(domain.ModeIterative), args.Mode)
	require.Equal(t, DefaultMaxIterations, args.MaxIterations)
}

func TestService_Enqueue_ReusesFreshResult(t *testing.T) {
	store := newFakeStorage()
	store.jobAdded = false
	store.lastCompleted = &domain.Research{
		Status: domain.StatusCompleted,
		Result: domain.ResearchResult{Report: "cached report"},
	}
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{log: log}
	})

	res, err := svc.Enqueue(context.Background(), domain.UserID(uuid.New()), Request{Query: "go generics"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, res.Status)
	require.Equal(t, "cached report", res.Result.Report)
}

func TestService_Process(t *testing.T) {
	store := newFakeStorage()
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{
			log:   log,
			lines: []string{"=== Starting Iteration 1 ==="},
			report: researcher.Report{
				Text:     "queued report",
				Findings: []string{"see https://example.com/source"},
			},
		}
	})

	userID := domain.UserID(uuid.New())
	res, err := svc.Enqueue(context.Background(), userID, Request{Query: "go generics"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, res.Status)

	err = svc.Process(context.Background(), JobArgs{Query: "go generics", Mode: string(domain.ModeIterative)})
	require.NoError(t, err)

	row, err := svc.Result(context.Background(), userID, res.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, row.Status)
	require.Equal(t, "queued report", row.Result.Report)
	require.Equal(t, 1, row.Result.Iterations)
	require.Len(t, row.Result.Citations, 1)
}

func TestService_Process_NoPendingRows(t *testing.T) {
	store := newFakeStorage()
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{log: log}
	})

	err := svc.Process(context.Background(), JobArgs{Query: "orphaned", Mode: string(domain.ModeIterative)})
	require.ErrorIs(t, err, serrors.ErrConflict)
}

func TestService_Process_FailureGuard(t *testing.T) {
	store := newFakeStorage()
	runErr := serrors.With(serrors.ErrUnavailable, "model is down")
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{log: log, err: runErr}
	})

	userID := domain.UserID(uuid.New())
	res, err := svc.Enqueue(context.Background(), userID, Request{Query: "go generics"})
	require.NoError(t, err)

	args := JobArgs{Query: "go generics", Mode: string(domain.ModeIterative)}

	// two failed attempts leave the row pending, the third marks it failed
	for i := 0; i < 2; i++ {
		require.ErrorIs(t, svc.Process(context.Background(), args), serrors.ErrUnavailable)
		row, err := svc.Result(context.Background(), userID, res.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, row.Status)
	}

	require.ErrorIs(t, svc.Process(context.Background(), args), serrors.ErrUnavailable)
	row, err := svc.Result(context.Background(), userID, res.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, row.Status)
	require.Equal(t, uint(3), row.Attempts)
	require.Contains(t, row.LastError, "model is down")
}

func TestService_ResultAndDelete_NotFound(t *testing.T) {
	store := newFakeStorage()
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{log: log}
	})

	_, err := svc.Result(context.Background(), domain.UserID(uuid.New()), domain.ResearchID(uuid.New()))
	require.ErrorIs(t, err, serrors.ErrNotFound)

	err = svc.Delete(context.Background(), domain.UserID(uuid.New()), domain.ResearchID(uuid.New()))
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestService_UserResearches_InvalidCursor(t *testing.T) {
	store := newFakeStorage()
	svc := newService(store, func(log researcher.LogFunc) *fakeResearcher {
		return &fakeResearcher{log: log}
	})

	_, _, err := svc.UserResearches(context.Background(),
		domain.UserID(uuid.New()), "", "not-a-timestamp", 10)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}
