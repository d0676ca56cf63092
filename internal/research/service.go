package research

import (
	"context"
	"errors"
	"fmt"
	"research/internal/config"
	"research/pkg/domain"
	"research/pkg/events"
	"research/pkg/logger"
	"research/pkg/researcher"
	"research/pkg/serrors"
	"research/pkg/storage"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ResearcherFactory builds the researcher for one run. Tests inject fakes
// through it.
type ResearcherFactory func(mode domain.ResearchMode, log researcher.LogFunc) researcher.Researcher

// Options configure the research service.
type Options struct {
	// MaxAttempts is how often the background worker retries a research job
	// before marking the rows failed.
	MaxAttempts int
	// ResultCacheTTL is the window during which a completed result satisfies
	// new queued requests for the same query and mode.
	ResultCacheTTL time.Duration
	// SectionConcurrency bounds parallel section research in deep mode.
	SectionConcurrency int
	// LLM selects the model and search providers.
	LLM researcher.LLMConfig
	// Factory overrides researcher construction. Nil builds from LLM.
	Factory ResearcherFactory
	// Meter records run metrics when non-nil.
	Meter metric.Meter
}

// NewOptions derives service options from the application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxAttempts:        cfg.Research.MaxAttempts,
		ResultCacheTTL:     cfg.Research.ResultCacheTTL,
		SectionConcurrency: cfg.Research.SectionConcurrency,
		LLM: researcher.LLMConfig{
			BaseURL:        cfg.LLM.BaseURL,
			APIKey:         cfg.LLM.APIKey,
			ReasoningModel: cfg.LLM.ReasoningModel,
			MainModel:      cfg.LLM.MainModel,
			FastModel:      cfg.LLM.FastModel,
			SearchProvider: cfg.Search.Provider,
			BraveAPIKey:    cfg.Search.BraveAPIKey,
			TavilyAPIKey:   cfg.Search.TavilyAPIKey,
			TavilyDepth:    cfg.Search.TavilyDepth,
		},
	}
}

// service coordinates researchers, event emission and persistence.
type service struct {
	options Options
	storage storage.Storage
	metrics *runMetrics
}

// New creates a research Service backed by the given storage.
func New(store storage.Storage, options Options) Service {
	s := &service{options: options, storage: store}
	if options.Meter != nil {
		m, err := newRunMetrics(options.Meter)
		if err != nil {
			logger.Warn(context.Background(), "Could not create run metrics", zap.Error(err))
		} else {
			s.metrics = m
		}
	}

	return s
}

func (s *service) newResearcher(mode domain.ResearchMode, log researcher.LogFunc) researcher.Researcher {
	if s.options.Factory != nil {
		return s.options.Factory(mode, log)
	}

	if mode == domain.ModeDeep {
		return researcher.NewDeep(s.options.LLM,
			researcher.WithLogFunc(log),
			researcher.WithSectionConcurrency(s.options.SectionConcurrency))
	}

	return researcher.NewIterative(s.options.LLM, researcher.WithLogFunc(log))
}

// Stream runs the research synchronously, emitting events in log order. The
// started event always comes first and exactly one terminal event (completed
// or error) ends the stream.
func (s *service) Stream(ctx context.Context,
	userID domain.UserID,
	req Request,
	emit events.Emitter) error {
	req, err := Normalize(req)
	if err != nil {
		return err
	}

	start := time.Now()
	emit = s.metrics.countEvents(emit)

	stored, err := s.storage.StoreResearches(ctx, domain.Research{
		UserID: userID,
		Query:  req.Query,
		Mode:   req.Mode,
		Status: domain.StatusRunning,
	})
	if err != nil {
		return fmt.Errorf("could not store research: %w", err)
	}
	row := stored[0]
	ctx = logger.WithFields(ctx,
		zap.String("researchId", uuid.UUID(row.ID).String()),
		zap.String("mode", string(req.Mode)))

	if err := emit(ctx, events.Started(req.Mode, req.Query, req.MaxIterations, req.MaxTimeMinutes)); err != nil {
		return s.failStream(ctx, row.ID, req, emit, start,
			fmt.Errorf("could not emit started event: %w", err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ic := newInterceptor(runCtx, cancel, req.Mode, emit)

	report, err := s.newResearcher(req.Mode, ic.Log).Run(runCtx, researcher.Request{
		Query:             req.Query,
		MaxIterations:     req.MaxIterations,
		MaxTimeMinutes:    req.MaxTimeMinutes,
		OutputLength:      req.OutputLength,
		BackgroundContext: req.BackgroundContext,
	})
	if emitErr := ic.Err(); emitErr != nil {
		// the client went away mid-run; the run was canceled on purpose
		err = fmt.Errorf("could not deliver events: %w", emitErr)
	}
	if err != nil {
		return s.failStream(ctx, row.ID, req, emit, start, err)
	}

	var citations []domain.Citation
	iterations := 0
	if req.Mode == domain.ModeDeep {
		citations = citationsFromReport(report.Text)
	} else {
		citations = citationsFromFindings(report.Findings)
		iterations = ic.Iterations()
	}

	// persist before the terminal events: a client that disconnects while
	// they go out must not strand the row in RUNNING.
	result := domain.ResearchResult{
		Report:     report.Text,
		Citations:  citations,
		Iterations: iterations,
		Cost:       report.Cost,
	}
	noError := ""
	if _, err := s.storage.UpdateResearchByID(context.WithoutCancel(ctx), row.ID, storage.ResearchUpdates{
		Status:    domain.StatusCompleted,
		Result:    &result,
		LastError: &noError,
	}); err != nil {
		return fmt.Errorf("could not persist research result: %w", err)
	}

	s.metrics.observeRun(ctx, string(req.Mode), "completed", time.Since(start))

	for _, citation := range citations {
		if err := emit(ctx, events.CitationFound(citation)); err != nil {
			return fmt.Errorf("could not emit citation event: %w", err)
		}
	}

	if err := emit(ctx, events.FinalReport(report.Text, citations, iterations)); err != nil {
		return fmt.Errorf("could not emit final report event: %w", err)
	}

	done := "Research completed successfully"
	if req.Mode == domain.ModeDeep {
		done = "Deep research completed successfully"
	}
	if err := emit(ctx, events.Completed(done)); err != nil {
		return fmt.Errorf("could not emit completed event: %w", err)
	}

	return nil
}

// failStream emits the terminal error event, marks the row failed and returns
// the run error.
func (s *service) failStream(ctx context.Context,
	id domain.ResearchID,
	req Request,
	emit events.Emitter,
	start time.Time,
	runErr error) error {
	// best effort: the client may already be gone
	_ = emit(ctx, events.Failed(runErr, errorKind(runErr)))

	lastError := runErr.Error()
	if _, err := s.storage.UpdateResearchByID(context.WithoutCancel(ctx), id, storage.ResearchUpdates{
		Status:    domain.StatusFailed,
		LastError: &lastError,
	}); err != nil {
		logger.Error(ctx, "Could not mark research failed", zap.Error(err))
	}

	s.metrics.observeRun(ctx, string(req.Mode), "failed", time.Since(start))

	return fmt.Errorf("could not run research: %w", runErr)
}

// errorKind names the semantic kind of err for the error event payload.
func errorKind(err error) string {
	var sem *serrors.Error
	if errors.As(err, &sem) && sem.Kind() != nil {
		return sem.Kind().Error()
	}

	return serrors.ErrInternal.Error()
}

// Enqueue stores a pending research row and schedules a background job for
// it. River's unique jobs prevent duplicate work per (query, mode); when the
// job already ran recently, the fresh completed result is copied onto the new
// row immediately.
func (s *service) Enqueue(ctx context.Context, userID domain.UserID, req Request) (*domain.Research, error) {
	req, err := Normalize(req)
	if err != nil {
		return nil, err
	}

	var research *domain.Research
	if err := s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		res, err := tx.StoreResearches(ctx, domain.Research{
			UserID: userID,
			Query:  req.Query,
			Mode:   req.Mode,
			Status: domain.StatusPending,
		})
		if err != nil {
			return fmt.Errorf("could not store research: %w", err)
		}
		research = &res[0]

		jobAdded, err := tx.AddJob(ctx, JobArgs{
			Query:             req.Query,
			Mode:              string(req.Mode),
			MaxIterations:     req.MaxIterations,
			MaxTimeMinutes:    req.MaxTimeMinutes,
			OutputLength:      req.OutputLength,
			BackgroundContext: req.BackgroundContext,
			maxAttempts:       s.options.MaxAttempts,
			uniqueJobPeriod:   s.options.ResultCacheTTL,
		}, nil)
		if err != nil {
			return fmt.Errorf("could not add job: %w", err)
		}

		// a skipped insert means a job for this (query, mode) already exists.
		// if that job already completed, reuse its result right away.
		if !jobAdded {
			lastResult, err := tx.LastCompletedResearchByQuery(ctx, req.Query, req.Mode)
			if err != nil {
				return fmt.Errorf("could not get last completed research: %w", err)
			}

			if lastResult != nil {
				updated, err := tx.UpdateResearchByID(ctx, research.ID, storage.ResearchUpdates{
					Status: domain.StatusCompleted,
					Result: &lastResult.Result,
				})
				if err != nil {
					return fmt.Errorf("could not update research: %w", err)
				}
				research = updated
			} // else: the job is still in the queue and will update all
			// pending rows for this (query, mode) when it finishes.
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not enqueue research: %w", err)
	}

	return research, nil
}

// Process runs one queued research job. Unlike Stream there is no client to
// emit to, so the interceptor only counts iterations and forwards log lines to
// the zap logger. The outcome lands on every pending row for the (query, mode)
// through the attempt-guarded bulk update.
func (s *service) Process(ctx context.Context, args JobArgs) error {
	mode := domain.ResearchMode(args.Mode)
	ctx = logger.WithFields(ctx,
		zap.String("query", args.Query),
		zap.String("mode", args.Mode))

	pending, err := s.storage.PendingResearchCountByQuery(ctx, args.Query, mode)
	if err != nil {
		return fmt.Errorf("could not count pending researches: %w", err)
	}
	if pending == 0 {
		// every row for this job was deleted or already satisfied
		return serrors.With(serrors.ErrConflict, "no pending researches for job")
	}

	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	discard := func(context.Context, events.Event) error { return nil }
	ic := newInterceptor(runCtx, cancel, mode, discard)

	report, err := s.newResearcher(mode, ic.Log).Run(runCtx, researcher.Request{
		Query:             args.Query,
		MaxIterations:     args.MaxIterations,
		MaxTimeMinutes:    args.MaxTimeMinutes,
		OutputLength:      args.OutputLength,
		BackgroundContext: args.BackgroundContext,
	})
	if err != nil {
		lastError := err.Error()
		if updateErr := s.storage.UpdatePendingResearchesByQuery(context.WithoutCancel(ctx),
			args.Query, mode, storage.ResearchUpdates{
				Status:      domain.StatusFailed,
				LastError:   &lastError,
				MaxAttempts: s.options.MaxAttempts,
			}); updateErr != nil {
			logger.Error(ctx, "Could not record research attempt", zap.Error(updateErr))
		}

		s.metrics.observeRun(ctx, args.Mode, "failed", time.Since(start))

		return fmt.Errorf("could not run research: %w", err)
	}

	var citations []domain.Citation
	iterations := 0
	if mode == domain.ModeDeep {
		citations = citationsFromReport(report.Text)
	} else {
		citations = citationsFromFindings(report.Findings)
		iterations = ic.Iterations()
	}

	result := domain.ResearchResult{
		Report:     report.Text,
		Citations:  citations,
		Iterations: iterations,
		Cost:       report.Cost,
	}
	noError := ""
	if err := s.storage.UpdatePendingResearchesByQuery(context.WithoutCancel(ctx),
		args.Query, mode, storage.ResearchUpdates{
			Status:    domain.StatusCompleted,
			Result:    &result,
			LastError: &noError,
		}); err != nil {
		return fmt.Errorf("could not persist research result: %w", err)
	}

	s.metrics.observeRun(ctx, args.Mode, "completed", time.Since(start))
	logger.Info(ctx, "Research job completed")

	return nil
}

// UserResearches returns one page of the user's history with RFC3339 cursor
// pagination.
func (s *service) UserResearches(ctx context.Context,
	userID domain.UserID,
	status domain.ResearchStatus,
	cursor string,
	limit uint) ([]domain.Research, string, error) {
	var cursorTime time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339, cursor)
		if err != nil {
			return nil, "", serrors.Wrap(serrors.ErrBadRequest, err, "invalid cursor")
		}
		cursorTime = t
	}

	page, err := s.storage.UserResearches(ctx, userID, status, cursorTime, limit)
	if err != nil {
		return nil, "", fmt.Errorf("could not get user researches: %w", err)
	}

	var next string
	if page.NextCursor != nil {
		next = page.NextCursor.Format(time.RFC3339)
	}

	return page.Researches, next, nil
}

// Result fetches a single research by ID for the given user.
func (s *service) Result(ctx context.Context,
	userID domain.UserID,
	id domain.ResearchID) (*domain.Research, error) {
	res, err := s.storage.ResearchByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("could not get research: %w", err)
	}
	if res == nil {
		return nil, serrors.With(serrors.ErrNotFound, "research not found")
	}

	return res, nil
}

// Delete soft-deletes a research belonging to the given user. Queue jobs are
// left alone: other pending rows may still depend on the same job.
func (s *service) Delete(ctx context.Context, userID domain.UserID, id domain.ResearchID) error {
	res, err := s.storage.DeleteResearch(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("could not delete research: %w", err)
	}
	if res == nil {
		return serrors.With(serrors.ErrNotFound, "research not found")
	}

	return nil
}
