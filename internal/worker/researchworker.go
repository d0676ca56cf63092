package worker

import (
	"context"
	"errors"
	"fmt"
	"research/internal/research"
	"research/pkg/logger"
	"research/pkg/serrors"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// rateLimitSnooze is how long a job sleeps after the model provider reports
// throttling. The provider gives no reset time, so this is a flat backoff.
const rateLimitSnooze = time.Minute

// ResearchWorker is a river worker that executes queued research jobs. The
// heavy lifting lives in the research service; the worker only maps error
// kinds onto river actions:
//   - conflict (no pending rows left for the job) cancels the job,
//   - rate limiting snoozes it,
//   - anything else is returned and retried with the job's attempt budget.
type ResearchWorker struct {
	river.WorkerDefaults[research.JobArgs]

	service research.Service
}

// NewResearchWorker constructs a ResearchWorker backed by the given service.
func NewResearchWorker(service research.Service) *ResearchWorker {
	return &ResearchWorker{service: service}
}

// Work executes a single research job.
func (w *ResearchWorker) Work(ctx context.Context, job *river.Job[research.JobArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	if err := w.service.Process(ctx, job.Args); err != nil {
		if errors.Is(err, serrors.ErrConflict) {
			return river.JobCancel(err) //nolint: wrapcheck
		}

		logger.Error(ctx, "error in processing research job", zap.Error(err))

		if errors.Is(err, serrors.ErrRateLimited) {
			return river.JobSnooze(rateLimitSnooze) //nolint: wrapcheck
		}

		return fmt.Errorf("could not process research job: %w", err)
	}

	return nil
}
