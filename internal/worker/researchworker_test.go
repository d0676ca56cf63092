package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"

	"research/internal/research"
	"research/internal/worker"
	"research/pkg/domain"
	"research/pkg/events"
	"research/pkg/logger"
	"research/pkg/serrors"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

// fakeService stubs research.Service; only Process matters here.
type fakeService struct {
	processErr error
	processed  []research.JobArgs
}

func (f *fakeService) Process(_ context.Context, args research.JobArgs) error {
	f.processed = append(f.processed, args)

	return f.processErr
}

func (f *fakeService) Stream(context.Context, domain.UserID, research.Request, events.Emitter) error {
	panic("not expected")
}

func (f *fakeService) Enqueue(context.Context, domain.UserID, research.Request) (*domain.Research, error) {
	panic("not expected")
}

func (f *fakeService) UserResearches(context.Context,
	domain.UserID,
	domain.ResearchStatus,
	string,
	uint) ([]domain.Research, string, error) {
	panic("not expected")
}

func (f *fakeService) Result(context.Context, domain.UserID, domain.ResearchID) (*domain.Research, error) {
	panic("not expected")
}

func (f *fakeService) Delete(context.Context, domain.UserID, domain.ResearchID) error {
	panic("not expected")
}

func makeJob(id int64, query string) *river.Job[research.JobArgs] {
	return &river.Job[research.JobArgs]{
		JobRow: &rivertype.JobRow{ID: id},
		Args:   research.JobArgs{Query: query, Mode: string(domain.ModeIterative)},
	}
}

func TestResearchWorker_Work_Success(t *testing.T) {
	svc := &fakeService{}
	w := worker.NewResearchWorker(svc)

	require.NoError(t, w.Work(context.Background(), makeJob(1, "quantum computing")))
	require.Len(t, svc.processed, 1)
	require.Equal(t, "quantum computing", svc.processed[0].Query)
}

func TestResearchWorker_Work_ConflictCancels(t *testing.T) {
	svc := &fakeService{processErr: serrors.With(serrors.ErrConflict, "no pending researches for job")}
	w := worker.NewResearchWorker(svc)

	err := w.Work(context.Background(), makeJob(2, "stale"))
	require.Error(t, err)
	var cancelErr *river.JobCancelError
	require.ErrorAs(t, err, &cancelErr)
}

func TestResearchWorker_Work_RateLimitedSnoozes(t *testing.T) {
	svc := &fakeService{processErr: serrors.With(serrors.ErrRateLimited, "provider throttled")}
	w := worker.NewResearchWorker(svc)

	err := w.Work(context.Background(), makeJob(3, "throttled"))
	require.Error(t, err)
	var snoozeErr *river.JobSnoozeError
	require.ErrorAs(t, err, &snoozeErr)
}

func TestResearchWorker_Work_GenericErrorWrapped(t *testing.T) {
	svc := &fakeService{processErr: errors.New("boom")}
	w := worker.NewResearchWorker(svc)

	err := w.Work(context.Background(), makeJob(4, "broken"))
	require.Error(t, err)
	var cancelErr *river.JobCancelError
	require.NotErrorAs(t, err, &cancelErr, "did not expect JobCancelError")
	var snoozeErr *river.JobSnoozeError
	require.NotErrorAs(t, err, &snoozeErr, "did not expect JobSnoozeError")
}
