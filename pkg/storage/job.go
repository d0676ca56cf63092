package storage

import (
	"context"

	"github.com/riverqueue/river"
)

// JobStorage enqueues background jobs into the queue backend. The interface is
// deliberately small so storage backends stay decoupled from the job system.
type JobStorage interface {
	// AddJob enqueues a job. When the handle is transactional the insert joins
	// the surrounding transaction. The boolean reports whether the job was
	// actually inserted (false when skipped as a unique duplicate).
	AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error)
}
