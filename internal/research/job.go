package research

import (
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// JobArgs is the payload of a queued research job. Query and Mode form the
// unique key so River enforces one job per (query, mode) pair.
type JobArgs struct {
	// Query is the research question, unique together with Mode.
	Query string `json:"query" river:"unique"`
	// Mode is the research mode, unique together with Query.
	Mode string `json:"mode" river:"unique"`
	// MaxIterations and MaxTimeMinutes are the validated run bounds.
	MaxIterations  int `json:"maxIterations"`
	MaxTimeMinutes int `json:"maxTimeMinutes"`
	// OutputLength is the desired report length.
	OutputLength string `json:"outputLength"`
	// BackgroundContext is prior knowledge for the researcher.
	BackgroundContext string `json:"backgroundContext"`

	// maxAttempts configures how often River retries the job.
	maxAttempts int
	// uniqueJobPeriod is the lookback window during which a job with the same
	// unique key counts as a duplicate.
	uniqueJobPeriod time.Duration
}

// Kind returns the River job kind used to register and dispatch the research worker.
func (args JobArgs) Kind() string { return "ResearchJob" }

// InsertOpts controls enqueueing: retry attempts and uniqueness across every
// non-terminal state plus recent completions.
func (args JobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: args.maxAttempts,
		// one job per (query, mode) in any state
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: args.uniqueJobPeriod,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStateCompleted,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}
