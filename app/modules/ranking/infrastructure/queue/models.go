package rankingqueue

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// QueueName is the River queue ranking jobs run on.
const QueueName = "ranking"

// RankContestJob asks a worker to rank one contest.
type RankContestJob struct {
	ContestID     int64  `json:"contest_id" river:"unique"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Kind returns the job type identifier for River
func (RankContestJob) Kind() string { return "rank_contest" }

// InsertOpts keeps at most one pending or running job per contest. Only
// ContestID takes part in uniqueness.
func (RankContestJob) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: QueueName,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			// completed jobs must not block a later re-rank
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRetryable,
				rivertype.JobStateRunning,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// JobInfo represents information about a queued job (for debugging/monitoring)
type JobInfo struct {
	ID          int64  `json:"id"`
	ContestID   int64  `json:"contest_id"`
	State       string `json:"state"`
	CreatedAt   string `json:"created_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
