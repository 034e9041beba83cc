package interfaces

import "time"

// -----------------------------------------------------------------------------
// IAccountJobScheduler owns the recurring per-account refresh jobs.
// -----------------------------------------------------------------------------

type IAccountJobScheduler interface {

	// StartAccountJob schedules the refresh job for accountID. Calling it
	// again for a scheduled account is a no-op.
	StartAccountJob(accountID int64, interval time.Duration) error

	// -----------------------------------------------------------------------------

	// StopAccountJob removes the job. A run already in progress finishes.
	StopAccountJob(accountID int64)
}
