package domain

import "time"

// RunStatus is the terminal state of an ingestion run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunStats aggregates counters over one ingestion run.
type RunStats struct {
	WalletsProcessed int
	Fetched          map[Platform]int
	Inserted         map[Platform]int
	Errors           int
	Elapsed          time.Duration
}

// NewRunStats returns zeroed stats with initialized maps.
func NewRunStats() RunStats {
	return RunStats{
		Fetched:  make(map[Platform]int),
		Inserted: make(map[Platform]int),
	}
}

// TotalInserted sums inserted rows across venues.
func (s RunStats) TotalInserted() int {
	total := 0
	for _, n := range s.Inserted {
		total += n
	}
	return total
}

// Run is one row of the run history.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     *time.Time
	PlatformFilter []Platform
	WalletFilter   string
	Status         RunStatus
	Stats          RunStats
	Error          *string
}
