package domain

import "time"

// RunStatus represents the execution state of a campaign run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
	RunFailed    RunStatus = "failed"
)

// CampaignRun records a single invocation of the cherry-pick loop
type CampaignRun struct {
	ID         string
	StartRef   string
	EndRef     string
	LedgerPath string
	Format     string
	Unattended bool
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Picked     int
	Skipped    int
	Conflicts  int
}
