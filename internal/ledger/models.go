package ledger

import "time"

// Status is the outcome of an encode run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded encode.
type Run struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	InputPath    string
	InputHash    string
	OutputPath   string
	ManifestID   string
	Frames       uint64
	Tiles        uint64
	PackBytes    uint64
	SidecarCID   string
	AudioCID     string
	Status       Status
	ErrorClass   string
	ErrorMessage string
}

// Duration returns the wall-clock time the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
