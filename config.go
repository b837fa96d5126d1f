package trustwork

import "time"

// Config holds configuration for the escrow ledger.
type Config struct {
	// MinDeadline is the minimum distance between creation time and a
	// job's deadline. Zero only requires the deadline to be in the future.
	MinDeadline time.Duration `json:"min_deadline"`

	// MaxTitleLength bounds job titles. Zero means unbounded.
	MaxTitleLength int `json:"max_title_length"`

	// MaxDescriptionLength bounds job descriptions. Zero means unbounded.
	MaxDescriptionLength int `json:"max_description_length"`

	// Arbitrators restricts who may resolve disputes. Empty means any
	// identity that is neither party to the job.
	Arbitrators []string `json:"arbitrators,omitempty"`

	// SweepSchedule is the cron expression for the deadline sweeper.
	// Empty disables the sweeper.
	SweepSchedule string `json:"sweep_schedule,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTitleLength:       200,
		MaxDescriptionLength: 10_000,
	}
}
