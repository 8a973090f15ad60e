package gate

import (
	"time"

	"github.com/danielpatrickdp/choice-experiment/internal/record"
)

// #region result
// Result is the outcome of one submission attempt.
type Result struct {
	OK            bool
	SubmittedAt   string // shared by every row of the batch
	HeaderWritten bool
	Rows          int
	Spooled       bool
	SpoolID       string
	Err           error
}

// #endregion result

// #region pending
// Pending is a spooled batch that failed to reach the sheet.
type Pending struct {
	ID          string
	Participant string
	SubmittedAt string
	Records     []record.Response
	Attempts    int
	LastError   string
	CreatedAt   time.Time
}

// #endregion pending

// #region resubmit-config
// ResubmitConfig bounds the backoff used when draining the spool.
type ResubmitConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultResubmitConfig returns five tries starting at 500ms.
func DefaultResubmitConfig() ResubmitConfig {
	return ResubmitConfig{
		MaxTries:        5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// DrainSummary counts the outcome of one Drain pass.
type DrainSummary struct {
	Pending     int
	Resubmitted int
	Failed      int
}

// #endregion resubmit-config
