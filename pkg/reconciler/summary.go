package reconciler

import (
	"time"

	"github.com/cuemby/failover/pkg/types"
)

// StatusChange is a status flip decided during a pass
type StatusChange struct {
	RecordID string             `json:"recordId"`
	Record   string             `json:"record"`
	Node     string             `json:"node"`
	From     types.RecordStatus `json:"from"`
	To       types.RecordStatus `json:"to"`

	// Applied is false for dry runs
	Applied bool `json:"applied"`
}

// PassSummary reports what one reconciliation pass saw and did
type PassSummary struct {
	PassID     string        `json:"passId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Duration   time.Duration `json:"durationNs"`
	DryRun     bool          `json:"dryRun"`
	Aborted    bool          `json:"aborted"`

	Pages        int `json:"pages"`
	PageFailures int `json:"pageFailures"`
	Listed       int `json:"listed"`
	Matched      int `json:"matched"`

	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`

	Enabled        int `json:"enabled"`
	Disabled       int `json:"disabled"`
	Unchanged      int `json:"unchanged"`
	UpdateFailures int `json:"updateFailures"`

	Changes []StatusChange `json:"changes,omitempty"`
	Errors  []string       `json:"errors,omitempty"`
}

// Result classifies the pass for metrics: success, partial or aborted
func (s *PassSummary) Result() string {
	switch {
	case s.Aborted:
		return "aborted"
	case s.PageFailures > 0 || s.UpdateFailures > 0:
		return "partial"
	default:
		return "success"
	}
}

func (s *PassSummary) clone() PassSummary {
	c := *s
	c.Changes = append([]StatusChange(nil), s.Changes...)
	c.Errors = append([]string(nil), s.Errors...)
	return c
}
