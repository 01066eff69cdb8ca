// Package audit records one entry per reconciliation attempt to a rotating
// JSONL log, independent of the state store: the state store remembers the
// last attempt for future reconciliation, the audit log remembers every
// attempt for operators.
package audit

import (
	"fmt"
	"time"

	"github.com/vxlanevpn/reconciler/pkg/model"
)

// Event represents one reconciliation attempt.
type Event struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Mode       model.Mode    `json:"mode"`
	Initial    bool          `json:"initial"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	RolledBack bool          `json:"rolled_back"`

	VlansAdded   int `json:"vlans_added"`
	VlansRemoved int `json:"vlans_removed"`
	VlansChanged int `json:"vlans_changed"`
	VrfsAdded    int `json:"vrfs_added"`
	VrfsRemoved  int `json:"vrfs_removed"`
	VrfsChanged  int `json:"vrfs_changed"`
}

// Filter defines criteria for querying audit events.
type Filter struct {
	Mode        model.Mode
	SuccessOnly bool
	FailureOnly bool
	RolledBack  bool
	StartTime   time.Time
	EndTime     time.Time
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event for a reconciliation attempt in mode m.
func NewEvent(m model.Mode) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		Mode:      m,
	}
}

// WithInitial marks whether the attempt was an initial (no prior state) apply.
func (e *Event) WithInitial(initial bool) *Event {
	e.Initial = initial
	return e
}

// WithSuccess marks the event as successful.
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed.
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the attempt's wall-clock duration.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithRolledBack marks whether the journal was unwound for this attempt.
func (e *Event) WithRolledBack(rolledBack bool) *Event {
	e.RolledBack = rolledBack
	return e
}

// WithVlanCounts records the VLAN portion of a diff-driven apply.
func (e *Event) WithVlanCounts(added, removed, changed int) *Event {
	e.VlansAdded, e.VlansRemoved, e.VlansChanged = added, removed, changed
	return e
}

// WithVrfCounts records the VRF portion of a diff-driven apply.
func (e *Event) WithVrfCounts(added, removed, changed int) *Event {
	e.VrfsAdded, e.VrfsRemoved, e.VrfsChanged = added, removed, changed
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
