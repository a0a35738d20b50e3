// Package booking turns structured booking intents into consistent,
// collision-free appointment records reconciled against the external
// availability ledger.
package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/ds0903/cosmetology-bot-backend/internal/timeparse"
)

// Appointment statuses. A row is never deleted, only cancelled.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// Dispatcher result actions.
const (
	ActionActivate = "activate"
	ActionReject   = "reject"
	ActionChange   = "change"
	ActionNone     = "none"
	ActionError    = "error"
)

// Failure reasons carried on Result for callers and metrics.
const (
	ReasonValidation = "validation"
	ReasonConflict   = "conflict"
	ReasonNotFound   = "not_found"
	ReasonError      = "error"
)

// Appointment is the persisted booking record. The booking core is the only
// writer of its scheduling and lifecycle fields.
type Appointment struct {
	ID              uuid.UUID           `json:"id"`
	ProjectID       string              `json:"project_id"`
	ClientID        string              `json:"client_id"`
	Specialist      string              `json:"specialist"`
	Date            time.Time           `json:"date"`
	Start           timeparse.TimeOfDay `json:"time"`
	DurationMinutes int                 `json:"duration_minutes"`
	Service         string              `json:"service,omitempty"`
	ClientName      string              `json:"client_name,omitempty"`
	ClientPhone     string              `json:"client_phone,omitempty"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// DurationSlots converts the stored duration back to slot units.
func (a *Appointment) DurationSlots(slotUnitMinutes int) int {
	if slotUnitMinutes <= 0 {
		return 1
	}
	slots := a.DurationMinutes / slotUnitMinutes
	if slots < 1 {
		return 1
	}
	return slots
}

// Intent is the structured booking intent produced by the upstream NLU
// layer. At most one of Activate/Reject/Change is set. When Double is set the
// per-specialist lists carry independent times and services; the scalar
// fields apply to both specialists when the lists are absent.
type Intent struct {
	Activate bool `json:"activate_booking"`
	Reject   bool `json:"reject_order"`
	Change   bool `json:"change_order"`

	Double      bool     `json:"double_booking"`
	Specialists []string `json:"specialists_list,omitempty"`

	Specialist string `json:"specialist,omitempty"`
	TargetDate string `json:"date_order,omitempty"`
	TargetTime string `json:"time_set_up,omitempty"`
	SourceDate string `json:"date_reject,omitempty"`
	SourceTime string `json:"time_reject,omitempty"`
	Service    string `json:"procedure,omitempty"`

	Times       []string `json:"times_set_up_list,omitempty"`
	Services    []string `json:"procedures_list,omitempty"`
	SourceTimes []string `json:"times_reject_list,omitempty"`

	ClientName  string `json:"client_name,omitempty"`
	ClientPhone string `json:"client_phone,omitempty"`

	// Feedback, when present, is persisted as a side record of the turn.
	Feedback string `json:"feedback,omitempty"`

	// ResponseText is the provider's free-form reply for this turn. It is
	// only consulted as a fallback when the per-specialist lists are absent.
	ResponseText string `json:"response_text,omitempty"`
}

// Result is what every booking action returns. The dispatcher guarantees a
// Result for every invocation; errors never escape to the chat turn.
type Result struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Action     string      `json:"action"`
	Reason     string      `json:"reason,omitempty"`
	BookingIDs []uuid.UUID `json:"booking_ids,omitempty"`
	// Partial marks a double-booking cancel/reschedule where only one leg
	// succeeded; Details itemizes the per-specialist outcomes.
	Partial bool     `json:"partial,omitempty"`
	Details []string `json:"details,omitempty"`
}

func failValidation(msg string) Result {
	return Result{Success: false, Message: msg, Reason: ReasonValidation}
}

func failConflict(msg string) Result {
	return Result{Success: false, Message: msg, Reason: ReasonConflict}
}

func failNotFound(msg string) Result {
	return Result{Success: false, Message: msg, Reason: ReasonNotFound}
}
