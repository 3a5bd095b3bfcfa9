// Package analytics records the audit trail of the login flow.
//
// Events are fanned out to emitters (console, audit log, OTel, Kafka) on a
// best-effort basis: recording never blocks and never fails the caller.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies an analytics event.
type Kind string

const (
	KindOTPGenerated         Kind = "OTP_GENERATED"
	KindOTPValidationSuccess Kind = "OTP_VALIDATION_SUCCESS"
	KindOTPValidationFailure Kind = "OTP_VALIDATION_FAILURE"
	KindLogout               Kind = "LOGOUT"
)

// Kinds lists every event kind the flow emits.
var Kinds = []Kind{KindOTPGenerated, KindOTPValidationSuccess, KindOTPValidationFailure, KindLogout}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Attribute keys shared by emitters and consumers.
const (
	AttrEmail    = "email"
	AttrCode     = "code"
	AttrReason   = "reason"
	AttrAttempts = "attempts"
	AttrDuration = "duration"
)

// Event is a single analytics record.
type Event struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"event"`
	Attributes map[string]string `json:"details,omitempty"`
	CreatedAt  time.Time         `json:"timestamp"`
}

// NewEvent returns an event with a fresh ID. attrs is copied.
func NewEvent(kind Kind, attrs map[string]string, at time.Time) *Event {
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return &Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		Attributes: copied,
		CreatedAt:  at.UTC(),
	}
}
