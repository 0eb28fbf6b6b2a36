package models

import "time"

// CheckOutcome is the classified result of one liveness probe
type CheckOutcome string

const (
	CheckSkipped     CheckOutcome = "skipped"
	CheckValid       CheckOutcome = "valid"
	CheckAuthInvalid CheckOutcome = "auth_invalid"
	CheckTransient   CheckOutcome = "transient"
	CheckFailed      CheckOutcome = "failed"
)

// SessionCheck records one liveness probe of the stored session
type SessionCheck struct {
	ID         string        `json:"id"`
	CheckedAt  time.Time     `json:"checked_at"`
	Outcome    CheckOutcome  `json:"outcome"`
	StatusCode int           `json:"status_code,omitempty"`
	ItemCount  int           `json:"item_count"`
	Detail     string        `json:"detail,omitempty"`
	Duration   time.Duration `json:"duration"`
	CapturedAt time.Time     `json:"session_captured_at"`
}

// SessionState maps the outcome onto the derived session state
func (c *SessionCheck) SessionState() SessionState {
	switch c.Outcome {
	case CheckValid:
		return SessionValid
	case CheckAuthInvalid:
		return SessionInvalid
	case CheckSkipped:
		return SessionAbsent
	default:
		return SessionUnreachable
	}
}
