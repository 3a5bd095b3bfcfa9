package otp

import (
	"errors"
	"fmt"
)

// Reason classifies a failed validation.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotFound
	ReasonExpired
	ReasonAttemptsExhausted
	ReasonIncorrectCode
)

// Sentinel errors matching each failure reason, for callers that prefer errors.Is.
var (
	ErrNotFound          = errors.New("no OTP requested for this email")
	ErrExpired           = errors.New("OTP has expired")
	ErrAttemptsExhausted = errors.New("too many failed attempts")
	ErrIncorrectCode     = errors.New("incorrect OTP")
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotFound:
		return "not_found"
	case ReasonExpired:
		return "expired"
	case ReasonAttemptsExhausted:
		return "attempts_exhausted"
	case ReasonIncorrectCode:
		return "incorrect_code"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Result is the outcome of ValidateOtp. Remaining is only meaningful for
// ReasonIncorrectCode and for the attempt that exhausts the ceiling.
type Result struct {
	Success   bool
	Reason    Reason
	Remaining int
}

// Err returns the sentinel error for a failed result, or nil on success.
func (r Result) Err() error {
	switch r.Reason {
	case ReasonNotFound:
		return ErrNotFound
	case ReasonExpired:
		return ErrExpired
	case ReasonAttemptsExhausted:
		return ErrAttemptsExhausted
	case ReasonIncorrectCode:
		return ErrIncorrectCode
	}
	return nil
}

// Message returns the user-facing text for the result.
func (r Result) Message() string {
	switch r.Reason {
	case ReasonNone:
		if r.Success {
			return "OTP verified"
		}
		return ""
	case ReasonNotFound:
		return "No OTP requested for this email."
	case ReasonExpired:
		return "OTP has expired. Please request a new one."
	case ReasonAttemptsExhausted:
		return "Too many failed attempts. Please request a new OTP."
	case ReasonIncorrectCode:
		if r.Remaining == 1 {
			return "Incorrect OTP. 1 attempt remaining."
		}
		return fmt.Sprintf("Incorrect OTP. %d attempts remaining.", r.Remaining)
	}
	return r.Reason.String()
}
