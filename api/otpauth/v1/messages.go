package otpauthv1

import "time"

type RequestCodeRequest struct {
	Email string `json:"email"`
}

type RequestCodeResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	// Code is set only when the server returns codes to the client instead of emailing them.
	Code string `json:"code,omitempty"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type VerifyCodeResponse struct {
	Success           bool   `json:"success"`
	Reason            string `json:"reason,omitempty"`
	Message           string `json:"message"`
	RemainingAttempts int32  `json:"remaining_attempts,omitempty"`

	SessionToken   string         `json:"session_token,omitempty"`
	TokenExpiresAt *time.Time     `json:"token_expires_at,omitempty"`
	Session        *SessionStatus `json:"session,omitempty"`
}

type IsBlockedRequest struct {
	Email string `json:"email"`
}

type IsBlockedResponse struct {
	Blocked bool `json:"blocked"`
}

// SessionStatus is a signed-in session with its elapsed time.
type SessionStatus struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	// LoginTimestamp is Unix milliseconds.
	LoginTimestamp    int64  `json:"login_timestamp"`
	ElapsedSeconds    int64  `json:"elapsed_seconds"`
	FormattedDuration string `json:"formatted_duration"`
}

type GetSessionRequest struct{}

type GetSessionResponse struct {
	Session *SessionStatus `json:"session"`
}

type WatchSessionRequest struct{}

// WatchSessionResponse is one tick of the session timer.
type WatchSessionResponse struct {
	ElapsedSeconds    int64  `json:"elapsed_seconds"`
	FormattedDuration string `json:"formatted_duration"`
}

type LogoutRequest struct{}

type LogoutResponse struct {
	Session *SessionStatus `json:"session"`
}

type AuditEvent struct {
	ID        string            `json:"id"`
	Event     string            `json:"event"`
	Email     string            `json:"email,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type ListEventsRequest struct {
	Email  string `json:"email,omitempty"`
	Event  string `json:"event,omitempty"`
	Limit  int32  `json:"limit,omitempty"`
	Offset int32  `json:"offset,omitempty"`
}

type ListEventsResponse struct {
	Events []*AuditEvent `json:"events"`
}

type ClearEventsRequest struct{}

type ClearEventsResponse struct {
	Deleted int64 `json:"deleted"`
}
