package domain

import (
	"encoding/json"
	"time"
)

// Session is the signed-in state persisted for auto-resume.
type Session struct {
	ID             string
	Email          string
	LoginTimestamp time.Time
}

type sessionJSON struct {
	ID             string `json:"id,omitempty"`
	Email          string `json:"email"`
	LoginTimestamp int64  `json:"loginTimestamp"`
}

// MarshalJSON encodes LoginTimestamp as Unix milliseconds.
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionJSON{
		ID:             s.ID,
		Email:          s.Email,
		LoginTimestamp: s.LoginTimestamp.UnixMilli(),
	})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (s *Session) UnmarshalJSON(b []byte) error {
	var v sessionJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s.ID = v.ID
	s.Email = v.Email
	s.LoginTimestamp = time.UnixMilli(v.LoginTimestamp).UTC()
	return nil
}
