package models

import "time"

// User lifecycle states.
const (
	UserStatusActive = "active"
	UserStatusGuest  = "guest"
)

// User is a LINE end-user, or a transient guest created for an OCR upload
// with no LINE id attached. Never deleted by the core (§3).
type User struct {
	ID                int64     `json:"id"`
	LineUserID        string    `json:"line_user_id,omitempty"`
	PreferredLanguage string    `json:"preferred_language"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

// IsGuest reports whether this user was created without a real LINE id.
func (u *User) IsGuest() bool {
	return u.Status == UserStatusGuest
}
