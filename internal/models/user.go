package models

import "time"

// AuthUser is a locally registered account. PassHash is an encoded salted
// hash and is never serialized to API responses.
type AuthUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	PassHash  string    `json:"pass_hash"`
	CreatedAt time.Time `json:"created_at"`

	// SessionVersion is signed into session cookies; bumping it revokes them.
	SessionVersion int `json:"session_version,omitempty"`
}

// Profile is the public view of a user.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Profile returns the public view of u.
func (u AuthUser) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}
