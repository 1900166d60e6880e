package models

import "time"

// User is a read-only copy of an account. TaskCount is filled only in the
// admin listing.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	TaskCount int       `json:"task_count,omitempty"`
}

// Session is a bearer token together with the user it belongs to.
type Session struct {
	Token string
	User  User
}
