package domain

import (
	"strings"
	"time"
)

// User is an account inside one tenant's schema. Email is the login
// identifier and is unique within the tenant.
type User struct {
	ID           string
	Email        string // normalized to lower case
	FullName     string // optional display name
	PasswordHash string // argon2id PHC string, never serialized
	IsStaff      bool
	IsActive     bool
	DateJoined   time.Time
	LastLogin    *time.Time // nil until the first successful login
}

// DisplayName returns the full name, falling back to the email.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// ShortName returns the first whitespace-delimited token of the full
// name, falling back to the email.
func (u User) ShortName() string {
	fields := strings.Fields(u.FullName)
	if len(fields) == 0 {
		return u.Email
	}
	return fields[0]
}
