// Package models provides persisted data models for the wallet insights service.
package models

import (
	"time"
)

// User represents a registered account
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicUser is the subset of a user exposed to clients
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Public returns the client-facing view of u
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email}
}
