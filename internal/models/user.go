package models

import "github.com/google/uuid"

// User represents a registered user account.
// Bills can be created by guests too; an account adds bill history,
// statistics, and creator-only deletion.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// FullName is the display name of the user.
	FullName string

	// Email is the user's email address (unique, lowercased).
	// Used for login and notifications.
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser creates a user with a fresh ID. CreatedAt is set by the store.
func NewUser(email, fullName, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
	}
}
