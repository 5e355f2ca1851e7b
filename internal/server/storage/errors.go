package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken indicates that a password credential already exists for this email
	ErrEmailTaken = errors.New("email already taken")

	// ErrCredentialNotFound indicates that credential record was not found
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrSessionNotFound indicates that no matching valid session exists
	ErrSessionNotFound = errors.New("session not found")

	// ErrMovieNotFound indicates that movie was not found in the catalog
	ErrMovieNotFound = errors.New("movie not found")
)
