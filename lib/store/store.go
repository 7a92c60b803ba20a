// Package store defines the interface for database implementations of the submission journal.
package store

import (
	"errors"
)

// DB defines required methods for a submission journal.
type DB interface {
	// AddSubmission records a submitted transaction. An empty ID is filled in by the store.
	AddSubmission(Submission) (string, error)
	// GetSubmissions returns the submissions made for user, newest first. limit <= 0 returns them all.
	GetSubmissions(user string, limit int) ([]Submission, error)
}

// Errors returned
var (
	ErrNoUser = errors.New("submission has no user")
)
