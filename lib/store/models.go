package store

import (
	"time"

	"github.com/google/uuid"
)

// Submission contains the fields of a transaction submitted on behalf of a user.
type Submission struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Account   string    `json:"account"`
	Signature string    `json:"signature"`
	Name      string    `json:"name"`
	Age       uint64    `json:"age"`
	Address   string    `json:"address"`
	Cluster   string    `json:"cluster"`
	Created   time.Time `json:"created"`
}

// Prepare fills in the ID and creation time of s if missing, and checks it can be stored.
func (s *Submission) Prepare() error {
	if s.User == "" {
		return ErrNoUser
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	if s.Created.IsZero() {
		s.Created = time.Now().UTC()
	}

	return nil
}
