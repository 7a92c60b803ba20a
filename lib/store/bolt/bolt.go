// Package bolt implements the interface for an embedded bbolt database, for single instance deployments that do
// not want to run a database server.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/tarancss/userdetails/lib/store"
)

// bucketSubmissions holds one nested bucket per user, keyed by creation time and id.
var bucketSubmissions = []byte("submissions")

// Bolt wraps a bbolt database.
type Bolt struct {
	db *bbolt.DB
}

// New opens or creates the database file at path. The parent directory is created if it does not exist.
func New(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("bolt: create directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	if err = db.Update(func(tx *bbolt.Tx) error {
		_, errB := tx.CreateBucketIfNotExists(bucketSubmissions)

		return errB
	}); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("bolt: create buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// CloseBolt closes the database file.
func (b *Bolt) CloseBolt() error {
	return b.db.Close()
}

// key sorts submissions of a user by creation time.
func key(s store.Submission) []byte {
	k := make([]byte, 8, 8+len(s.ID))
	binary.BigEndian.PutUint64(k, uint64(s.Created.UnixNano()))

	return append(k, s.ID...)
}

// AddSubmission saves a submission and returns its id.
func (b *Bolt) AddSubmission(s store.Submission) (string, error) {
	if err := s.Prepare(); err != nil {
		return "", err
	}

	v, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		ub, errB := tx.Bucket(bucketSubmissions).CreateBucketIfNotExists([]byte(s.User))
		if errB != nil {
			return errB
		}

		return ub.Put(key(s), v)
	})
	if err != nil {
		return "", fmt.Errorf("bolt: put submission: %w", err)
	}

	return s.ID, nil
}

// GetSubmissions returns the submissions of user, newest first.
func (b *Bolt) GetSubmissions(user string, limit int) ([]store.Submission, error) {
	subs := []store.Submission{}

	err := b.db.View(func(tx *bbolt.Tx) error {
		ub := tx.Bucket(bucketSubmissions).Bucket([]byte(user))
		if ub == nil {
			return nil
		}

		c := ub.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(subs) == limit {
				break
			}

			var s store.Submission
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("decode submission %x: %w", k, err)
			}

			subs = append(subs, s)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: get submissions: %w", err)
	}

	return subs, nil
}

// DeleteSubmissions removes every submission of user.
func (b *Bolt) DeleteSubmissions(user string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketSubmissions).DeleteBucket([]byte(user))
		if err == bbolt.ErrBucketNotFound {
			return nil
		}

		return err
	})
}
