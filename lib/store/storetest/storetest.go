// Package storetest holds the behaviour every journal database must show, shared by the store implementations'
// tests.
package storetest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/userdetails/lib/store"
)

// Run exercises db with submissions of a fresh user, removed again with cleanup.
func Run(t *testing.T, db store.DB, cleanup func(user string) error) {
	t.Helper()

	user := "Usr" + time.Now().Format("20060102150405.000000000")
	other := user + "x"
	oldest := user + "y"

	defer func() {
		assert.NoError(t, cleanup(user))
		assert.NoError(t, cleanup(other))
		assert.NoError(t, cleanup(oldest))
	}()

	subs, err := db.GetSubmissions(user, 0)
	require.NoError(t, err)
	assert.Empty(t, subs)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		id, errAdd := db.AddSubmission(store.Submission{
			User:      user,
			Account:   "acc",
			Signature: "sig-" + name,
			Name:      name,
			Age:       uint64(20 + i),
			Address:   "street",
			Cluster:   "devnet",
			Created:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, errAdd)
		assert.NotEmpty(t, id)
	}

	_, err = db.AddSubmission(store.Submission{User: other, Signature: "sig-other", Created: base})
	require.NoError(t, err)

	_, err = db.AddSubmission(store.Submission{Signature: "orphan"})
	assert.True(t, errors.Is(err, store.ErrNoUser), "err:%v", err)

	subs, err = db.GetSubmissions(user, 0)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "third", subs[0].Name)
	assert.Equal(t, "first", subs[2].Name)
	assert.Equal(t, uint64(22), subs[0].Age)
	assert.True(t, subs[0].Created.Equal(base.Add(2*time.Minute)), "created:%v", subs[0].Created)

	subs, err = db.GetSubmissions(user, 2)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "sig-second", subs[1].Signature)

	subs, err = db.GetSubmissions(other, 0)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	// the whole u64 range of ages is kept
	_, err = db.AddSubmission(store.Submission{User: oldest, Signature: "sig-max", Age: math.MaxUint64, Created: base})
	require.NoError(t, err)

	subs, err = db.GetSubmissions(oldest, 0)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, uint64(math.MaxUint64), subs[0].Age)
}
