package mongo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tarancss/userdetails/lib/store"
	"github.com/tarancss/userdetails/lib/store/storetest"
)

var uri string = "mongodb://localhost:27017"

// TestMongo needs a MongoDB server at uri, it is skipped otherwise.
func TestMongo(t *testing.T) {
	m, err := New(uri)
	if err != nil {
		t.Skipf("no mongo DB available at %s: %v", uri, err)
	}

	defer func() {
		if err := m.CloseMongo(); err != nil {
			t.Errorf("err:%e", err)
		}
	}()

	storetest.Run(t, m, m.DeleteSubmissions)
}

func TestDocument(t *testing.T) {
	for _, age := range []uint64{0, 42, math.MaxInt64 + 1, math.MaxUint64} {
		s := store.Submission{ID: "id", User: "Usr1", Signature: "sig", Name: "Ann", Age: age,
			Created: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

		d, err := toDocument(s)
		require.NoError(t, err)

		// through the driver's codec, as InsertOne and Find do
		raw, err := bson.Marshal(d)
		require.NoError(t, err, "age %d", age)

		var back document
		require.NoError(t, bson.Unmarshal(raw, &back))

		got, err := back.submission()
		require.NoError(t, err)
		assert.Equal(t, age, got.Age)
		assert.Equal(t, s.Signature, got.Signature)
		assert.True(t, s.Created.Equal(got.Created))
	}
}
