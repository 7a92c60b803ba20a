package bolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tarancss/userdetails/lib/store"
	"github.com/tarancss/userdetails/lib/store/storetest"
)

func TestBolt(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "journal", "ud.db"))
	require.NoError(t, err)

	defer func() { require.NoError(t, b.CloseBolt()) }()

	storetest.Run(t, b, b.DeleteSubmissions)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ud.db")

	b, err := New(path)
	require.NoError(t, err)

	_, err = b.AddSubmission(store.Submission{User: "Usr1", Signature: "sig"})
	require.NoError(t, err)
	require.NoError(t, b.CloseBolt())

	b, err = New(path)
	require.NoError(t, err)

	defer b.CloseBolt()

	subs, err := b.GetSubmissions("Usr1", 0)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "sig", subs[0].Signature)
}
