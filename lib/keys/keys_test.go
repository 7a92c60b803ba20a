package keys

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	pk := solana.NewWallet().PrivateKey

	arr, err := json.Marshal(toInts(pk))
	require.NoError(t, err)

	got, err := Parse(string(arr))
	require.NoError(t, err)
	assert.Equal(t, pk.PublicKey(), got.PublicKey())

	got, err = Parse("  " + base58.Encode(pk) + "\n")
	require.NoError(t, err)
	assert.Equal(t, pk.PublicKey(), got.PublicKey())

	cases := []struct {
		name, in string
		err      error
	}{
		{"empty", "", ErrNoKey},
		{"short", "[1,2,3]", ErrKeyLength},
		{"range", "[1,256]", ErrKeyByte},
		{"base58", "0OIl", nil},
		{"json", "[1,2", nil},
	}

	for _, c := range cases {
		_, err := Parse(c.in)
		if assert.Error(t, err, c.name) && c.err != nil {
			assert.True(t, errors.Is(err, c.err), "[%s] err:%v", c.name, err)
		}
	}

	// public half tampered with
	bad := append(solana.PrivateKey{}, pk...)
	bad[63] ^= 1
	_, err = Parse(base58.Encode(bad))
	assert.True(t, errors.Is(err, ErrKeyMismatch), "err:%v", err)
}

func toInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}

	return out
}
