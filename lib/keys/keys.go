// Package keys parses the secret key material used to sign transactions.
package keys

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Errors returned.
var (
	ErrNoKey       = errors.New("no secret key configured")
	ErrKeyLength   = errors.New("secret key must be 64 bytes")
	ErrKeyByte     = errors.New("secret key array holds a value out of byte range")
	ErrKeyMismatch = errors.New("secret key public half does not match its seed")
)

// Parse returns the keypair encoded in s, which is either a JSON array of 64 numbers (as written by solana-keygen)
// or the base58 encoding of the same 64 bytes.
func Parse(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoKey
	}

	var b []byte

	if strings.HasPrefix(s, "[") {
		var nums []int
		if err := json.Unmarshal([]byte(s), &nums); err != nil {
			return nil, fmt.Errorf("cannot decode secret key array: %w", err)
		}

		b = make([]byte, len(nums))

		for i, n := range nums {
			if n < 0 || n > 255 {
				return nil, ErrKeyByte
			}

			b[i] = byte(n)
		}
	} else {
		var err error
		if b, err = base58.Decode(s); err != nil {
			return nil, fmt.Errorf("cannot decode base58 secret key: %w", err)
		}
	}

	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: got %d", ErrKeyLength, len(b))
	}

	pub := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize]).Public().(ed25519.PublicKey)
	if !bytes.Equal(pub, b[ed25519.SeedSize:]) {
		return nil, ErrKeyMismatch
	}

	return solana.PrivateKey(b), nil
}
