// Package types common ledger types.
package types

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// Account is a ledger storage slot as returned by the network.
type Account struct {
	Address solana.PublicKey `json:"address"`
	Owner   solana.PublicKey `json:"owner"`
	Data    []byte           `json:"data"`
}

// User is the user details record kept by the program, shaped for clients.
type User struct {
	Name     string `json:"name"`
	Age      uint64 `json:"age"`
	Address  string `json:"address"`
	Identity string `json:"identity"` // base58 public key of the user
}

// Details are the fields a client can write for a user.
type Details struct {
	Name    string `json:"name"`
	Age     uint64 `json:"age"`
	Address string `json:"address"`
}

// Status tags the outcome of a lookup.
type Status uint8

// Lookup outcomes.
const (
	Found Status = iota
	NotFound
	Failed
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case Failed:
		return "failed"
	}

	return "unknown"
}

// Lookup is the result of fetching a single user record. User is only set when Status is Found and Err only when
// Status is Failed.
type Lookup struct {
	Status Status
	User   User
	Err    error
}

// Error codes.
var (
	ErrNoAccount     = errors.New("account not found")
	ErrNoBlockhash   = errors.New("latest blockhash not available")
	ErrAccountDecode = errors.New("unable to decode account data")
	ErrNoCluster     = errors.New("unknown cluster and no rpc endpoint given")
)
