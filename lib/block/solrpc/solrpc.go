// Package solrpc implements the ledger interface for Solana JSON-RPC nodes.
package solrpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/tarancss/userdetails/lib/block/types"
)

// Cluster names.
const (
	Devnet      = "devnet"
	Testnet     = "testnet"
	MainnetBeta = "mainnet-beta"
	Localnet    = "localnet"
)

// Solana implements a connection to a Solana JSON-RPC node.
type Solana struct {
	c          *rpc.Client
	commitment rpc.CommitmentType
}

// Endpoint returns the public RPC url of a cluster, or "" if the cluster is unknown.
func Endpoint(cluster string) string {
	switch cluster {
	case Devnet:
		return rpc.DevNet_RPC
	case Testnet:
		return rpc.TestNet_RPC
	case MainnetBeta:
		return rpc.MainNetBeta_RPC
	case Localnet:
		return rpc.LocalNet_RPC
	}

	return ""
}

// Init returns a client of the node at url.
func Init(url string) *Solana {
	return &Solana{c: rpc.New(url), commitment: rpc.CommitmentConfirmed}
}

// Close ends the connection.
func (s *Solana) Close() {
	_ = s.c.Close()
}

// ProgramAccounts returns all accounts owned by program whose data begins with prefix. An empty prefix returns every
// account of the program.
func (s *Solana) ProgramAccounts(ctx context.Context, program solana.PublicKey, prefix []byte) ([]types.Account, error) {
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: s.commitment,
		Encoding:   solana.EncodingBase64,
	}
	if len(prefix) > 0 {
		opts.Filters = []rpc.RPCFilter{{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: solana.Base58(prefix)}}}
	}

	res, err := s.c.GetProgramAccountsWithOpts(ctx, program, opts)
	if err != nil {
		return nil, fmt.Errorf("getProgramAccounts %s: %w", program, err)
	}

	accs := make([]types.Account, 0, len(res))

	for _, ka := range res {
		if ka == nil || ka.Account == nil {
			continue
		}

		accs = append(accs, toAccount(ka.Pubkey, ka.Account))
	}

	return accs, nil
}

// Account returns the account stored at addr, or types.ErrNoAccount if there is none.
func (s *Solana) Account(ctx context.Context, addr solana.PublicKey) (types.Account, error) {
	res, err := s.c.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Commitment: s.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (res == nil || res.Value == nil)) {
		return types.Account{}, types.ErrNoAccount
	}

	if err != nil {
		return types.Account{}, fmt.Errorf("getAccountInfo %s: %w", addr, err)
	}

	return toAccount(addr, res.Value), nil
}

// LatestBlockhash returns the most recent blockhash seen by the node.
func (s *Solana) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := s.c.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}

	if res == nil || res.Value == nil {
		return solana.Hash{}, types.ErrNoBlockhash
	}

	return res.Value.Blockhash, nil
}

// Send submits a signed transaction and returns its signature. It does not wait for confirmation.
func (s *Solana) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := s.c.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{PreflightCommitment: s.commitment})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction: %w", err)
	}

	return sig, nil
}

func toAccount(addr solana.PublicKey, a *rpc.Account) types.Account {
	acc := types.Account{Address: addr, Owner: a.Owner}
	if a.Data != nil {
		acc.Data = a.Data.GetBinary()
	}

	return acc
}
