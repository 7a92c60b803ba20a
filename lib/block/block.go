// Package block defines the interface required for ledger or network connections.
package block

import (
	"context"
	"log"

	"github.com/gagliardetto/solana-go"

	"github.com/tarancss/userdetails/lib/block/solrpc"
	"github.com/tarancss/userdetails/lib/block/types"
	"github.com/tarancss/userdetails/lib/config"
)

// Ledger is an interface that contains the methods the facade needs from a network. All calls are bounded by the
// given context.
type Ledger interface {
	Close()
	// ProgramAccounts returns the accounts owned by program whose data starts with prefix.
	ProgramAccounts(ctx context.Context, program solana.PublicKey, prefix []byte) ([]types.Account, error)
	// Account returns the account at addr or types.ErrNoAccount.
	Account(ctx context.Context, addr solana.PublicKey) (types.Account, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Init returns a client to the ledger described by the config.
func Init(lc config.LedgerConfig) (Ledger, error) {
	node := lc.RPC
	if node == "" {
		node = solrpc.Endpoint(lc.Cluster)
	}

	if node == "" {
		return nil, types.ErrNoCluster
	}

	log.Printf("[%s] Connecting to ledger rpc %s", lc.Cluster, node)

	return solrpc.Init(node), nil
}

// End closes the ledger client.
func End(l Ledger) {
	if l != nil {
		l.Close()
	}
}
