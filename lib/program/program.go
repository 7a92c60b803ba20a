// Package program is the client of the on-chain user details program. It derives the account holding a user's
// details, decodes those accounts through the program IDL and builds, signs and submits storeDetails transactions.
package program

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/gagliardetto/solana-go"

	"github.com/tarancss/userdetails/lib/block"
	"github.com/tarancss/userdetails/lib/block/solrpc"
	"github.com/tarancss/userdetails/lib/block/types"
	"github.com/tarancss/userdetails/lib/idl"
)

// Names used by the program interface.
const (
	DetailsSeed        = "details"
	DetailsAccount     = "UserDetails"
	StoreDetailsMethod = "storeDetails"
)

// ExplorerURL is the format of the transaction link returned to clients.
const ExplorerURL = "https://explorer.solana.com/tx/%s"

// Errors returned.
var (
	ErrIDL          = errors.New("idl does not describe the user details program")
	ErrNoPayer      = errors.New("no fee payer key configured")
	ErrSigner       = errors.New("instruction requires a signer the service does not hold")
	ErrUnknownMeta  = errors.New("instruction account not known to the service")
	ErrRecordFormat = errors.New("user details account has unexpected fields")
)

// Config is what the program client needs to know, resolved once at startup. RPC is only used to link localnet
// transactions and defaults to the local validator.
type Config struct {
	ProgramID solana.PublicKey
	Payer     solana.PrivateKey
	Cluster   string
	RPC       string
}

// Program talks to the user details program through a ledger.
type Program struct {
	cfg    Config
	ledger block.Ledger
	coder  *idl.Coder
}

// New returns a program client. It fails if the IDL lacks the storeDetails instruction or the UserDetails account.
func New(cfg Config, ledger block.Ledger, coder *idl.Coder) (*Program, error) {
	if _, ok := coder.IDL().Instruction(StoreDetailsMethod); !ok {
		return nil, fmt.Errorf("%w: missing instruction %s", ErrIDL, StoreDetailsMethod)
	}

	if _, ok := coder.IDL().Account(DetailsAccount); !ok {
		return nil, fmt.Errorf("%w: missing account %s", ErrIDL, DetailsAccount)
	}

	return &Program{cfg: cfg, ledger: ledger, coder: coder}, nil
}

// ID returns the program address.
func (p *Program) ID() solana.PublicKey {
	return p.cfg.ProgramID
}

// Cluster returns the cluster name the program client was configured for.
func (p *Program) Cluster() string {
	return p.cfg.Cluster
}

// DetailsAddress derives the account storing the details of user: the program address of seeds "details" and the
// user key.
func (p *Program) DetailsAddress(user solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(DetailsSeed), user.Bytes()}, p.cfg.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("cannot derive details address of %s: %w", user, err)
	}

	return addr, nil
}

// Users returns every user details record held by the program.
func (p *Program) Users(ctx context.Context) ([]types.User, error) {
	accs, err := p.ledger.ProgramAccounts(ctx, p.cfg.ProgramID, idl.AccountDiscriminator(DetailsAccount))
	if err != nil {
		return nil, err
	}

	users := make([]types.User, 0, len(accs))

	for _, a := range accs {
		u, err := p.decode(a.Data)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", a.Address, err)
		}

		users = append(users, u)
	}

	return users, nil
}

// User looks up the details of user. A missing account, or one the program does not own, is reported as NotFound.
func (p *Program) User(ctx context.Context, user solana.PublicKey) types.Lookup {
	addr, err := p.DetailsAddress(user)
	if err != nil {
		return types.Lookup{Status: types.Failed, Err: err}
	}

	acc, err := p.ledger.Account(ctx, addr)
	if errors.Is(err, types.ErrNoAccount) {
		return types.Lookup{Status: types.NotFound}
	}

	if err != nil {
		return types.Lookup{Status: types.Failed, Err: err}
	}

	if !acc.Owner.Equals(p.cfg.ProgramID) {
		return types.Lookup{Status: types.NotFound}
	}

	u, err := p.decode(acc.Data)
	if err != nil {
		return types.Lookup{Status: types.Failed, Err: fmt.Errorf("account %s: %w", addr, err)}
	}

	return types.Lookup{Status: types.Found, User: u}
}

// StoreDetails submits a storeDetails transaction for user paid and signed by the service key. It returns as soon
// as the node accepts the transaction.
func (p *Program) StoreDetails(ctx context.Context, user solana.PublicKey, d types.Details) (solana.Signature, error) {
	if len(p.cfg.Payer) == 0 {
		return solana.Signature{}, ErrNoPayer
	}

	details, err := p.DetailsAddress(user)
	if err != nil {
		return solana.Signature{}, err
	}

	ix, err := p.storeDetailsInstruction(user, details, d)
	if err != nil {
		return solana.Signature{}, err
	}

	hash, err := p.ledger.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	payer := p.cfg.Payer.PublicKey()

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, hash, solana.TransactionPayer(payer))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("cannot compile transaction: %w", err)
	}

	tx.Message.SetVersion(solana.MessageVersionV0)

	if _, err = tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(payer) {
			return &p.cfg.Payer
		}

		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("cannot sign transaction: %w", err)
	}

	return p.ledger.Send(ctx, tx)
}

// ExplorerURL returns the link to a transaction on the public explorer of the configured cluster. The explorer
// reaches a local validator as a custom cluster given by its rpc url.
func (p *Program) ExplorerURL(sig solana.Signature) string {
	link := fmt.Sprintf(ExplorerURL, sig)

	switch p.cfg.Cluster {
	case "", solrpc.MainnetBeta:
	case solrpc.Localnet:
		rpc := p.cfg.RPC
		if rpc == "" {
			rpc = solrpc.Endpoint(solrpc.Localnet)
		}

		link += "?cluster=custom&customUrl=" + url.QueryEscape(rpc)
	default:
		link += "?cluster=" + p.cfg.Cluster
	}

	return link
}

// storeDetailsInstruction lays out the accounts in the order the IDL declares them.
func (p *Program) storeDetailsInstruction(user, details solana.PublicKey, d types.Details) (solana.Instruction, error) {
	def, _ := p.coder.IDL().Instruction(StoreDetailsMethod)

	payer := p.cfg.Payer.PublicKey()
	known := map[string]solana.PublicKey{
		"payer":         payer,
		"user":          user,
		"details":       details,
		"systemProgram": solana.SystemProgramID,
	}

	metas := make(solana.AccountMetaSlice, 0, len(def.Accounts))

	for _, a := range def.Accounts {
		pk, ok := known[a.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMeta, a.Name)
		}

		if a.IsSigner && !pk.Equals(payer) {
			return nil, fmt.Errorf("%w: %s", ErrSigner, a.Name)
		}

		metas = append(metas, solana.NewAccountMeta(pk, a.IsMut, a.IsSigner))
	}

	data, err := p.coder.EncodeInstruction(StoreDetailsMethod, d.Name, d.Age, d.Address)
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(p.cfg.ProgramID, metas, data), nil
}

func (p *Program) decode(data []byte) (types.User, error) {
	m, err := p.coder.DecodeAccount(DetailsAccount, data)
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %v", types.ErrAccountDecode, err)
	}

	var u types.User

	var ok bool

	if u.Name, ok = m["name"].(string); !ok {
		return types.User{}, fmt.Errorf("%w: name", ErrRecordFormat)
	}

	if u.Age, ok = m["age"].(uint64); !ok {
		return types.User{}, fmt.Errorf("%w: age", ErrRecordFormat)
	}

	if u.Address, ok = m["address"].(string); !ok {
		return types.User{}, fmt.Errorf("%w: address", ErrRecordFormat)
	}

	identity, ok := m["identity"].(solana.PublicKey)
	if !ok {
		return types.User{}, fmt.Errorf("%w: identity", ErrRecordFormat)
	}

	u.Identity = identity.String()

	return u, nil
}
