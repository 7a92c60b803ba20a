// Package blocktest provides a mock Solana JSON-RPC node for tests. It serves the handful of methods the ledger
// client uses from an in-memory set of accounts and records the transactions it is sent.
package blocktest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/tarancss/userdetails/lib/block/types"
)

// Node is a mock JSON-RPC node listening on URL.
type Node struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[solana.PublicKey]types.Account
	order     []solana.PublicKey
	sent      []*solana.Transaction
	fail      map[string]string
	blockhash solana.Hash
}

type request struct {
	Version string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      json.RawMessage   `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// NewNode starts a mock node. Callers should Close it when done.
func NewNode() *Node {
	n := &Node{
		accounts:  make(map[solana.PublicKey]types.Account),
		fail:      make(map[string]string),
		blockhash: solana.Hash{0x0b, 0x10, 0xc4},
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.handle))

	return n
}

// SetAccount stores or replaces an account.
func (n *Node) SetAccount(a types.Account) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.accounts[a.Address]; !ok {
		n.order = append(n.order, a.Address)
	}

	n.accounts[a.Address] = a
}

// Fail makes every call to method return an rpc error with msg. An empty msg clears the failure.
func (n *Node) Fail(method, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if msg == "" {
		delete(n.fail, method)

		return
	}

	n.fail[method] = msg
}

// Blockhash returns the hash served by getLatestBlockhash.
func (n *Node) Blockhash() solana.Hash {
	return n.blockhash
}

// Sent returns the transactions received by sendTransaction.
func (n *Node) Sent() []*solana.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]*solana.Transaction(nil), n.sent...)
}

func (n *Node) handle(w http.ResponseWriter, r *http.Request) {
	var req request

	res := response{Version: "2.0"}

	defer func() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(res)
	}()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		res.Error = &rpcError{Code: -32700, Message: err.Error()}

		return
	}

	res.ID = req.ID

	n.mu.Lock()
	defer n.mu.Unlock()

	if msg, ok := n.fail[req.Method]; ok {
		res.Error = &rpcError{Code: -32000, Message: msg}

		return
	}

	var err error

	switch req.Method {
	case "getAccountInfo":
		res.Result, err = n.getAccountInfo(req.Params)
	case "getProgramAccounts":
		res.Result, err = n.getProgramAccounts(req.Params)
	case "getLatestBlockhash":
		res.Result = map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value":   map[string]interface{}{"blockhash": n.blockhash.String(), "lastValidBlockHeight": 150},
		}
	case "sendTransaction":
		res.Result, err = n.sendTransaction(req.Params)
	default:
		err = fmt.Errorf("method %s not found", req.Method)
	}

	if err != nil {
		res.Error = &rpcError{Code: -32602, Message: err.Error()}
	}
}

func encodeAccount(a types.Account) map[string]interface{} {
	return map[string]interface{}{
		"data":       []string{base64.StdEncoding.EncodeToString(a.Data), "base64"},
		"executable": false,
		"lamports":   1_000_000,
		"owner":      a.Owner.String(),
		"rentEpoch":  0,
	}
}

func pubkeyParam(params []json.RawMessage) (solana.PublicKey, error) {
	if len(params) == 0 {
		return solana.PublicKey{}, fmt.Errorf("missing pubkey param")
	}

	var s string
	if err := json.Unmarshal(params[0], &s); err != nil {
		return solana.PublicKey{}, err
	}

	return solana.PublicKeyFromBase58(s)
}

func (n *Node) getAccountInfo(params []json.RawMessage) (interface{}, error) {
	pk, err := pubkeyParam(params)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if a, ok := n.accounts[pk]; ok {
		value = encodeAccount(a)
	}

	return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": value}, nil
}

func (n *Node) getProgramAccounts(params []json.RawMessage) (interface{}, error) {
	program, err := pubkeyParam(params)
	if err != nil {
		return nil, err
	}

	var opts struct {
		Filters []struct {
			Memcmp *struct {
				Offset int    `json:"offset"`
				Bytes  string `json:"bytes"`
			} `json:"memcmp"`
		} `json:"filters"`
	}

	if len(params) > 1 {
		if err = json.Unmarshal(params[1], &opts); err != nil {
			return nil, err
		}
	}

	out := []interface{}{}

	for _, pk := range n.order {
		a := n.accounts[pk]
		if !a.Owner.Equals(program) {
			continue
		}

		match := true

		for _, f := range opts.Filters {
			if f.Memcmp == nil {
				continue
			}

			want, errB := base58.Decode(f.Memcmp.Bytes)
			if errB != nil {
				return nil, errB
			}

			if len(a.Data) < f.Memcmp.Offset+len(want) ||
				!bytes.Equal(a.Data[f.Memcmp.Offset:f.Memcmp.Offset+len(want)], want) {
				match = false
			}
		}

		if match {
			out = append(out, map[string]interface{}{"pubkey": pk.String(), "account": encodeAccount(a)})
		}
	}

	return out, nil
}

func (n *Node) sendTransaction(params []json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing transaction param")
	}

	var s string
	if err := json.Unmarshal(params[0], &s); err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, err
	}

	if len(tx.Signatures) == 0 {
		return nil, fmt.Errorf("transaction is not signed")
	}

	if err = tx.VerifySignatures(); err != nil {
		return nil, err
	}

	n.sent = append(n.sent, tx)

	return tx.Signatures[0].String(), nil
}
