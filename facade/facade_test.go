package facade

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/tarancss/userdetails/lib/block/blocktest"
	"github.com/tarancss/userdetails/lib/block/solrpc"
	"github.com/tarancss/userdetails/lib/block/types"
	"github.com/tarancss/userdetails/lib/idl"
	"github.com/tarancss/userdetails/lib/msg"
	"github.com/tarancss/userdetails/lib/program"
	"github.com/tarancss/userdetails/lib/store"
	"github.com/tarancss/userdetails/lib/store/bolt"
	"github.com/tarancss/userdetails/lib/store/db"
)

const idlFile = "../lib/idl/testdata/user_details.json"

// broker records the events published.
type broker struct {
	mu   sync.Mutex
	sent []msg.Event
}

func (b *broker) Setup() error { return nil }
func (b *broker) Close() error { return nil }

func (b *broker) SendStored(e msg.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sent = append(b.sent, e)

	return nil
}

type env struct {
	node  *blocktest.Node
	coder *idl.Coder
	prog  *program.Program
	api   *httptest.Server
	db    store.DB
	mb    *broker
}

func newEnv(t *testing.T, journal bool, lim *rate.Limiter) *env {
	t.Helper()

	i, err := idl.Load(idlFile)
	require.NoError(t, err)

	pid, err := i.ProgramID()
	require.NoError(t, err)

	e := &env{node: blocktest.NewNode(), coder: idl.NewCoder(i), mb: &broker{}}
	t.Cleanup(e.node.Close)

	ledger := solrpc.Init(e.node.URL)
	t.Cleanup(ledger.Close)

	e.prog, err = program.New(program.Config{ProgramID: pid, Payer: solana.NewWallet().PrivateKey,
		Cluster: solrpc.Devnet}, ledger, e.coder)
	require.NoError(t, err)

	dbtype := ""
	if journal {
		dbtype = db.BOLT
		e.db, err = bolt.New(filepath.Join(t.TempDir(), "ud.db"))
		require.NoError(t, err)
	}

	f := New(e.prog, dbtype, e.db, e.mb, lim)
	t.Cleanup(f.Stop)

	e.api = httptest.NewServer(f.Router())
	t.Cleanup(e.api.Close)

	return e
}

// store places a details account for user as the program would.
func (e *env) store(t *testing.T, user solana.PublicKey, name string, age uint64, address string) {
	t.Helper()

	addr, err := e.prog.DetailsAddress(user)
	require.NoError(t, err)

	data, err := e.coder.EncodeAccount(program.DetailsAccount, map[string]interface{}{
		"name": name, "age": age, "address": address, "identity": user,
	})
	require.NoError(t, err)

	e.node.SetAccount(types.Account{Address: addr, Owner: e.prog.ID(), Data: data})
}

func (e *env) do(t *testing.T, method, uri, body string) (int, string) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, e.api.URL+uri, rd)
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, string(b)
}

func TestAPI(t *testing.T) {
	e := newEnv(t, true, nil)

	ann := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()
	nobody := solana.NewWallet().PublicKey()

	e.store(t, ann, "Ann", 30, "Main St")
	e.store(t, bob, "Bob", 0, "Side St")

	// an account at the derived address owned by someone else is not a record
	stranger := solana.NewWallet().PublicKey()
	addr, err := e.prog.DetailsAddress(stranger)
	require.NoError(t, err)
	e.node.SetAccount(types.Account{Address: addr, Owner: solana.SystemProgramID})

	cases := []struct {
		name, method, uri string
		status            int
		resExp            string // body expected, or a fragment of it when contains is set
		contains          bool
	}{
		{"home_0", http.MethodGet, "/", 200, `{"program":"` + e.prog.ID().String() + `","cluster":"devnet"}` + "\n", false},
		{"home_1", http.MethodPost, "/", http.StatusMethodNotAllowed, "", true},
		{"users_0", http.MethodPut, "/users", http.StatusMethodNotAllowed, "", true},
		{"user_0", http.MethodGet, "/users/" + ann.String(), 200,
			`{"name":"Ann","age":30,"address":"Main St","identity":"` + ann.String() + `"}` + "\n", false},
		{"user_1", http.MethodGet, "/users/" + bob.String(), 200, `"age":0`, true},
		{"user_2", http.MethodGet, "/users/" + nobody.String(), http.StatusNotFound, MsgNotFound, false},
		{"user_3", http.MethodGet, "/users/" + stranger.String(), http.StatusNotFound, MsgNotFound, false},
		{"user_4", http.MethodGet, "/users/short", http.StatusBadRequest, MsgBadAddress, false},
		{"user_5", http.MethodGet, "/users/" + strings.Repeat("1", 45), http.StatusBadRequest, MsgBadAddress, false},
		{"user_6", http.MethodGet, "/users/" + strings.Repeat("O", 40), http.StatusBadRequest, MsgBadAddress, false},
		{"user_7", http.MethodDelete, "/users/" + ann.String(), http.StatusMethodNotAllowed, "", true},
		{"subs_0", http.MethodGet, "/users/" + ann.String() + "/submissions", 200, "[]\n", false},
		{"subs_1", http.MethodGet, "/users/" + ann.String() + "/submissions?limit=x", http.StatusBadRequest, "invalid limit", true},
		{"subs_2", http.MethodGet, "/users/0xabc/submissions", http.StatusBadRequest, MsgBadAddress, false},
	}

	for _, c := range cases {
		s, b := e.do(t, c.method, c.uri, "")
		if s != c.status {
			t.Errorf("[%s] Error in StatusCode:%d expected:%d body:%s", c.name, s, c.status, b)
		} else if c.contains && !strings.Contains(b, c.resExp) {
			t.Errorf("[%s] Error in response:%s expected to contain:%s", c.name, b, c.resExp)
		} else if !c.contains && b != c.resExp {
			t.Errorf("[%s] Error in response:%s expected:%s", c.name, b, c.resExp)
		}
	}
}

func TestListUsers(t *testing.T) {
	e := newEnv(t, false, nil)

	s, b := e.do(t, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, s)
	assert.JSONEq(t, `{"totalUsers":0,"users":[]}`, b)

	users := []solana.PublicKey{solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey()}
	for i, u := range users {
		e.store(t, u, "User", uint64(20+i), "Somewhere")
	}

	s, b = e.do(t, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, s)

	var list UserList
	require.NoError(t, json.Unmarshal([]byte(b), &list))
	assert.Equal(t, len(list.Users), list.TotalUsers)
	require.Len(t, list.Users, len(users))

	for i, u := range users {
		assert.Equal(t, u.String(), list.Users[i].Identity)
		assert.Equal(t, uint64(20+i), list.Users[i].Age)
	}

	// a program account that cannot be decoded fails the whole listing
	bad := solana.NewWallet().PublicKey()
	e.node.SetAccount(types.Account{Address: bad, Owner: e.prog.ID(),
		Data: append(idl.AccountDiscriminator(program.DetailsAccount), 0xff)})

	s, b = e.do(t, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusInternalServerError, s)
	assert.True(t, strings.HasPrefix(b, MsgCannotHandle), b)

	e.node.Fail("getProgramAccounts", "rpc down")

	s, b = e.do(t, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusInternalServerError, s)
	assert.Contains(t, b, "rpc down")
}

func TestGetUserFailure(t *testing.T) {
	e := newEnv(t, false, nil)
	e.node.Fail("getAccountInfo", "node unavailable")

	s, b := e.do(t, http.MethodGet, "/users/"+solana.NewWallet().PublicKey().String(), "")
	assert.Equal(t, http.StatusInternalServerError, s)
	assert.True(t, strings.HasPrefix(b, MsgCannotHandle), b)
}

func TestStoreValidation(t *testing.T) {
	e := newEnv(t, false, nil)
	uri := "/users/" + solana.NewWallet().PublicKey().String()

	cases := []struct {
		name, body string
		resExp     string
	}{
		{"body_0", `[1,2]`, MsgBadBody},
		{"body_1", `"details"`, MsgBadBody},
		{"body_2", `{"name":`, MsgBadBody},
		{"missing_0", `{"name":"Ann","address":"Main St"}`, MsgMissing},
		{"missing_1", `{"age":30,"address":"Main St"}`, MsgMissing},
		{"missing_2", `{"name":"Ann","age":30,"address":null}`, MsgMissing},
		{"missing_3", `{"name":"","age":30,"address":"Main St"}`, MsgMissing},
		{"missing_4", `{"name":"Ann","age":30,"address":""}`, MsgMissing},
		{"types_0", `{"name":"Ann","age":"30","address":"Main St"}`, MsgBadTypes},
		{"types_1", `{"name":7,"age":30,"address":"Main St"}`, MsgBadTypes},
		{"types_2", `{"name":"Ann","age":30,"address":["Main St"]}`, MsgBadTypes},
		{"details_0", `{"name":"Ann","age":-1,"address":"Main St"}`, MsgBadDetails},
		{"details_1", `{"name":"Ann","age":1.5,"address":"Main St"}`, MsgBadDetails},
		{"details_2", `{"name":"Ann","age":18446744073709551616,"address":"Main St"}`, MsgBadDetails},
	}

	for _, c := range cases {
		s, b := e.do(t, http.MethodPost, uri, c.body)
		if s != http.StatusBadRequest {
			t.Errorf("[%s] Error in StatusCode:%d expected:%d body:%s", c.name, s, http.StatusBadRequest, b)
		} else if b != c.resExp {
			t.Errorf("[%s] Error in response:%s expected:%s", c.name, b, c.resExp)
		}
	}

	// address is checked before the body
	s, b := e.do(t, http.MethodPost, "/users/nope", `{}`)
	assert.Equal(t, http.StatusBadRequest, s)
	assert.Equal(t, MsgBadAddress, b)

	assert.Empty(t, e.node.Sent())
}

func TestStore(t *testing.T) {
	e := newEnv(t, true, nil)
	user := solana.NewWallet().PublicKey()
	uri := "/users/" + user.String()

	s, b := e.do(t, http.MethodPost, uri, `{"name":"Ann","age":0,"address":"Main St","extra":true}`)
	require.Equal(t, http.StatusOK, s, b)

	sent := e.node.Sent()
	require.Len(t, sent, 1)

	sig := sent[0].Signatures[0]
	assert.Equal(t, "https://explorer.solana.com/tx/"+sig.String()+"?cluster=devnet", b)

	// large integral ages written with an exponent are accepted
	s, b = e.do(t, http.MethodPost, uri, `{"name":"Ann","age":1e3,"address":"Main St"}`)
	require.Equal(t, http.StatusOK, s, b)

	data, err := e.coder.EncodeInstruction(program.StoreDetailsMethod, "Ann", uint64(1000), "Main St")
	require.NoError(t, err)
	assert.Equal(t, data, []byte(e.node.Sent()[1].Message.Instructions[0].Data))

	// journal, newest first
	account, err := e.prog.DetailsAddress(user)
	require.NoError(t, err)

	s, b = e.do(t, http.MethodGet, uri+"/submissions", "")
	require.Equal(t, http.StatusOK, s)

	var subs []store.Submission
	require.NoError(t, json.Unmarshal([]byte(b), &subs))
	require.Len(t, subs, 2)
	assert.Equal(t, uint64(1000), subs[0].Age)
	assert.Equal(t, sig.String(), subs[1].Signature)
	assert.Equal(t, account.String(), subs[1].Account)
	assert.Equal(t, solrpc.Devnet, subs[1].Cluster)

	s, b = e.do(t, http.MethodGet, uri+"/submissions?limit=1", "")
	require.Equal(t, http.StatusOK, s)
	require.NoError(t, json.Unmarshal([]byte(b), &subs))
	assert.Len(t, subs, 1)

	// events
	require.Len(t, e.mb.sent, 2)
	assert.Equal(t, msg.Event{User: user.String(), Account: account.String(), Signature: sig.String(),
		Cluster: solrpc.Devnet, Name: "Ann", Age: 0, Address: "Main St", TS: e.mb.sent[0].TS}, e.mb.sent[0])
	assert.WithinDuration(t, time.Now(), time.Unix(e.mb.sent[0].TS, 0), time.Minute)

	// ledger failures
	e.node.Fail("sendTransaction", "insufficient funds for fee")

	s, b = e.do(t, http.MethodPost, uri, `{"name":"Ann","age":31,"address":"Main St"}`)
	assert.Equal(t, http.StatusInternalServerError, s)
	assert.True(t, strings.HasPrefix(b, MsgCannotHandle), b)
	assert.Contains(t, b, "insufficient funds")
	assert.Len(t, e.mb.sent, 2)
}

func TestStoreRateLimit(t *testing.T) {
	e := newEnv(t, false, rate.NewLimiter(rate.Every(time.Hour), 1))
	uri := "/users/" + solana.NewWallet().PublicKey().String()
	body := `{"name":"Ann","age":30,"address":"Main St"}`

	s, _ := e.do(t, http.MethodPost, uri, body)
	assert.Equal(t, http.StatusOK, s)

	// invalid requests do not take a token, and are still rejected as invalid
	s, b := e.do(t, http.MethodPost, uri, `{"name":"Ann"}`)
	assert.Equal(t, http.StatusBadRequest, s)
	assert.Equal(t, MsgMissing, b)

	s, b = e.do(t, http.MethodPost, uri, body)
	assert.Equal(t, http.StatusTooManyRequests, s)
	assert.Equal(t, MsgTooMany, b)
	assert.Len(t, e.node.Sent(), 1)
}

func TestNoJournal(t *testing.T) {
	e := newEnv(t, false, nil)

	s, b := e.do(t, http.MethodGet, "/users/"+solana.NewWallet().PublicKey().String()+"/submissions", "")
	assert.Equal(t, http.StatusServiceUnavailable, s)
	assert.Equal(t, MsgNoJournal, b)
}

func TestDecodeDetails(t *testing.T) {
	d, err := decodeDetails(bytes.NewBufferString(`{"name":"Ann","age":18446744073709551615,"address":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, types.Details{Name: "Ann", Age: 18446744073709551615, Address: "x"}, d)
}
