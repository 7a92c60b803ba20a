package facade

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"

	"github.com/tarancss/userdetails/lib/block/types"
	"github.com/tarancss/userdetails/lib/msg"
	"github.com/tarancss/userdetails/lib/store"
	"github.com/tarancss/userdetails/lib/util"
)

// Messages replied to client requests.
const (
	MsgBadAddress   = "Invalid user address"
	MsgBadBody      = "Invalid request body"
	MsgMissing      = "All three details (name, age, address) must be specified"
	MsgBadTypes     = "Details have invalid types"
	MsgBadDetails   = "Invalid details specified"
	MsgTooMany      = "Too many requests"
	MsgNotFound     = "No details have been saved for the specified address"
	MsgNoJournal    = "Submission journal not configured"
	MsgCannotHandle = "Could not process request: "
)

// maxBody is the largest request body accepted when storing details.
const maxBody = 1 << 16

// Errors found validating requests. Their text is the message replied.
var (
	ErrBadAddress = errors.New(MsgBadAddress)
	ErrBadBody    = errors.New(MsgBadBody)
	ErrMissing    = errors.New(MsgMissing)
	ErrBadTypes   = errors.New(MsgBadTypes)
	ErrBadDetails = errors.New(MsgBadDetails)
)

// Home is the body replied by the home page.
type Home struct {
	Program string `json:"program"`
	Cluster string `json:"cluster"`
}

// UserList is the body replied when listing users.
type UserList struct {
	TotalUsers int          `json:"totalUsers"`
	Users      []types.User `json:"users"`
}

func replyText(rw http.ResponseWriter, status int, text string) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(status)
	_, _ = rw.Write([]byte(text))
}

func replyJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

// userKey validates the address in the uri and returns the key it encodes.
func userKey(r *http.Request) (solana.PublicKey, error) {
	address := mux.Vars(r)["address"]
	if !util.IsValidAddress(address) {
		return solana.PublicKey{}, ErrBadAddress
	}

	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, ErrBadAddress
	}

	return pk, nil
}

// homeHandler replies the program and cluster served.
func (f *Facade) homeHandler(rw http.ResponseWriter, r *http.Request) {
	log.Printf("httpreq from %v %s\n", r.RemoteAddr, r.RequestURI)

	replyJSON(rw, http.StatusOK, Home{Program: f.prog.ID().String(), Cluster: f.prog.Cluster()})
}

// usersHandler replies all the user details held by the program.
func (f *Facade) usersHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var users []types.User

	defer func() {
		// reply to requester accordingly
		if err != nil {
			replyText(rw, http.StatusInternalServerError, MsgCannotHandle+err.Error())
		} else {
			replyJSON(rw, http.StatusOK, UserList{TotalUsers: len(users), Users: users})
		}
		// log request
		log.Printf("httpreq from %v %s users:%d err:%e\n", r.RemoteAddr, r.RequestURI, len(users), err)
	}()

	users, err = f.prog.Users(r.Context())
}

// userHandler replies the details of the user in the uri.
func (f *Facade) userHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res types.Lookup

	defer func() {
		// reply to requester accordingly
		switch {
		case err != nil:
			replyText(rw, http.StatusBadRequest, err.Error())
		case res.Status == types.Found:
			replyJSON(rw, http.StatusOK, res.User)
		case res.Status == types.NotFound:
			replyText(rw, http.StatusNotFound, MsgNotFound)
		default:
			err = res.Err
			replyText(rw, http.StatusInternalServerError, MsgCannotHandle+res.Err.Error())
		}
		// log request
		log.Printf("httpreq from %v %s status:%s err:%e\n", r.RemoteAddr, r.RequestURI, res.Status, err)
	}()

	var user solana.PublicKey
	if user, err = userKey(r); err != nil {
		return
	}

	res = f.prog.User(r.Context(), user)
}

// storeHandler validates the details in the request body and submits a transaction storing them for the user in the
// uri. The explorer link of the transaction is replied.
func (f *Facade) storeHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var status int = http.StatusBadRequest

	var user solana.PublicKey

	var d types.Details

	var sig solana.Signature

	defer func() {
		// reply to requester accordingly
		switch {
		case err == nil:
			replyText(rw, http.StatusOK, f.prog.ExplorerURL(sig))
		case status == http.StatusInternalServerError:
			replyText(rw, status, MsgCannotHandle+err.Error())
		default:
			replyText(rw, status, err.Error())
		}
		// log request and signature
		log.Printf("httpreq from %v %s sig:%s err:%e\n", r.RemoteAddr, r.RequestURI, sig, err)
	}()

	if user, err = userKey(r); err != nil {
		return
	}

	if d, err = decodeDetails(http.MaxBytesReader(rw, r.Body, maxBody)); err != nil {
		return
	}

	if f.lim != nil && !f.lim.Allow() {
		status, err = http.StatusTooManyRequests, errors.New(MsgTooMany)
		submissions.WithLabelValues("limited").Inc()

		return
	}

	if sig, err = f.prog.StoreDetails(r.Context(), user, d); err != nil {
		status = http.StatusInternalServerError
		submissions.WithLabelValues("failed").Inc()

		return
	}

	submissions.WithLabelValues("sent").Inc()
	f.record(user, d, sig)
}

// record journals a submission and publishes its event. Failures are only logged, the transaction is already sent.
func (f *Facade) record(user solana.PublicKey, d types.Details, sig solana.Signature) {
	if f.db == nil && f.mb == nil {
		return
	}

	account, err := f.prog.DetailsAddress(user)
	if err != nil {
		log.Printf("Error deriving details address of %s:%e", user, err)

		return
	}

	now := time.Now().UTC()

	if f.db != nil {
		s := store.Submission{
			User:      user.String(),
			Account:   account.String(),
			Signature: sig.String(),
			Name:      d.Name,
			Age:       d.Age,
			Address:   d.Address,
			Cluster:   f.prog.Cluster(),
			Created:   now,
		}
		if _, err = f.db.AddSubmission(s); err != nil {
			log.Printf("Error journaling submission %s:%e", sig, err)
		}
	}

	if f.mb != nil {
		e := msg.Event{
			User:      user.String(),
			Account:   account.String(),
			Signature: sig.String(),
			Cluster:   f.prog.Cluster(),
			Name:      d.Name,
			Age:       d.Age,
			Address:   d.Address,
			TS:        now.Unix(),
		}
		if err = f.mb.SendStored(e); err != nil {
			log.Printf("Error publishing submission %s:%e", sig, err)
		}
	}
}

// submissionsHandler replies the journal of submissions made for the user in the uri, newest first. The optional
// query ?limit=n caps the number of entries.
func (f *Facade) submissionsHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var status int = http.StatusBadRequest

	var subs []store.Submission

	defer func() {
		// reply to requester accordingly
		switch {
		case err == nil:
			replyJSON(rw, http.StatusOK, subs)
		case status == http.StatusInternalServerError:
			replyText(rw, status, MsgCannotHandle+err.Error())
		default:
			replyText(rw, status, err.Error())
		}
		// log request
		log.Printf("httpreq from %v %s subs:%d err:%e\n", r.RemoteAddr, r.RequestURI, len(subs), err)
	}()

	var user solana.PublicKey
	if user, err = userKey(r); err != nil {
		return
	}

	if f.db == nil {
		status, err = http.StatusServiceUnavailable, errors.New(MsgNoJournal)

		return
	}

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		if limit, err = strconv.Atoi(q); err != nil || limit < 0 {
			err = fmt.Errorf("invalid limit %q", q)

			return
		}
	}

	if subs, err = f.db.GetSubmissions(user.String(), limit); err != nil {
		status = http.StatusInternalServerError
	}
}

// decodeDetails reads the details in a request body. Checks are made in order: the body must be a JSON object, all
// fields must be present and non empty, they must have the right JSON types, and age must be an integer within u64.
func decodeDetails(body io.Reader) (types.Details, error) {
	var d types.Details

	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return d, ErrBadBody
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return d, ErrBadBody
	}

	for _, k := range []string{"name", "age", "address"} {
		if v, ok := obj[k]; !ok || v == nil || v == "" {
			return d, ErrMissing
		}
	}

	name, okN := obj["name"].(string)
	address, okA := obj["address"].(string)
	age, okG := obj["age"].(json.Number)

	if !okN || !okA || !okG {
		return d, ErrBadTypes
	}

	// json.Number keeps the literal, so exponents and huge values are checked exactly
	n, ok := new(big.Rat).SetString(age.String())
	if !ok || !n.IsInt() || n.Sign() < 0 || !n.Num().IsUint64() {
		return d, ErrBadDetails
	}

	d.Name, d.Age, d.Address = name, n.Num().Uint64(), address

	return d, nil
}
