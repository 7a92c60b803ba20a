// Package facade implements the user details microservice.
//
// This microservice implements a RESTful API for clients to read and write the user details kept by the on-chain
// user details program. Reads are served from the program accounts; writes are signed with the service key and
// submitted to the configured cluster.
package facade

import (
	"context"
	"log"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tarancss/userdetails/lib/msg"
	"github.com/tarancss/userdetails/lib/program"
	"github.com/tarancss/userdetails/lib/store"
	"github.com/tarancss/userdetails/lib/store/db"
)

// Facade contains the data necessary to deliver the service
type Facade struct {
	prog   *program.Program
	dbtype string
	db     store.DB      // submission journal, optional
	mb     msg.Broker    // event publisher, optional
	lim    *rate.Limiter // submission limiter, optional
	s      *http.Server  // http server
	ss     *http.Server  // https server
	sc     chan struct{} // http server channel used for graceful shutdowns
}

// New returns a pointer to a new Facade service. dbConn, mb and lim may be nil.
func New(prog *program.Program, dbtype string, dbConn store.DB, mb msg.Broker, lim *rate.Limiter) *Facade {
	return &Facade{
		prog:   prog,
		dbtype: dbtype,
		db:     dbConn,
		mb:     mb,
		lim:    lim,
		sc:     make(chan struct{}),
	}
}

// Stop shuts down the http servers implementing the RESTful API and closes gracefully the connections to message
// broker and database.
func (f *Facade) Stop() {
	var err error
	// shutdown http server
	if f.s != nil {
		if err = f.s.Shutdown(context.Background()); err != nil {
			log.Printf("Error in http server shutdown:%e", err)
		}
	}

	if f.ss != nil {
		if err = f.ss.Shutdown(context.Background()); err != nil {
			log.Printf("Error in https server shutdown:%e", err)
		}
	}

	close(f.sc) // close server channel to indicate shutdowns have finished
	// close message broker
	if f.mb != nil {
		if err = f.mb.Close(); err != nil {
			log.Printf("Error closing message broker:%e", err)
		}
	}
	// close database
	if f.db != nil {
		err = db.Close(f.dbtype, f.db)
		log.Printf("Disconnecting %v database, err:%e\n", f.dbtype, err)
	}
}
