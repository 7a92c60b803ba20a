package facade

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const timeout = 15

// Router returns the handler serving the RESTful API.
func (f *Facade) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", f.homeHandler).Methods("GET")                                   // program and cluster served
	r.HandleFunc("/users", f.usersHandler).Methods("GET")                             // all user details
	r.HandleFunc("/users/{address}", f.userHandler).Methods("GET")                    // details of a user
	r.HandleFunc("/users/{address}", f.storeHandler).Methods("POST")                  // store details of a user
	r.HandleFunc("/users/{address}/submissions", f.submissionsHandler).Methods("GET") // journal of a user
	r.Use(instrument)

	return r
}

// Init sets up and starts the http/https server to service the RESTful API. If sslPort, sslCert and sslKey are
// informed, it will start an https (TLS) server on the specified endpoint. It returns once Stop has been called.
func (f *Facade) Init(endpoint, port, sslPort, sslCert, sslKey string) string {
	var err, errTLS error

	r := f.Router()

	// start http server
	if port != "" {
		f.s = &http.Server{
			Handler:      r,
			Addr:         endpoint + ":" + port,
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func() {
			err = f.s.ListenAndServe()
		}()

		log.Printf("Listening to API http requests on %s:%s", endpoint, port)
	}
	// start https server
	if sslPort != "" && sslCert != "" && sslKey != "" {
		f.ss = &http.Server{
			Handler:      r,
			Addr:         endpoint + ":" + sslPort,
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func() {
			errTLS = f.ss.ListenAndServeTLS(sslCert, sslKey)
		}()

		log.Printf("Listening to API https requests on %s:%s", endpoint, sslPort)
	}
	// wait for servers to be shutdown
	<-f.sc

	return fmt.Sprintf("shutdown http server:%e, https server:%e", err, errTLS)
}
