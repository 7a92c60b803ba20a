// Package main: user details service.
//
// The service pays for and signs every storeDetails transaction with the configured private key, so the submission
// rate should be limited (submitRate, submitBurst) whenever the API is reachable by untrusted clients.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/tarancss/userdetails/facade"
	"github.com/tarancss/userdetails/lib/block"
	"github.com/tarancss/userdetails/lib/config"
	"github.com/tarancss/userdetails/lib/idl"
	"github.com/tarancss/userdetails/lib/keys"
	"github.com/tarancss/userdetails/lib/msg"
	"github.com/tarancss/userdetails/lib/msg/broker"
	"github.com/tarancss/userdetails/lib/program"
	"github.com/tarancss/userdetails/lib/store"
	"github.com/tarancss/userdetails/lib/store/db"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json or yaml file")
	monitor := flag.Bool("m", false, "flag to monitor the server with Prometheus at http://localhost:9100/metrics")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	log.Printf("Configuration:%s", conf)

	// load program interface
	desc, err := idl.Load(conf.IDL)
	if err != nil {
		panic(err)
	}

	var pid solana.PublicKey
	if conf.ProgramID != "" {
		pid, err = solana.PublicKeyFromBase58(conf.ProgramID)
	} else {
		pid, err = desc.ProgramID()
	}

	if err != nil {
		panic(err)
	}

	// load fee payer key, without it the service is read only
	var payer solana.PrivateKey

	if conf.PrivateKey != "" {
		if payer, err = keys.Parse(conf.PrivateKey); err != nil {
			panic(err)
		}

		log.Printf("Program %s, fee payer %s", pid, payer.PublicKey())
	} else {
		log.Printf("Program %s, no fee payer key: details cannot be stored", pid)
	}

	// connect to the ledger
	ledger, err := block.Init(conf.Ledger)
	if err != nil {
		panic(err)
	}

	log.Printf("Ledger client loaded for cluster %s", conf.Ledger.Cluster)

	pcfg := program.Config{ProgramID: pid, Payer: payer, Cluster: conf.Ledger.Cluster, RPC: conf.Ledger.RPC}

	prog, err := program.New(pcfg, ledger, idl.NewCoder(desc))
	if err != nil {
		panic(err)
	}

	// connect to database
	var dbConn store.DB

	if conf.DBConn != "" {
		if dbConn, err = db.New(conf.DBType, conf.DBConn); err != nil {
			panic(err)
		}

		log.Printf("Connecting to database:%+v\n", conf.DBConn)
	}

	// load message broker
	var mb msg.Broker

	if conf.MbConn != "" {
		if mb, err = broker.New(conf.MbType, conf.MbConn); err != nil {
			panic(err)
		}

		log.Printf("Connected to %s message broker", conf.MbType)
	}

	// limit submissions
	var lim *rate.Limiter

	if conf.SubmitRate > 0 {
		burst := conf.SubmitBurst
		if burst < 1 {
			burst = 1
		}

		lim = rate.NewLimiter(rate.Limit(conf.SubmitRate), burst)
	}

	// load Prometheus monitor
	if *monitor {
		go func() {
			log.Println("Serving metrics API")

			h := http.NewServeMux()

			h.Handle("/metrics", promhttp.Handler())
			log.Printf("Metrics server: %e", http.ListenAndServe(":9100", h))
		}()
	}

	// create facade service
	f := facade.New(prog, conf.DBType, dbConn, mb, lim)

	// capture CTRL+C or docker's SIGTERM for gracious exit
	finish := make(chan int)

	go func() {
		sigchan := make(chan os.Signal, 10)
		signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
		<-sigchan
		log.Println("Program killed !")
		// do last actions and wait for all write operations to end
		f.Stop()
		block.End(ledger)
		close(finish)
	}()

	// init RESTful API, wait for its return and log response
	log.Printf("User details: %s\n", f.Init(conf.RestfulEndpoint, conf.Port, conf.SSLPort, conf.SSLCert, conf.SSLKey))

	<-finish
}
