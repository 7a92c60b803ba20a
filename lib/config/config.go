// Package config provides helper functionality to read the service configuration from JSON or YAML config files or
// OS ENV variables. The default configuration can be overridden first by:
//
// - a valid config file (see cmd/conf.json for a sample) and then by
//
// - OS ENV variables: prefixed with UD_ (ie. UD_CLUSTER, UD_RPC, ...). All OS ENV variables should be valid strings.
// PORT and PRIVATE_KEY are also read, without prefix, when their UD_ counterparts are not set.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default configuration variables
var (
	RestfulEPDefault = ""
	PortDefault      = "3000"
	ClusterDefault   = "devnet"
	IDLDefault       = "idl.json"
)

// LedgerConfig defines the network to talk to. RPC overrides the public endpoint of Cluster when set.
type LedgerConfig struct {
	Cluster string `json:"cluster" yaml:"cluster"`
	RPC     string `json:"rpc" yaml:"rpc"`
}

// ServiceConfig contains the required fields for the service: API endpoint, ports, SSL cert and key, the ledger, the
// program interface description, the fee payer key and the optional journal database, message broker and submission
// rate limit.
type ServiceConfig struct {
	RestfulEndpoint string  `json:"endpoint" yaml:"endpoint"`
	Port            string  `json:"port" yaml:"port"`
	SSLPort         string  `json:"sslport" yaml:"sslport"`
	SSLCert         string  `json:"sslcert" yaml:"sslcert"`
	SSLKey          string  `json:"sslkey" yaml:"sslkey"`
	IDL             string  `json:"idl" yaml:"idl"`
	ProgramID       string  `json:"programId" yaml:"programId"`
	PrivateKey      string  `json:"privateKey" yaml:"privateKey"`
	DBType          string  `json:"dbtype" yaml:"dbtype"`
	DBConn          string  `json:"dbconn" yaml:"dbconn"`
	MbType          string  `json:"mbtype" yaml:"mbtype"`
	MbConn          string  `json:"mbconn" yaml:"mbconn"`
	SubmitRate      float64 `json:"submitRate" yaml:"submitRate"`
	SubmitBurst     int     `json:"submitBurst" yaml:"submitBurst"`

	Ledger LedgerConfig `json:"ledger" yaml:"ledger"`
}

// String hides the secret key so the configuration can be logged.
func (c ServiceConfig) String() string {
	hidden := c
	if hidden.PrivateKey != "" {
		hidden.PrivateKey = "***"
	}

	type plain ServiceConfig

	return fmt.Sprintf("%+v", plain(hidden))
}

// ExtractConfiguration reads from the given filename and returns the ServiceConfig or an error otherwise. Files ending
// in .yaml or .yml are decoded as YAML, anything else as JSON.
func ExtractConfiguration(filename string) (ServiceConfig, error) {
	conf := ServiceConfig{
		RestfulEndpoint: RestfulEPDefault,
		Port:            PortDefault,
		IDL:             IDLDefault,
		Ledger:          LedgerConfig{Cluster: ClusterDefault},
	}
	// read from config file first
	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			log.Println("Configuration file not found.")

			return conf, err
		}
		defer file.Close()

		switch strings.ToLower(filepath.Ext(filename)) {
		case ".yaml", ".yml":
			err = yaml.NewDecoder(file).Decode(&conf)
		default:
			err = json.NewDecoder(file).Decode(&conf)
		}

		if err != nil {
			return conf, fmt.Errorf("cannot decode %s: %w", filename, err)
		}
	}
	// then override config values with OS ENV variables
	str := map[string]*string{
		"UD_ENDPOINT":   &conf.RestfulEndpoint,
		"UD_PORT":       &conf.Port,
		"UD_SSLPORT":    &conf.SSLPort,
		"UD_SSLCERT":    &conf.SSLCert,
		"UD_SSLKEY":     &conf.SSLKey,
		"UD_IDL":        &conf.IDL,
		"UD_PROGRAMID":  &conf.ProgramID,
		"UD_PRIVATEKEY": &conf.PrivateKey,
		"UD_DBTYPE":     &conf.DBType,
		"UD_DBCONN":     &conf.DBConn,
		"UD_MBTYPE":     &conf.MbType,
		"UD_MBCONN":     &conf.MbConn,
		"UD_CLUSTER":    &conf.Ledger.Cluster,
		"UD_RPC":        &conf.Ledger.RPC,
	}
	for env, field := range str {
		if tmp := os.Getenv(env); tmp != "" {
			*field = tmp
		}
	}
	// unprefixed variables used by other tooling
	if tmp := os.Getenv("PORT"); tmp != "" && os.Getenv("UD_PORT") == "" {
		conf.Port = tmp
	}
	if tmp := os.Getenv("PRIVATE_KEY"); tmp != "" && os.Getenv("UD_PRIVATEKEY") == "" {
		conf.PrivateKey = tmp
	}

	if tmp := os.Getenv("UD_SUBMITRATE"); tmp != "" {
		rate, err := strconv.ParseFloat(tmp, 64)
		if err != nil {
			log.Println("Error reading UD_SUBMITRATE from OS ENV.")

			return conf, err
		}
		conf.SubmitRate = rate
	}
	if tmp := os.Getenv("UD_SUBMITBURST"); tmp != "" {
		burst, err := strconv.Atoi(tmp)
		if err != nil {
			log.Println("Error reading UD_SUBMITBURST from OS ENV.")

			return conf, err
		}
		conf.SubmitBurst = burst
	}

	return conf, nil
}
