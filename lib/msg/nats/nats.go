// Package nats implements the message broker interface for NATS servers.
package nats

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/tarancss/userdetails/lib/msg"
)

// Prefix is prepended to every subject.
const Prefix = "userdetails."

// Nats implements a connection to a NATS server.
type Nats struct {
	nc *nats.Conn
}

var _ msg.Broker = (*Nats)(nil)

// New connects to the NATS server at url.
func New(url string) (*Nats, error) {
	nc, err := nats.Connect(url, nats.Name("userdetails"))
	if err != nil {
		return nil, err
	}

	log.Printf("Connected to %s", nc.ConnectedUrl())

	return &Nats{nc: nc}, nil
}

// Setup has nothing to declare on NATS, subjects exist as soon as they are used.
func (n *Nats) Setup() error {
	return nil
}

// Close drains pending messages and closes the connection.
func (n *Nats) Close() error {
	return n.nc.Drain()
}

// SendStored publishes e on subject userdetails.<cluster>.stored.<user>.
func (n *Nats) SendStored(e msg.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	if err = n.nc.Publish(Prefix+msg.Subject(e), b); err != nil {
		log.Printf("[%s] Error sending event to message broker %e", e.Cluster, err)
	}

	return err
}
