// Package broker implements the opening of message broker connections.
package broker

import (
	"fmt"
	"log"
	"time"

	"github.com/tarancss/userdetails/lib/msg"
	"github.com/tarancss/userdetails/lib/msg/amqp"
	"github.com/tarancss/userdetails/lib/msg/nats"
)

const (
	AMQP string = "amqp"
	NATS string = "nats"
)

// Retry is how long New waits before its single reconnection attempt.
var Retry = 10 * time.Second

// New connects to a message broker according to its type and sets it up.
func New(options, connection string) (msg.Broker, error) {
	var dial func(string) (msg.Broker, error)

	switch options {
	case AMQP:
		dial = func(c string) (msg.Broker, error) { return amqp.New(c) }
	case NATS:
		dial = func(c string) (msg.Broker, error) { return nats.New(c) }
	default:
		return nil, fmt.Errorf("unknown message broker type %q", options)
	}

	mb, err := dial(connection)
	if err != nil {
		log.Printf("Error connecting to %s broker, retrying in %v: %e", options, Retry, err)
		time.Sleep(Retry) // wait for the broker to be ready and try to reconnect

		if mb, err = dial(connection); err != nil {
			return nil, err
		}
	}

	if err = mb.Setup(); err != nil {
		_ = mb.Close()

		return nil, err
	}

	return mb, nil
}
