// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ)
package amqp

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/streadway/amqp"

	"github.com/tarancss/userdetails/lib/msg"
)

// Exchange is the topic exchange events are published to.
const Exchange = "ud"

// Amqp implements a connection to a broker and a channel for reuse.
type Amqp struct {
	conn *amqp.Connection
	mu   sync.Mutex // guards ch, handlers publish concurrently
	ch   *amqp.Channel
}

var _ msg.Broker = (*Amqp)(nil)

// New instantiates a new amqp broker.
func New(uri string) (*Amqp, error) {
	r := &Amqp{}

	var err error
	if r.conn, err = amqp.Dial(uri); err != nil {
		return nil, err
	}

	log.Printf("Connected to %s", uri)

	return r, nil
}

// Setup obtains an amqp channel and declares the "ud" ("user details") exchange the facade publishes events to.
func (r *Amqp) Setup() error {
	// obtain a one-use channel
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	return channel.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil)
}

// Close terminates gracefully the connection to the AMQP message broker
func (r *Amqp) Close() error {
	r.mu.Lock()
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			log.Printf("Error closing amqp.Channel:%e", err)
		}
		r.ch = nil
	}
	r.mu.Unlock()

	return r.conn.Close()
}

// channel returns the shared publishing channel, opening it if needed.
func (r *Amqp) channel() (*amqp.Channel, error) {
	if r.ch == nil {
		var err error
		if r.ch, err = r.conn.Channel(); err != nil {
			return nil, err
		}
	}

	return r.ch, nil
}

// SendStored publishes an event to the "ud" exchange with routing key <cluster>.stored.<user>.
func (r *Amqp) SendStored(e msg.Event) error {
	// marshal to JSON
	jsonDoc, err := json.Marshal(e)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.channel()
	if err != nil {
		return err
	}
	// build body
	m := amqp.Publishing{
		Headers:     amqp.Table{"x-tx-signature": e.Signature},
		Body:        jsonDoc,
		ContentType: "application/json",
	}
	// publish
	if err = ch.Publish(Exchange, msg.Subject(e), false, false, m); err != nil {
		log.Printf("[%s] Error sending event to message broker %e", e.Cluster, err)
		// the channel is unusable after an error, get a new one next time
		_ = r.ch.Close()
		r.ch = nil
	}

	return err
}
