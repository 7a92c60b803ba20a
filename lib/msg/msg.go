// Package msg defines the interface for different message brokers.
//
// The facade publishes an Event every time it submits user details to the ledger, so that other services can follow
// the changes without polling the network.
package msg

import (
	"fmt"
)

// Event is the message published when user details are submitted.
type Event struct {
	User      string `json:"user"`
	Account   string `json:"account"`
	Signature string `json:"signature"`
	Cluster   string `json:"cluster"`
	Name      string `json:"name"`
	Age       uint64 `json:"age"`
	Address   string `json:"address"`
	TS        int64  `json:"ts"` // unix seconds
}

// Broker is implemented by every supported message broker.
type Broker interface {
	Setup() error
	Close() error

	// SendStored publishes e.
	SendStored(e Event) error
}

// Subject returns the routing key or subject of an event.
func Subject(e Event) string {
	return fmt.Sprintf("%s.stored.%s", e.Cluster, e.User)
}
