//go:build integration
// +build integration

package nats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tarancss/userdetails/lib/msg"
)

// TestNats tests event publishing. This test requires an available NATS server at localhost:4222.
func TestNats(t *testing.T) {
	n, err := New(nats.DefaultURL)
	if err != nil {
		t.Fatalf("Error creating broker:%e", err)
	}

	defer n.Close()

	if err = n.Setup(); err != nil {
		t.Fatalf("Error setting up broker:%e", err)
	}

	sub, err := n.nc.SubscribeSync(Prefix + "testnet.stored.*")
	if err != nil {
		t.Fatalf("Error subscribing:%e", err)
	}
	defer sub.Unsubscribe()

	e := msg.Event{User: "Usr1", Cluster: "testnet", Signature: "sig", Name: "Ann", Age: 30, TS: time.Now().Unix()}
	if err = n.SendStored(e); err != nil {
		t.Fatalf("Error publishing:%e", err)
	}

	m, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("Error waiting for event:%e", err)
	}

	var got msg.Event
	if err = json.Unmarshal(m.Data, &got); err != nil {
		t.Fatalf("Error decoding event:%e", err)
	}

	if got != e {
		t.Errorf("Received event %+v expected %+v", got, e)
	}

	if m.Subject != "userdetails.testnet.stored.Usr1" {
		t.Errorf("Received subject %s", m.Subject)
	}
}
