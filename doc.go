// Package userdetails and its sub-packages implement a RESTful facade over the user details program, a Solana
// program that keeps a name, an age and a postal address per user in a program derived account.
/*
userdetails provides you with one microservice, the facade (package facade), started running cmd/userdetails/main.go.

Architecture

Clients read and write user details through the HTTP API. Reads never touch a key: the facade derives the account of
a user from the seeds "details" and the user key, fetches it from the configured cluster and decodes it with the
program interface description (package lib/idl). Writes are turned into a storeDetails instruction, compiled into a
versioned transaction, paid for and signed by the service key (package lib/keys) and submitted. The client is replied
the explorer link of the transaction as soon as the node accepts it.

The ledger layer (package lib/block) hides the JSON-RPC client (package lib/block/solrpc) behind an interface so the
program client (package lib/program) can be tested against a mock node (package lib/block/blocktest).

Every submitted transaction can be journaled to a database (package lib/store: MongoDB, PostgreSQL or an embedded
bbolt file) and announced on a message broker (package lib/msg: AMQP or NATS). Both are optional and configured via a
JSON or YAML config file at service startup (package lib/config).

The service signs with a single funded key, so submissions can be rate limited. The microservice can also be monitored
via a Prometheus API by setting the flag "-m" at startup.

API

	GET  /                            program and cluster served
	GET  /users                       all user details kept by the program
	GET  /users/{address}             details of a user
	POST /users/{address}             store details {"name","age","address"} of a user
	GET  /users/{address}/submissions journal of the transactions submitted for a user
*/
package userdetails
