// Package mongo implements the interface for MongoDB.
package mongo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/userdetails/lib/store"
)

// Database and collection holding the journal.
const (
	Database   = "userdetails"
	Collection = "submissions"
)

// document is a submission as saved to MongoDB. BSON has no unsigned 64-bit integer, so ages are kept as decimals.
type document struct {
	ID        string               `bson:"_id"`
	User      string               `bson:"user"`
	Account   string               `bson:"account"`
	Signature string               `bson:"signature"`
	Name      string               `bson:"name"`
	Age       primitive.Decimal128 `bson:"age"`
	Address   string               `bson:"address"`
	Cluster   string               `bson:"cluster"`
	Created   time.Time            `bson:"created"`
}

func toDocument(s store.Submission) (document, error) {
	age, err := primitive.ParseDecimal128(strconv.FormatUint(s.Age, 10))
	if err != nil {
		return document{}, err
	}

	return document{
		ID:        s.ID,
		User:      s.User,
		Account:   s.Account,
		Signature: s.Signature,
		Name:      s.Name,
		Age:       age,
		Address:   s.Address,
		Cluster:   s.Cluster,
		Created:   s.Created,
	}, nil
}

func (d document) submission() (store.Submission, error) {
	age, err := strconv.ParseUint(d.Age.String(), 10, 64)
	if err != nil {
		return store.Submission{}, fmt.Errorf("submission %s has age %s: %w", d.ID, d.Age, err)
	}

	return store.Submission{
		ID:        d.ID,
		User:      d.User,
		Account:   d.Account,
		Signature: d.Signature,
		Name:      d.Name,
		Age:       age,
		Address:   d.Address,
		Cluster:   d.Cluster,
		Created:   d.Created,
	}, nil
}

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c *mgo.Client
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string) (*Mongo, error) {
	// get a client
	c, err := mgo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}
	// connect client
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	err = c.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	// make sure the server is there before serving requests
	if err = c.Ping(ctx, nil); err != nil {
		_ = c.Disconnect(context.Background())

		return nil, fmt.Errorf("error pinging mongo DB: %w", err)
	}

	return &Mongo{c: c}, nil
}

// CloseMongo will close a database connection. Must be called at termination time.
func (m *Mongo) CloseMongo() error {
	return m.c.Disconnect(context.Background())
}

func (m *Mongo) col() *mgo.Collection {
	return m.c.Database(Database).Collection(Collection)
}

// AddSubmission saves a submission and returns its id.
func (m *Mongo) AddSubmission(s store.Submission) (string, error) {
	if err := s.Prepare(); err != nil {
		return "", err
	}

	doc, err := toDocument(s)
	if err != nil {
		return "", err
	}

	if _, err = m.col().InsertOne(context.Background(), doc); err != nil {
		return "", fmt.Errorf("could not insert submission in db: %w", err)
	}

	return s.ID, nil
}

// GetSubmissions returns the submissions of user, newest first.
func (m *Mongo) GetSubmissions(user string, limit int) ([]store.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := m.col().Find(context.Background(), bson.M{"user": user}, opts)
	if err != nil {
		return nil, fmt.Errorf("error getting submissions from mongo DB: %w", err)
	}

	var docs []document
	if err = cur.All(context.Background(), &docs); err != nil {
		return nil, fmt.Errorf("error decoding submissions from mongo DB: %w", err)
	}

	subs := make([]store.Submission, 0, len(docs))

	for _, d := range docs {
		sub, errD := d.submission()
		if errD != nil {
			return nil, errD
		}

		subs = append(subs, sub)
	}

	return subs, nil
}

// DeleteSubmissions removes every submission of user.
func (m *Mongo) DeleteSubmissions(user string) error {
	_, err := m.col().DeleteMany(context.Background(), bson.M{"user": user})

	return err
}
