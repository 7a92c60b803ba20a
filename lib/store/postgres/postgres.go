// Package postgres implements the interface for PostgreSQL.
package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" //nolint:gci // load the postgres driver that is used by the system

	"github.com/tarancss/userdetails/lib/store"
)

const schema = `CREATE TABLE IF NOT EXISTS submissions (
	id        TEXT PRIMARY KEY,
	usr       TEXT NOT NULL,
	account   TEXT NOT NULL,
	signature TEXT NOT NULL,
	name      TEXT NOT NULL,
	age       NUMERIC(20) NOT NULL,
	address   TEXT NOT NULL,
	cluster   TEXT NOT NULL,
	created   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS submissions_usr_created ON submissions (usr, created DESC);`

// Postgres implements a connection to a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// New returns a postgres client connection to the specified database in 'connection' and creates the journal table
// if needed.
func New(connection string) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("cannot create journal schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

// ClosePostgres will close any database connection. Must be called at termination time.
func (p *Postgres) ClosePostgres() error {
	return p.db.Close()
}

// AddSubmission saves a submission and returns its id.
func (p *Postgres) AddSubmission(s store.Submission) (string, error) {
	if err := s.Prepare(); err != nil {
		return "", err
	}

	_, err := p.db.Exec(`INSERT INTO submissions (id, usr, account, signature, name, age, address, cluster, created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.User, s.Account, s.Signature, s.Name, fmt.Sprint(s.Age), s.Address, s.Cluster, s.Created)
	if err != nil {
		return "", fmt.Errorf("could not insert submission in db: %w", err)
	}

	return s.ID, nil
}

// GetSubmissions returns the submissions of user, newest first.
func (p *Postgres) GetSubmissions(user string, limit int) ([]store.Submission, error) {
	lim := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}

	rows, err := p.db.Query(`SELECT id, usr, account, signature, name, age, address, cluster, created
		FROM submissions WHERE usr = $1 ORDER BY created DESC LIMIT $2`, user, lim)
	if err != nil {
		return nil, fmt.Errorf("error getting submissions from db: %w", err)
	}
	defer rows.Close()

	subs := []store.Submission{}

	for rows.Next() {
		var s store.Submission

		var age string

		if err = rows.Scan(&s.ID, &s.User, &s.Account, &s.Signature, &s.Name, &age, &s.Address, &s.Cluster,
			&s.Created); err != nil {
			return nil, fmt.Errorf("error reading submission: %w", err)
		}

		if _, err = fmt.Sscan(age, &s.Age); err != nil {
			return nil, fmt.Errorf("error reading submission age %q: %w", age, err)
		}

		subs = append(subs, s)
	}

	return subs, rows.Err()
}

// DeleteSubmissions removes every submission of user.
func (p *Postgres) DeleteSubmissions(user string) error {
	_, err := p.db.Exec(`DELETE FROM submissions WHERE usr = $1`, user)

	return err
}
