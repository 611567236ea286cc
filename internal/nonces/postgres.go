package nonces

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/ratersapp/siws/internal/models"
	"github.com/ratersapp/siws/internal/storage"
)

// PostgresStore keeps nonces as models.Challenge rows, which leaves an audit
// trail of who was handed which nonce and when it was redeemed.
type PostgresStore struct {
	db *storage.Connection
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *storage.Connection) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string {
	return "postgres"
}

// Issue stamps the expiry with the same clock Consume compares it against.
func (s *PostgresStore) Issue(ctx context.Context, nonce string, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}

	challenge, err := models.NewChallenge(nonce, clientIP(ctx), time.Now().Add(ttl))
	if err != nil {
		return err
	}

	if err := challenge.Create(s.db.WithContext(ctx)); err != nil {
		if _, ok := err.(models.ChallengeAlreadyExistsError); ok {
			return ErrNonceAlreadyIssued
		}
		return err
	}

	return nil
}

func (s *PostgresStore) Consume(ctx context.Context, nonce string) error {
	err := models.ConsumeChallenge(s.db.WithContext(ctx), nonce, time.Now())
	if models.IsNotFoundError(err) {
		return ErrNonceNotFound
	}
	return errors.Wrap(err, "nonces: consuming challenge")
}

// Close leaves the shared database connection open.
func (s *PostgresStore) Close() error {
	return nil
}
