package models

import (
	"database/sql"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
	"github.com/ratersapp/siws/internal/storage"
)

// Challenge is a nonce handed out by GET /siws. It can be consumed once,
// before it expires.
type Challenge struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Nonce      string     `json:"nonce" db:"nonce"`
	IPAddress  string     `json:"ip_address" db:"ip_address"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty" db:"consumed_at"`
}

func (Challenge) TableName() string {
	tableName := "siws_challenges"
	return tableName
}

// NewChallenge builds an unsaved challenge for nonce.
func NewChallenge(nonce, ipAddress string, expiresAt time.Time) (*Challenge, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "error generating unique id")
	}

	return &Challenge{
		ID:        id,
		Nonce:     nonce,
		IPAddress: ipAddress,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// Create stores the challenge. A nonce that is already stored yields
// ChallengeAlreadyExistsError.
func (c *Challenge) Create(tx *storage.Connection) error {
	if err := tx.Create(c); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ChallengeAlreadyExistsError{}
		}
		return errors.Wrap(err, "error creating challenge")
	}
	return nil
}

// FindChallengeByNonce returns the challenge for nonce. Inside a transaction
// the row is locked until the transaction ends.
func FindChallengeByNonce(tx *storage.Connection, nonce string) (*Challenge, error) {
	query := "SELECT * FROM " + Challenge{}.TableName() + " WHERE nonce = ?"
	if tx.TX != nil {
		query += " FOR UPDATE"
	}

	obj := &Challenge{}
	if err := tx.RawQuery(query, nonce).First(obj); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, ChallengeNotFoundError{}
		}
		return nil, errors.Wrap(err, "error finding challenge")
	}

	return obj, nil
}

// HasExpired reports whether the challenge can no longer be consumed at now.
func (c *Challenge) HasExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsConsumed reports whether the challenge was used already.
func (c *Challenge) IsConsumed() bool {
	return c.ConsumedAt != nil
}

// Consume marks the challenge as used. Consumed or expired challenges are
// reported as ChallengeNotFoundError, so callers cannot tell them apart from
// unknown nonces.
func (c *Challenge) Consume(tx *storage.Connection, now time.Time) error {
	if c.IsConsumed() || c.HasExpired(now) {
		return ChallengeNotFoundError{}
	}

	consumedAt := now.UTC()
	c.ConsumedAt = &consumedAt

	return tx.UpdateOnly(c, "consumed_at")
}

// ConsumeChallenge finds and consumes the challenge for nonce in one
// transaction.
func ConsumeChallenge(conn *storage.Connection, nonce string, now time.Time) error {
	return conn.Transaction(func(tx *storage.Connection) error {
		challenge, err := FindChallengeByNonce(tx, nonce)
		if err != nil {
			return err
		}
		return challenge.Consume(tx, now)
	})
}

// DeleteExpiredChallenges removes challenges that expired before now and
// returns how many were deleted.
func DeleteExpiredChallenges(tx *storage.Connection, now time.Time) (int, error) {
	count, err := tx.RawQuery("DELETE FROM "+Challenge{}.TableName()+" WHERE expires_at < ?", now.UTC()).ExecWithCount()
	if err != nil {
		return 0, errors.Wrap(err, "error deleting expired challenges")
	}
	return count, nil
}
