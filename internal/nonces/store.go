// Package nonces remembers the nonces handed out with sign-in challenges so
// that every nonce can be redeemed only once.
package nonces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ratersapp/siws/internal/conf"
	"github.com/ratersapp/siws/internal/storage"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNonceNotFound is returned by Consume for nonces that were never
	// issued, were consumed already or have expired.
	ErrNonceNotFound = errors.New("nonces: nonce not found")

	// ErrNonceAlreadyIssued is returned by Issue when the nonce is live.
	ErrNonceAlreadyIssued = errors.New("nonces: nonce already issued")
)

// Store tracks issued nonces.
type Store interface {
	// Issue records nonce as redeemable for ttl, measured on the backend's
	// own clock.
	Issue(ctx context.Context, nonce string, ttl time.Duration) error

	// Consume redeems nonce. It succeeds at most once per issued nonce.
	Consume(ctx context.Context, nonce string) error

	// Name identifies the backend in logs.
	Name() string

	Close() error
}

type contextKey string

const clientIPKey = contextKey("client_ip")

// WithClientIP records the address of the client a nonce is issued to.
// Backends that keep an audit trail store it alongside the nonce.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// New builds the store selected by config. db is only used by the postgres
// backend and may be nil otherwise.
func New(ctx context.Context, config *conf.GlobalConfiguration, db *storage.Connection) (Store, error) {
	var (
		store Store
		err   error
	)

	switch config.Nonce.Store {
	case "", conf.NonceStoreNone:
		return nil, nil

	case conf.NonceStoreMemory:
		store = NewMemoryStore(config.Challenge.NonceTTL)

	case conf.NonceStoreRedis:
		store, err = DialRedisStore(ctx, &config.Redis)

	case conf.NonceStorePostgres:
		if db == nil {
			return nil, errors.New("nonces: the postgres store needs a database connection")
		}
		store = NewPostgresStore(db)

	default:
		return nil, fmt.Errorf("nonces: unknown store %q", config.Nonce.Store)
	}
	if err != nil {
		return nil, err
	}

	logrus.WithField("component", "nonces").Infof("tracking challenge nonces in %s", store.Name())

	return store, nil
}

func checkTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("nonces: ttl %s is not positive", ttl)
	}
	return nil
}
