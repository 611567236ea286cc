package storage

import (
	"context"
	"database/sql"

	"github.com/gobuffalo/pop/v6"
	"github.com/pkg/errors"
)

// Connection wraps a pop connection or transaction.
type Connection struct {
	*pop.Connection
}

// Transaction runs fn in a transaction, or directly in the current one when
// c is already transactional. A rollback that finds the transaction already
// finished is not reported, since the commit went through.
func (c *Connection) Transaction(fn func(*Connection) error) error {
	if c.TX != nil {
		return fn(c)
	}

	err := c.Connection.Transaction(func(tx *pop.Connection) error {
		return fn(&Connection{tx})
	})
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// WithContext returns a connection whose queries carry ctx, and with it the
// active trace span.
func (c *Connection) WithContext(ctx context.Context) *Connection {
	return &Connection{c.Connection.WithContext(ctx)}
}
