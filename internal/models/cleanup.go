package models

import (
	"fmt"
	"sync/atomic"

	"github.com/ratersapp/siws/internal/observability"
	"github.com/ratersapp/siws/internal/storage"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Cleanup deletes stale challenges in small batches.
type Cleanup struct {
	cleanupStatements []string

	// cleanupNext holds an atomically incrementing value that determines which of
	// the cleanupStatements will be run next.
	cleanupNext uint32

	cleanupAffectedRows metric.Int64Counter
}

func NewCleanup() *Cleanup {
	tableChallenges := Challenge{}.TableName()

	c := &Cleanup{}

	// SKIP LOCKED leaves rows alone that a verification is consuming right
	// now, so the deletes never wait on other transactions.
	c.cleanupStatements = append(c.cleanupStatements,
		fmt.Sprintf("delete from %q where id in (select id from %q where expires_at < now() and consumed_at is null limit 100 for update skip locked);", tableChallenges, tableChallenges),
		fmt.Sprintf("delete from %q where id in (select id from %q where consumed_at < now() - interval '24 hours' limit 100 for update skip locked);", tableChallenges, tableChallenges),
	)

	cleanupAffectedRows, err := observability.Meter("siws").Int64Counter(
		"siws_cleanup_affected_rows",
		metric.WithDescription("Number of affected rows from cleaning up stale challenges"),
	)
	if err != nil {
		logrus.WithError(err).Error("unable to get siws_cleanup_affected_rows counter metric")
	}

	c.cleanupAffectedRows = cleanupAffectedRows

	return c
}

// Clean runs the next cleanup statement. It is cheap enough to call after
// each request, and each call only cleans a small batch.
func (c *Cleanup) Clean(db *storage.Connection) (int, error) {
	ctx, span := observability.Tracer("siws").Start(db.Context(), "database-cleanup")
	defer span.End()

	affectedRows := 0
	defer func() {
		span.SetAttributes(attribute.Int64("siws.cleanup.affected_rows", int64(affectedRows)))
	}()

	if err := db.WithContext(ctx).Transaction(func(tx *storage.Connection) error {
		nextIndex := atomic.AddUint32(&c.cleanupNext, 1) % uint32(len(c.cleanupStatements))
		statement := c.cleanupStatements[nextIndex]

		count, terr := tx.RawQuery(statement).ExecWithCount()
		if terr != nil {
			return terr
		}

		affectedRows += count

		return nil
	}); err != nil {
		return affectedRows, err
	}

	if c.cleanupAffectedRows != nil {
		c.cleanupAffectedRows.Add(ctx, int64(affectedRows))
	}

	return affectedRows, nil
}
