package models

import (
	"github.com/gobuffalo/pop/v6"
	"github.com/ratersapp/siws/internal/storage"
)

// TruncateAll deletes all data from the database, as managed by siws. Not
// intended for use outside of tests.
func TruncateAll(conn *storage.Connection) error {
	return conn.Transaction(func(tx *storage.Connection) error {
		tables := []string{
			(&pop.Model{Value: Challenge{}}).TableName(),
		}

		for _, tableName := range tables {
			if err := tx.RawQuery("DELETE FROM " + tableName + " CASCADE").Exec(); err != nil {
				return err
			}
		}

		return nil
	})
}
