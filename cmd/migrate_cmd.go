package cmd

import (
	"embed"
	"net/url"

	"github.com/gobuffalo/pop/v6"
	"github.com/pkg/errors"
	"github.com/ratersapp/siws/internal/conf"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	migrationTableName       = "siws_schema_migrations"
	migrationApplicationName = "siws_migrations"
)

var EmbeddedMigrations embed.FS

var migrateCmd = cobra.Command{
	Use:          "migrate",
	Short:        "Apply database migrations",
	Long:         "Migrate database structures. This creates the table that backs the postgres nonce store.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		config := loadGlobalConfig(cmd.Context())
		count, err := runMigrations(config)
		if err != nil {
			return err
		}
		logrus.WithField("count", count).Info("SIWS migrations applied successfully")
		return nil
	},
}

func runMigrations(config *conf.GlobalConfiguration) (int, error) {
	if config.DB.URL == "" {
		return 0, errors.New("SIWS_DB_DATABASE_URL must be set to run migrations")
	}

	migrationURL, err := withApplicationName(config.DB.URL, migrationApplicationName)
	if err != nil {
		return 0, err
	}

	// statement logs from the migrator are only useful while debugging
	pop.Debug = logrus.IsLevelEnabled(logrus.DebugLevel)

	db, err := pop.NewConnection(&pop.ConnectionDetails{
		Dialect: config.DB.Driver,
		URL:     migrationURL,
		Options: map[string]string{"migration_table_name": migrationTableName},
	})
	if err != nil {
		return 0, errors.Wrap(err, "opening db connection")
	}
	defer db.Close()

	if err := db.Open(); err != nil {
		return 0, errors.Wrap(err, "checking database connection")
	}

	box, err := pop.NewMigrationBox(EmbeddedMigrations, db)
	if err != nil {
		return 0, errors.Wrap(err, "creating db migrator")
	}
	box.SchemaPath = ""

	count, err := box.UpTo(0)
	if err != nil {
		return count, errors.Wrap(err, "running db migrations")
	}
	return count, nil
}

// withApplicationName tags connections made with dbURL so they can be told
// apart in pg_stat_activity.
func withApplicationName(dbURL, name string) (string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", errors.Wrap(err, "parsing db connection url")
	}
	q := u.Query()
	q.Set("application_name", name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
