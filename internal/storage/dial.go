package storage

import (
	"context"
	"database/sql"
	"net/url"
	"reflect"

	"github.com/XSAM/otelsql"
	"github.com/gobuffalo/pop/v6"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/ratersapp/siws/internal/conf"
	"github.com/sirupsen/logrus"
)

// pgxDriver is the database/sql driver pop v6 uses for PostgreSQL.
const pgxDriver = "pgx"

// Dial connects to the configured database.
func Dial(config *conf.GlobalConfiguration) (*Connection, error) {
	return DialContext(context.Background(), config)
}

// DialContext connects to the configured database and pings it before
// returning.
func DialContext(ctx context.Context, config *conf.GlobalConfiguration) (*Connection, error) {
	cd, err := newConnectionDetails(config)
	if err != nil {
		return nil, err
	}

	db, err := pop.NewConnection(cd)
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}
	if err := db.Open(); err != nil {
		return nil, errors.Wrap(err, "checking database connection")
	}

	sqldb := stdDB(db)
	if sqldb == nil {
		return &Connection{db}, nil
	}
	if err := sqldb.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	if config.Metrics.Enabled {
		if err := otelsql.RegisterDBStatsMetrics(sqldb); err != nil {
			logrus.WithError(err).Warn("unable to register database pool metrics")
		}
	}

	return &Connection{db}, nil
}

func newConnectionDetails(config *conf.GlobalConfiguration) (*pop.ConnectionDetails, error) {
	dbc := &config.DB

	dialect := dbc.Driver
	if dialect == "" && dbc.URL != "" {
		u, err := url.Parse(dbc.URL)
		if err != nil {
			return nil, errors.Wrap(err, "parsing db connection url")
		}
		dialect = u.Scheme
	}
	if dialect == "postgresql" {
		dialect = "postgres"
	}
	if dialect != "postgres" {
		return nil, errors.Errorf("database dialect %q is not supported", dialect)
	}

	options := map[string]string{}
	if dbc.HealthCheckPeriod > 0 {
		options["pool_health_check_period"] = dbc.HealthCheckPeriod.String()
	}
	if dbc.ConnMaxIdleTime > 0 {
		options["pool_max_conn_idle_time"] = dbc.ConnMaxIdleTime.String()
	}

	return &pop.ConnectionDetails{
		Dialect:         dialect,
		Driver:          driverName(config),
		URL:             dbc.URL,
		Pool:            dbc.MaxPoolSize,
		IdlePool:        dbc.MaxIdlePoolSize,
		ConnMaxLifetime: dbc.ConnMaxLifetime,
		ConnMaxIdleTime: dbc.ConnMaxIdleTime,
		Options:         options,
	}, nil
}

// driverName wraps pgx with otelsql when tracing or metrics are on.
func driverName(config *conf.GlobalConfiguration) string {
	if !config.Tracing.Enabled && !config.Metrics.Enabled {
		return pgxDriver
	}

	name, err := otelsql.Register(pgxDriver)
	if err != nil {
		logrus.WithError(err).Warn("unable to instrument the pgx driver")
		return pgxDriver
	}
	// named queries on the wrapped driver must still bind with $1
	sqlx.BindDriver(name, sqlx.BindType(pgxDriver))
	return name
}

// stdDB returns the *sql.DB behind db. pop keeps it in an unexported store
// that embeds *sqlx.DB, so it is reached by field name.
func stdDB(db *pop.Connection) (sqldb *sql.DB) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithField("error", rec).Warn("unable to reach the database pool of the pop connection")
			sqldb = nil
		}
	}()

	store := reflect.Indirect(reflect.ValueOf(db.Store))
	sqlxdb, ok := store.FieldByName("DB").Interface().(*sqlx.DB)
	if !ok || sqlxdb == nil {
		return nil
	}
	return sqlxdb.DB
}
