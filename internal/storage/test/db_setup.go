package test

import (
	"os"
	"testing"

	"github.com/ratersapp/siws/internal/conf"
	"github.com/ratersapp/siws/internal/storage"
)

// DatabaseURLEnv names the database used by integration tests.
const DatabaseURLEnv = "SIWS_TEST_DATABASE_URL"

// SetupDBConnection dials the test database, skipping the test when none is
// configured.
func SetupDBConnection(t testing.TB) (*conf.GlobalConfiguration, *storage.Connection) {
	t.Helper()

	url := os.Getenv(DatabaseURLEnv)
	if url == "" {
		t.Skipf("%s is not set", DatabaseURLEnv)
	}

	config := &conf.GlobalConfiguration{}
	config.DB.Driver = "postgres"
	config.DB.URL = url

	conn, err := storage.Dial(config)
	if err != nil {
		t.Fatalf("unable to connect to %s: %v", DatabaseURLEnv, err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return config, conn
}
