// Package e2e locates the shared test configuration. It may only be imported
// from tests.
package e2e

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ratersapp/siws/internal/conf"
)

var (
	isTesting = testing.Testing

	projectRoot string
	configPath  string
)

func init() {
	initPackage()
}

func initPackage() {
	if !isTesting() {
		panic("e2e: imported outside of a test binary")
	}

	_, file, _, _ := runtime.Caller(0)
	projectRoot = filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
	configPath = filepath.Join(projectRoot, "hack", "test.env")
}

// ProjectRoot is the directory holding go.mod.
func ProjectRoot() string { return projectRoot }

// ConfigPath is hack/test.env under ProjectRoot.
func ConfigPath() string { return configPath }

// Config loads the configuration in ConfigPath.
func Config() (*conf.GlobalConfiguration, error) {
	return conf.LoadGlobal(configPath)
}

// Must returns v or panics with err, e.g. e2e.Must(e2e.Config()).
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
