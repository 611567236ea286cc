package api

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ratersapp/siws/internal/conf"
	"github.com/ratersapp/siws/internal/nonces"
	"github.com/ratersapp/siws/internal/utilities"
	"github.com/stretchr/testify/require"
)

const apiTestVersion = "1"

// testConfig returns the configuration the service would load from an empty
// environment.
func testConfig(t *testing.T) *conf.GlobalConfiguration {
	t.Helper()

	config := &conf.GlobalConfiguration{}
	config.API.MaxRequestDuration = 10 * time.Second
	config.Challenge = conf.ChallengeConfiguration{
		Version:          "1",
		ChainID:          "mainnet",
		Resources:        []string{"https://solana-phantom.ratersapp.com", "https://phantom.app/"},
		RequireCanonical: true,
		NonceTTL:         10 * time.Minute,
	}
	require.NoError(t, config.ApplyDefaults())

	return config
}

// setupAPIForTest creates an API with a fixed clock. store may be nil.
func setupAPIForTest(t *testing.T, config *conf.GlobalConfiguration, store nonces.Store) *API {
	t.Helper()

	api := NewAPIWithVersion(config, nil, store, apiTestVersion)
	api.overrideTime = func() time.Time {
		return testNow
	}

	return api
}

var testNow = time.Date(2024, 6, 17, 12, 11, 43, 0, time.UTC)

func testKey() ed25519.PrivateKey {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return ed25519.NewKeyFromSeed(seed)
}

func TestHealthCheck(t *testing.T) {
	api := setupAPIForTest(t, testConfig(t), nonces.NewMemoryStore(time.Minute))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://localhost/health", nil)
	api.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthCheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, apiTestVersion, resp.Version)
	require.Equal(t, "SIWS", resp.Name)
	require.Equal(t, "memory", resp.NonceStore)
}

func TestNotFound(t *testing.T) {
	api := NewAPI(testConfig(t), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://localhost/nope", nil)
	api.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, ErrorCodeNotFound, w.Header().Get("x-siws-error-code"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "http://localhost/siws", nil)
	api.ServeHTTP(w, req)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRequestID(t *testing.T) {
	config := testConfig(t)
	config.API.RequestIDHeader = "X-Request-ID"

	var seen string
	h := newRouterWith(addRequestID(config), func(w http.ResponseWriter, r *http.Request) error {
		seen = utilities.GetRequestID(r.Context())
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "http://localhost/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "abc-123", seen)

	req = httptest.NewRequest(http.MethodGet, "http://localhost/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Len(t, seen, 36)
}
