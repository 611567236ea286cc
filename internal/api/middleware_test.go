package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ratersapp/siws/internal/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouterWith(mw middlewareHandler, fn apiHandler) http.Handler {
	r := newRouter()
	r.Use(mw)
	r.Get("/", fn)
	return r
}

func okHandler(w http.ResponseWriter, r *http.Request) error {
	return sendJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func TestLimitHandler(t *testing.T) {
	config := testConfig(t)
	api := NewAPI(config, nil)

	h := newRouterWith(api.limitHandler(newLimiter(conf.Rate{Events: 2, OverTime: time.Hour})), okHandler)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://localhost/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://localhost/", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, ErrorCodeOverRequestRateLimit, w.Header().Get("x-siws-error-code"))

	var httpErr HTTPError
	require.NoError(t, json.NewDecoder(w.Body).Decode(&httpErr))
	require.Equal(t, "Request rate limit reached", httpErr.Message)

	// other clients have their own budget
	req := httptest.NewRequest(http.MethodGet, "http://localhost/", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLimitHandlerWithHeader(t *testing.T) {
	config := testConfig(t)
	config.RateLimitHeader = "X-Rate-Limit-Key"
	api := NewAPI(config, nil)

	h := newRouterWith(api.limitHandler(newLimiter(conf.Rate{Events: 1, OverTime: time.Hour})), okHandler)

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "http://localhost/", nil)
		if key != "" {
			req.Header.Set("X-Rate-Limit-Key", key)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("a"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))
	assert.Equal(t, http.StatusOK, send("b"))

	// requests without the header are not limited
	assert.Equal(t, http.StatusOK, send(""))
	assert.Equal(t, http.StatusOK, send(""))
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	timeoutMiddleware(10*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://localhost/", nil))
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	require.Equal(t, ErrorCodeRequestTimeout, w.Header().Get("x-siws-error-code"))

	fast := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Fast", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("brewed"))
	})

	w = httptest.NewRecorder()
	timeoutMiddleware(time.Second)(fast).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://localhost/", nil))
	require.Equal(t, http.StatusTeapot, w.Code)
	require.Equal(t, "yes", w.Header().Get("X-Fast"))
	require.Equal(t, "brewed", w.Body.String())
}

func TestRecoverer(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	recoverer(panicking).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://localhost/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var httpErr HTTPError
	require.NoError(t, json.NewDecoder(w.Body).Decode(&httpErr))
	require.Equal(t, ErrorCodeUnexpectedFailure, httpErr.ErrorCode)
}
