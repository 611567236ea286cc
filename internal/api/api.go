package api

import (
	"net/http"
	"time"

	"github.com/ratersapp/siws/internal/conf"
	"github.com/ratersapp/siws/internal/models"
	"github.com/ratersapp/siws/internal/nonces"
	"github.com/ratersapp/siws/internal/observability"
	"github.com/ratersapp/siws/internal/ratelimit"
	"github.com/ratersapp/siws/internal/storage"
	"github.com/rs/cors"
	"github.com/sebest/xff"
	"github.com/sirupsen/logrus"
)

const (
	defaultVersion = "unknown version"

	// corsMaxAge lets browsers cache pre-flight answers for a day.
	corsMaxAge = 86400
)

// API is the SIWS REST API
type API struct {
	handler http.Handler
	db      *storage.Connection
	config  *conf.GlobalConfiguration
	nonces  nonces.Store
	version string

	// issueLimiter caps challenge issuance across all clients, nil when
	// unlimited.
	issueLimiter ratelimit.Limiter

	// overrideTime can be used to override the clock used by handlers. Should only be used in tests!
	overrideTime func() time.Time
}

func (a *API) Now() time.Time {
	if a.overrideTime != nil {
		return a.overrideTime()
	}

	return time.Now()
}

// NewAPI instantiates a new REST API without nonce tracking.
func NewAPI(globalConfig *conf.GlobalConfiguration, db *storage.Connection) *API {
	return NewAPIWithVersion(globalConfig, db, nil, defaultVersion)
}

// NewAPIWithVersion creates a new REST API using the specified version. db may
// be nil unless database cleanup is enabled, and store may be nil to disable
// nonce tracking.
func NewAPIWithVersion(globalConfig *conf.GlobalConfiguration, db *storage.Connection, store nonces.Store, version string) *API {
	api := &API{
		config:       globalConfig,
		db:           db,
		nonces:       store,
		version:      version,
		issueLimiter: ratelimit.New(globalConfig.RateLimitNonceIssue),
	}

	xffmw, _ := xff.Default()
	logger := observability.NewStructuredLogger(logrus.StandardLogger())

	r := newRouter()
	r.UseBypass(xffmw.Handler)
	r.Use(addRequestID(globalConfig))

	// request tracing should be added only when tracing or metrics is enabled
	if globalConfig.Tracing.Enabled || globalConfig.Metrics.Enabled {
		r.UseBypass(observability.RequestTracing())
	}

	r.UseBypass(logger)
	r.UseBypass(recoverer)

	if globalConfig.API.MaxRequestDuration > 0 {
		r.UseBypass(timeoutMiddleware(globalConfig.API.MaxRequestDuration))
	}

	if globalConfig.DB.CleanupEnabled && db != nil {
		cleanup := models.NewCleanup()
		r.UseBypass(api.databaseCleanup(cleanup))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) error {
		return notFoundError(ErrorCodeNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) error {
		return httpError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", api.HealthCheck)

	r.Route("/siws", func(r *router) {
		r.With(api.limitHandler(newLimiter(globalConfig.RateLimitChallenge))).Get("/", api.Challenge)
		r.With(api.limitHandler(newLimiter(globalConfig.RateLimitVerify))).Post("/", api.Verify)
		r.Options("/", api.Preflight)
	})

	allowedHeaders := []string{"*"}
	if len(globalConfig.CORS.AllowedHeaders) > 0 {
		allowedHeaders = globalConfig.CORS.AllAllowedHeaders([]string{"Accept", "Content-Type", "X-Client-Info"})
	}

	corsHandler := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       allowedHeaders,
		AllowCredentials:     true,
		MaxAge:               corsMaxAge,
		OptionsSuccessStatus: http.StatusOK,
	})

	api.handler = corsHandler.Handler(r)

	return api
}

// ServeHTTP implements the http.Handler interface by passing the request along
// to its underlying Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

type HealthCheckResponse struct {
	Version     string `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description"`
	NonceStore  string `json:"nonce_store"`
}

// HealthCheck endpoint indicates if the siws api service is available
func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) error {
	store := conf.NonceStoreNone
	if a.nonces != nil {
		store = a.nonces.Name()
	}

	return sendJSON(w, http.StatusOK, HealthCheckResponse{
		Version:     a.version,
		Name:        "SIWS",
		Description: "SIWS verifies Sign-In With Solana messages signed by wallets",
		NonceStore:  store,
	})
}
