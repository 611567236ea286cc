package api

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/didip/tollbooth/v5"
	"github.com/didip/tollbooth/v5/limiter"
	"github.com/ratersapp/siws/internal/conf"
	"github.com/ratersapp/siws/internal/models"
	"github.com/ratersapp/siws/internal/observability"
	"github.com/ratersapp/siws/internal/utilities"
	"github.com/sirupsen/logrus"
)

var rateLimitCounter = observability.ObtainMetricCounter("siws_rate_limit_counter", "Number of times a request rate limit has been triggered")

func newLimiter(rate conf.Rate) *limiter.Limiter {
	return tollbooth.NewLimiter(rate.EventsPerSecond(), &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Hour,
	}).SetBurst(rate.Burst())
}

// limitHandler keys the limiter by the configured rate limit header, or by
// the client address when no header is configured.
func (a *API) limitHandler(lmt *limiter.Limiter) middlewareHandler {
	return func(w http.ResponseWriter, req *http.Request) (context.Context, error) {
		c := req.Context()

		key := utilities.GetIPAddress(req)
		if limitHeader := a.config.RateLimitHeader; limitHeader != "" {
			key = req.Header.Get(limitHeader)

			if key == "" {
				log := observability.GetLogEntry(req)
				log.WithField("header", limitHeader).Warn("request does not have a value for the rate limiting header, rate limiting is not applied")
				return c, nil
			}
		}

		if err := tollbooth.LimitByKeys(lmt, []string{key}); err != nil {
			rateLimitCounter.Add(c, 1)
			return c, tooManyRequestsError(ErrorCodeOverRequestRateLimit, "Request rate limit reached")
		}

		return c, nil
	}
}

func (a *API) databaseCleanup(cleanup *models.Cleanup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			switch r.Method {
			case http.MethodPost:
				// continue

			default:
				return
			}

			db := a.db.WithContext(r.Context())
			log := observability.GetLogEntry(r)

			affectedRows, err := cleanup.Clean(db)
			if err != nil {
				log.WithError(err).WithField("affected_rows", affectedRows).Warn("database cleanup failed")
			} else if affectedRows > 0 {
				log.WithField("affected_rows", affectedRows).Debug("cleaned up expired or stale challenges")
			}
		})
	}
}

// bufferedResponse holds a handler's response until it is known to have
// finished before its deadline.
type bufferedResponse struct {
	mu     sync.Mutex
	header http.Header
	sent   http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.header
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeHeader(http.StatusOK)
	return b.body.Write(p)
}

func (b *bufferedResponse) WriteHeader(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeHeader(status)
}

// writeHeader keeps the first status and the headers as they were then.
func (b *bufferedResponse) writeHeader(status int) {
	if b.status != 0 {
		return
	}
	b.status = status
	b.sent = b.header.Clone()
}

func (b *bufferedResponse) flushTo(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.writeHeader(http.StatusOK)
	for k, vv := range b.sent {
		w.Header()[k] = vv
	}
	w.WriteHeader(b.status)
	if _, err := w.Write(b.body.Bytes()); err != nil {
		logrus.WithError(err).Warn("Write failed")
	}
}

// timeoutMiddleware answers 504 when the handler is still running after
// timeout. Whatever the handler writes afterwards is dropped.
func timeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			buf := &bufferedResponse{header: make(http.Header)}
			panicked := make(chan any, 1)
			done := make(chan struct{})

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(buf, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				buf.flushTo(w)
			case <-ctx.Done():
				if ctx.Err() != context.DeadlineExceeded {
					// the client went away, let the handler finish
					select {
					case p := <-panicked:
						panic(p)
					case <-done:
						buf.flushTo(w)
					}
					return
				}
				HandleResponseError(httpError(http.StatusGatewayTimeout, ErrorCodeRequestTimeout,
					"Processing this request timed out, please retry after a moment.").WithInternalError(ctx.Err()), w, r)
			}
		})
	}
}
