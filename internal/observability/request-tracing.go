package observability

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
	"go.opentelemetry.io/otel/trace"
)

// routePattern returns the chi route that served r, or the raw path when the
// request did not go through a chi router.
func routePattern(r *http.Request) (string, bool) {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern, true
		}
	}
	return r.URL.Path, false
}

// RequestTracing returns a middleware that wraps every request in an
// otelhttp span named after its chi route and counts the status codes
// returned per route. It belongs at the top of the middleware stack.
func RequestTracing() func(http.Handler) http.Handler {
	statusCodes, err := Meter(meterName).Int64Counter(
		"http_status_codes",
		metric.WithDescription("Number of returned HTTP status codes"),
	)
	if err != nil {
		logrus.WithError(err).Error("unable to get http_status_codes counter metric")
	}

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			pattern, routed := routePattern(r)
			trace.SpanFromContext(r.Context()).SetAttributes(semconv.HTTPRouteKey.String(pattern))

			if statusCodes == nil {
				return
			}
			attrs := []attribute.KeyValue{attribute.Int("code", status)}
			if routed {
				attrs = append(attrs, semconv.HTTPRouteKey.String(pattern))
			} else {
				attrs = append(attrs, attribute.Bool("noroute", true))
			}
			statusCodes.Add(r.Context(), 1, metric.WithAttributes(attrs...))
		}

		return otelhttp.NewHandler(http.HandlerFunc(fn), "siws")
	}
}
