package observability

import (
	"fmt"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/ratersapp/siws/internal/utilities"
	"github.com/sirupsen/logrus"
)

// NewStructuredLogger logs one line when a request starts and one when it
// completes. Handlers add fields to the completion line with LogEntrySetField.
func NewStructuredLogger(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return chimiddleware.RequestLogger(&requestLogger{logger})
}

type requestLogger struct {
	logger *logrus.Logger
}

func (l *requestLogger) NewLogEntry(r *http.Request) chimiddleware.LogEntry {
	fields := logrus.Fields{
		"component":   "api",
		"method":      r.Method,
		"path":        r.URL.Path,
		"remote_addr": utilities.GetIPAddress(r),
		"referer":     r.Referer(),
		"origin":      r.Header.Get("Origin"),
		"user_agent":  r.UserAgent(),
	}
	if reqID := utilities.GetRequestID(r.Context()); reqID != "" {
		fields["request_id"] = reqID
	}

	entry := &requestLogEntry{log: l.logger.WithFields(fields)}
	entry.log.Info("request started")
	return entry
}

type requestLogEntry struct {
	log logrus.FieldLogger
}

func (e *requestLogEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	e.log.WithFields(logrus.Fields{
		"status":   status,
		"bytes":    bytes,
		"duration": elapsed.Nanoseconds(),
	}).Info("request completed")
}

func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	e.log.WithFields(logrus.Fields{
		"stack": string(stack),
		"panic": fmt.Sprintf("%+v", v),
	}).Panic("unhandled request panic")
}

func requestEntry(r *http.Request) *requestLogEntry {
	entry, _ := chimiddleware.GetLogEntry(r).(*requestLogEntry)
	return entry
}

// GetLogEntry returns the logger of the current request, or the standard
// logger outside the request logger.
func GetLogEntry(r *http.Request) logrus.FieldLogger {
	if entry := requestEntry(r); entry != nil {
		return entry.log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func LogEntrySetField(r *http.Request, key string, value interface{}) logrus.FieldLogger {
	return LogEntrySetFields(r, logrus.Fields{key: value})
}

func LogEntrySetFields(r *http.Request, fields logrus.Fields) logrus.FieldLogger {
	entry := requestEntry(r)
	if entry == nil {
		return nil
	}
	entry.log = entry.log.WithFields(fields)
	return entry.log
}
