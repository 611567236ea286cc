package api

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/pkg/errors"
	"github.com/ratersapp/siws/internal/observability"
	"github.com/ratersapp/siws/internal/utilities"
	"github.com/sirupsen/logrus"
)

// ErrorCodeHeader carries the error code of every error response.
const ErrorCodeHeader = "x-siws-error-code"

// HTTPError is the body of every error response. The JSON names are part of
// the API.
type HTTPError struct {
	HTTPStatus      int    `json:"code"`
	ErrorCode       string `json:"error_code,omitempty"`
	Message         string `json:"msg"`
	InternalError   error  `json:"-"`
	InternalMessage string `json:"-"`
	ErrorID         string `json:"error_id,omitempty"`
}

func (e *HTTPError) Error() string {
	if e.InternalMessage != "" {
		return e.InternalMessage
	}
	return fmt.Sprintf("%d: %s", e.HTTPStatus, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.InternalError
}

// WithInternalError attaches the error that caused e. It is logged, never
// sent.
func (e *HTTPError) WithInternalError(err error) *HTTPError {
	e.InternalError = err
	return e
}

// WithInternalMessage replaces the logged message of e.
func (e *HTTPError) WithInternalMessage(fmtString string, args ...interface{}) *HTTPError {
	e.InternalMessage = fmt.Sprintf(fmtString, args...)
	return e
}

func httpError(httpStatus int, errorCode ErrorCode, fmtString string, args ...interface{}) *HTTPError {
	return &HTTPError{
		HTTPStatus: httpStatus,
		ErrorCode:  errorCode,
		Message:    fmt.Sprintf(fmtString, args...),
	}
}

func internalServerError(fmtString string, args ...interface{}) *HTTPError {
	return httpError(http.StatusInternalServerError, ErrorCodeUnexpectedFailure, fmtString, args...)
}

func notFoundError(errorCode ErrorCode, fmtString string, args ...interface{}) *HTTPError {
	return httpError(http.StatusNotFound, errorCode, fmtString, args...)
}

func tooManyRequestsError(errorCode ErrorCode, fmtString string, args ...interface{}) *HTTPError {
	return httpError(http.StatusTooManyRequests, errorCode, fmtString, args...)
}

// recoverer turns a handler panic into a logged 500 response.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			observability.GetLogEntry(r).WithFields(logrus.Fields{
				"panic": fmt.Sprintf("%+v", rvr),
				"stack": string(debug.Stack()),
			}).Error("unhandled request panic")

			HandleResponseError(internalServerError(http.StatusText(http.StatusInternalServerError)), w, r)
		}()
		next.ServeHTTP(w, r)
	})
}

// HandleResponseError writes err as a JSON error response. The first
// *HTTPError in the chain decides the status; anything else is reported as
// an unexpected failure without leaking its message.
func HandleResponseError(err error, w http.ResponseWriter, r *http.Request) {
	log := observability.GetLogEntry(r)

	var he *HTTPError
	if !errors.As(err, &he) {
		log.WithError(err).Error("unhandled server error")
		he = internalServerError("Unexpected failure, please check server logs for more information")
	} else {
		logHTTPError(log, he)
	}

	if he.ErrorCode == "" {
		he.ErrorCode = ErrorCodeUnknown
		if he.HTTPStatus == http.StatusInternalServerError {
			he.ErrorCode = ErrorCodeUnexpectedFailure
		}
	}
	if he.HTTPStatus >= http.StatusInternalServerError {
		he.ErrorID = utilities.GetRequestID(r.Context())
	}

	w.Header().Set(ErrorCodeHeader, he.ErrorCode)
	if jsonErr := sendJSON(w, he.HTTPStatus, he); jsonErr != nil {
		log.WithError(jsonErr).Warn("unable to write error response")
	}
}

func logHTTPError(log logrus.FieldLogger, he *HTTPError) {
	entry := log.WithField("status", he.HTTPStatus)
	if he.InternalError != nil {
		entry = entry.WithError(he.InternalError)
	}

	switch {
	case he.HTTPStatus >= http.StatusInternalServerError:
		entry.Error(he.Error())
	case he.HTTPStatus == http.StatusTooManyRequests:
		entry.Warn(he.Error())
	default:
		entry.Info(he.Error())
	}
}
