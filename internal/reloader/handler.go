package reloader

import (
	"net/http"
	"sync/atomic"
)

// AtomicHandler is an http.Handler whose target can be swapped while it is
// serving requests.
type AtomicHandler struct {
	val atomic.Value
}

type wrappedHandler struct {
	http.Handler
}

// NewAtomicHandler returns a handler serving h. h may be nil and stored later.
func NewAtomicHandler(h http.Handler) *AtomicHandler {
	ah := new(AtomicHandler)
	ah.Store(h)
	return ah
}

// Store replaces the handler that serves new requests.
func (ah *AtomicHandler) Store(h http.Handler) {
	ah.val.Store(&wrappedHandler{h})
}

func (ah *AtomicHandler) load() http.Handler {
	return ah.val.Load().(*wrappedHandler).Handler
}

func (ah *AtomicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h := ah.load(); h != nil {
		h.ServeHTTP(w, r)
		return
	}
	http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
}
