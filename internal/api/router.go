package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// apiHandler is an http.HandlerFunc that reports failures as errors, which
// are rendered by HandleResponseError.
type apiHandler func(w http.ResponseWriter, r *http.Request) error

// middlewareHandler runs before a handler. A returned context replaces the
// request context; an error stops the chain.
type middlewareHandler func(w http.ResponseWriter, r *http.Request) (context.Context, error)

func newRouter() *router {
	return &router{chi.NewRouter()}
}

type router struct {
	chi chi.Router
}

func (r *router) Route(pattern string, fn func(*router)) {
	r.chi.Route(pattern, func(c chi.Router) {
		fn(&router{c})
	})
}

func (r *router) Get(pattern string, fn apiHandler) {
	r.chi.Get(pattern, handler(fn))
}

func (r *router) Post(pattern string, fn apiHandler) {
	r.chi.Post(pattern, handler(fn))
}

func (r *router) Options(pattern string, fn apiHandler) {
	r.chi.Options(pattern, handler(fn))
}

func (r *router) With(fn middlewareHandler) *router {
	return &router{r.chi.With(middleware(fn))}
}

func (r *router) WithBypass(fn func(next http.Handler) http.Handler) *router {
	return &router{r.chi.With(fn)}
}

func (r *router) Use(fn middlewareHandler) {
	r.chi.Use(middleware(fn))
}

func (r *router) UseBypass(fn func(next http.Handler) http.Handler) {
	r.chi.Use(fn)
}

func (r *router) NotFound(fn apiHandler) {
	r.chi.NotFound(handler(fn))
}

func (r *router) MethodNotAllowed(fn apiHandler) {
	r.chi.MethodNotAllowed(handler(fn))
}

func (r *router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.chi.ServeHTTP(w, req)
}

func handler(fn apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			HandleResponseError(err, w, r)
		}
	}
}

func middleware(fn middlewareHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx, err := fn(w, req)
			if err != nil {
				HandleResponseError(err, w, req)
				return
			}
			if ctx != nil {
				req = req.WithContext(ctx)
			}
			next.ServeHTTP(w, req)
		})
	}
}
