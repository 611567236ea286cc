package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ListenAndServe starts the REST API and blocks until ctx is done and the
// server has shut down.
func (a *API) ListenAndServe(ctx context.Context, hostAndPort string) error {
	return ListenAndServe(ctx, hostAndPort, a.handler)
}

// ListenAndServe serves handler on hostAndPort until ctx is done.
func ListenAndServe(ctx context.Context, hostAndPort string, handler http.Handler) error {
	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logrus.WithField("component", "api")

	server := &http.Server{
		Addr:              hostAndPort,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second, // to mitigate a Slowloris attack
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	cleanupWaitGroup.Add(1)
	go func() {
		defer cleanupWaitGroup.Done()

		<-ctx.Done()

		defer cancel() // close baseContext

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Minute)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("shutdown failed")
		}
	}()

	log.Infof("siws API started on: %s", hostAndPort)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
