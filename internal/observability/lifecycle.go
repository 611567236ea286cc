package observability

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// shutdownOnDone calls shutdown once ctx is done. WaitForCleanup waits for it.
func shutdownOnDone(ctx context.Context, name string, shutdown func(context.Context) error) {
	cleanupWaitGroup.Add(1)
	go func() {
		defer cleanupWaitGroup.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Errorf("%s did not shut down cleanly", name)
			return
		}
		logrus.Infof("%s shut down", name)
	}()
}

// serveUntilDone runs an auxiliary HTTP server until ctx is done.
func serveUntilDone(ctx context.Context, name, addr string, handler http.Handler) {
	baseCtx, cancelBase := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	shutdownOnDone(ctx, name+" server", func(shutdownCtx context.Context) error {
		defer cancelBase()
		return server.Shutdown(shutdownCtx)
	})

	go func() {
		logrus.Infof("%s server listening on %s", name, addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Errorf("%s server on %s stopped", name, addr)
		}
	}()
}
