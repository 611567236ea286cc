package cmd

import (
	"context"
	"net"

	"github.com/ratersapp/siws/internal/api"
	"github.com/ratersapp/siws/internal/conf"
	"github.com/ratersapp/siws/internal/nonces"
	"github.com/ratersapp/siws/internal/reloader"
	"github.com/ratersapp/siws/internal/storage"
	"github.com/ratersapp/siws/internal/utilities"
	"github.com/ratersapp/siws/internal/utilities/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = cobra.Command{
	Use:  "serve",
	Long: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		serve(cmd.Context())
	},
}

func serve(ctx context.Context) {
	config := loadGlobalConfig(ctx)

	if config.Metrics.Enabled {
		if err := version.InitMetrics(ctx, utilities.Version); err != nil {
			logrus.WithError(err).Warn("unable to publish version metrics")
		}
	}

	// the database is only needed by the postgres nonce store and by the
	// challenge cleanup
	var db *storage.Connection
	if config.Nonce.Store == conf.NonceStorePostgres || (config.DB.CleanupEnabled && config.DB.URL != "") {
		var err error
		db, err = storage.DialContext(ctx, config)
		if err != nil {
			logrus.Fatalf("error opening database: %+v", err)
		}
		defer db.Close()
	}

	store, err := nonces.New(ctx, config, db)
	if err != nil {
		logrus.Fatalf("error setting up nonce store: %+v", err)
	}
	if store != nil {
		defer utilities.SafeClose(store)
	}

	addr := net.JoinHostPort(config.API.Host, config.API.Port)

	if watchDir == "" {
		a := api.NewAPIWithVersion(config, db, store, utilities.Version)
		if err := a.ListenAndServe(ctx, addr); err != nil {
			logrus.WithError(err).Fatal("http server listen failed")
		}
		return
	}

	ah := reloader.NewAtomicHandler(api.NewAPIWithVersion(config, db, store, utilities.Version))

	go func() {
		rl := reloader.NewReloader(watchDir)
		fn := func(latest *conf.GlobalConfiguration) {
			if latest.Nonce.Store != config.Nonce.Store {
				logrus.WithField("nonce_store", latest.Nonce.Store).
					Warn("nonce store changes require a restart, keeping " + config.Nonce.Store)
				latest.Nonce.Store = config.Nonce.Store
			}
			ah.Store(api.NewAPIWithVersion(latest, db, store, utilities.Version))
		}
		if err := rl.Watch(ctx, fn); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Error("config reloader stopped")
		}
	}()

	if err := api.ListenAndServe(ctx, addr, ah); err != nil {
		logrus.WithError(err).Fatal("http server listen failed")
	}
}
