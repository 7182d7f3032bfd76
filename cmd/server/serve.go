package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fylr/internal/api"
	"fylr/internal/auth"
	"fylr/internal/config"
	"fylr/internal/database"
	"fylr/internal/files"
	"fylr/internal/storage"
	"fylr/internal/websocket"

	_ "fylr/docs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, log)
	},
}

var autoMigrate bool

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply the schema before serving")
	rootCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply the schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, log *zap.Logger) (auth.Verifier, error) {
	if cfg.Mode == "jwks" {
		return auth.NewJWKSVerifier(ctx, cfg.JWKSURL, cfg.Issuer, log)
	}
	log.Info("using HS256 token verification")
	return auth.NewHMACVerifier(cfg.Secret, cfg.Issuer), nil
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if autoMigrate {
		if pg, ok := store.(*database.PostgresStore); ok {
			if err := database.Migrate(ctx, pg.GetPool()); err != nil {
				return err
			}
			log.Info("schema applied")
		}
	}

	provider, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}

	verifier, err := newVerifier(ctx, cfg.Auth, log)
	if err != nil {
		return err
	}

	wsHub := websocket.NewHub(log.Named("ws"))
	go wsHub.Run()
	defer wsHub.Stop()

	svc := files.NewService(store, provider, wsHub, log.Named("files"),
		files.WithRoot(cfg.Storage.Root),
		files.WithRegisterer(prometheus.DefaultRegisterer),
		files.WithMaxUploadBytes(cfg.Upload.MaxBytes),
	)

	server := api.NewServer(svc, verifier, wsHub, log.Named("http"), cfg.Upload.MaxBytes)

	opts := api.RouterOptions{
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Metrics:     api.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Gatherer:    prometheus.DefaultGatherer,
	}
	// Local objects are served by this process when their public URL is a path on it.
	if local, ok := provider.(*storage.LocalStorage); ok && strings.HasPrefix(cfg.Storage.PublicURL, "/") {
		opts.Content = local.Handler()
		opts.ContentPrefix = cfg.Storage.PublicURL
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
