package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scim-tools/scim-console/internal/allowlist"
	"github.com/scim-tools/scim-console/internal/console"
	"github.com/scim-tools/scim-console/internal/reqlog"
	"github.com/scim-tools/scim-console/internal/scim"
	"github.com/scim-tools/scim-console/internal/store"
)

const version = "1.0.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the console HTTP server.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := store.Open(viper.GetString("data_dir"))
	if err != nil {
		return err
	}
	defer db.Close()

	logs := reqlog.New(viper.GetInt("log_capacity"), db)

	clientCfg, err := db.LoadClientConfig()
	if err != nil {
		return err
	}
	if clientCfg == nil {
		clientCfg = &scim.Config{
			Endpoint:  viper.GetString("scim.endpoint"),
			APIKey:    viper.GetString("scim.api_key"),
			UseProxy:  viper.GetBool("scim.use_proxy"),
			ProxyURL:  viper.GetString("scim.proxy_url"),
			TimeoutMs: viper.GetInt("scim.timeout_ms"),
		}
	}

	client, err := scim.New(*clientCfg,
		scim.WithAllowedTargets(allowlist.NewLoader(viper.GetString("allowed_targets"))),
		scim.WithLogger(logs),
		scim.WithSettings(db),
	)
	if err != nil {
		return err
	}

	srv := console.NewServer(console.Config{
		CORSOrigins:   viper.GetStringSlice("cors_origins"),
		AdminToken:    viper.GetString("admin_token"),
		SessionSecret: viper.GetString("session_secret"),
		Version:       version,
	}, client, logs)

	httpServer := &http.Server{
		Addr:         viper.GetString("listen_addr"),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Console server starting",
			"addr", httpServer.Addr,
			"base_url", viper.GetString("base_url"),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down console server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("Console server exited gracefully")
	return nil
}
