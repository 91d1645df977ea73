package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/api"
	"github.com/hsh7097/MoneyTalk-sub002/internal/certs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the real-time classification API",
		Long: `Start the HTTP API.

Endpoints:
  POST /api/v1/classify   classify one message from the pattern cache
  POST /api/v1/batch      run the full pipeline over a small batch
  GET  /api/v1/health     service status and pattern counts
  GET  /metrics           Prometheus metrics`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default from server.addr)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate from server.cert_dir")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	pipeline, embedder, err := buildPipeline(cfg, store)
	if err != nil {
		return err
	}
	defer pipeline.Wait()

	handler := api.NewHandler(pipeline, store, embedder.ModelName(), cfg.Server.APIKey, version)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Server.TLS {
		tlsConfig, err := certs.NewSelfSigned(cfg.Server.CertDir, cfg.Server.TLSHosts...).TLSConfig()
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		srv.TLSConfig = tlsConfig
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", cfg.Server.Addr, "auth", cfg.Server.APIKey != "", "tls", cfg.Server.TLS)
		if cfg.Server.TLS {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
