package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"checkout-backend/internal/app"
	"checkout-backend/internal/catalog"
	"checkout-backend/internal/config"
	"checkout-backend/internal/env"
	"checkout-backend/internal/infrastructure/razorpay"
	"checkout-backend/internal/telemetry"
)

var Version = "dev"

func main() {
	env.Load(".env", ".env.local")

	var cfgFile string
	rootCmd := &cobra.Command{
		Use:     "checkout-backend",
		Short:   "Payment checkout API for service plans",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")

	serve := serveCmd(&cfgFile)
	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(signCmd(&cfgFile))
	rootCmd.RunE = serve.RunE
	rootCmd.Flags().AddFlagSet(serve.Flags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("env", "", "environment name (dev, staging, prod)")
	cmd.Flags().Int("port", 0, "listen port")
	cmd.Flags().Bool("log-json", true, "emit JSON logs")
	cmd.Flags().String("log-level", "", "log level")
	cmd.Flags().String("database-url", "", "postgres:// or sqlite:// url; empty keeps data in memory")
	cmd.Flags().String("redis-addr", "", "redis address for idempotency keys")
	return cmd
}

// applyFlags overrides cfg with flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("env") {
		cfg.Env, _ = f.GetString("env")
	}
	if f.Changed("port") {
		cfg.Port, _ = f.GetInt("port")
	}
	if f.Changed("log-json") {
		cfg.LogJSON, _ = f.GetBool("log-json")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("database-url") {
		cfg.DatabaseURL, _ = f.GetString("database-url")
	}
	if f.Changed("redis-addr") {
		cfg.RedisAddr, _ = f.GetString("redis-addr")
	}
}

func runServer(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry.InitLogger(os.Stderr, cfg.LogJSON, cfg.LogLevel)
	shutdownTracer, err := telemetry.SetupTracer(ctx, "checkout-backend", cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			slog.Error("tracer shutdown", "error", err)
		}
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("checkout server listening", "addr", srv.Addr, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the plan catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(catalog.Default().Services())
		},
	}
}

func signCmd(cfgFile *string) *cobra.Command {
	var orderID, paymentID string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the provider signature for an order and payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			if cfg.Razorpay.KeySecret == "" {
				return errors.New("RAZORPAY_KEY_SECRET is not set")
			}
			fmt.Fprintln(cmd.OutOrStdout(), razorpay.Sign(cfg.Razorpay.KeySecret, orderID, paymentID))
			return nil
		},
	}
	cmd.Flags().StringVar(&orderID, "order", "", "provider order id")
	cmd.Flags().StringVar(&paymentID, "payment", "", "provider payment id")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("payment")
	return cmd
}
