// Command authcheck runs one authentication strategy against a target and
// reports the outcome. It is the smoke-test entry point for the harness's
// authentication layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nutrilog/authharness/internal/auth"
	"github.com/nutrilog/authharness/internal/config"
	"github.com/nutrilog/authharness/internal/harness"
	"github.com/nutrilog/authharness/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to harness config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := harness.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build harness", zap.Error(err))
		return 1
	}
	defer h.Close() //nolint:errcheck

	method, err := h.Method()
	if err != nil {
		logger.Error("failed to resolve authentication method", zap.Error(err))
		return 1
	}

	creds, err := h.Credentials(ctx)
	if err != nil {
		logger.Error("failed to resolve credentials", zap.Error(err))
		return 1
	}

	result, err := method.Authenticate(ctx, creds)
	if err != nil {
		// Any unrecovered auth error aborts the run with the error's
		// message and code surfaced verbatim.
		logger.Error("authentication failed",
			zap.String("method", string(method.Type())),
			zap.String("code", auth.CodeOf(err)),
			zap.Error(err),
		)
		return 1
	}

	logger.Info("authentication succeeded",
		zap.String("method", string(method.Type())),
		zap.Bool("supportsStorageState", method.SupportsStorageState()),
		zap.Int("tokenLength", len(result.Token)),
		zap.String("storageStatePath", result.StorageStatePath),
	)
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := config.Default()
	cfg.FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
