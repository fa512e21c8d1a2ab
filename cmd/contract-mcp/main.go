package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joelkehle/contractreview/internal/app"
	"github.com/joelkehle/contractreview/internal/config"
	"github.com/joelkehle/contractreview/internal/logger"
	"github.com/joelkehle/contractreview/internal/mcptool"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "contract-mcp: %v\n", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	// stdout is the MCP transport.
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File, Stderr: true}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	svc, err := app.NewService(cfg, logger.Log, app.Options{NeedModel: true, UseArchive: true})
	if err != nil {
		return fmt.Errorf("init review service: %w", err)
	}
	defer svc.Close()

	logger.Log.WithField("model", svc.Model).Info("mcp.serving")
	if err := mcptool.Run(ctx, mcptool.NewServer(svc.Service, version, logger.Log)); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
