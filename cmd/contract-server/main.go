package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/contractreview/internal/app"
	"github.com/joelkehle/contractreview/internal/config"
	"github.com/joelkehle/contractreview/internal/httpapi"
	"github.com/joelkehle/contractreview/internal/logger"
	"github.com/joelkehle/contractreview/internal/report"
	"github.com/joelkehle/contractreview/internal/telemetry"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	dbPath := flag.String("db", "", "Path to the SQLite archive (overrides archive.db_path)")
	noPDF := flag.Bool("no-pdf", false, "Disable PDF report rendering")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath, *addr, *dbPath, *noPDF)
	stop()
	if err != nil {
		logrus.Fatal(err)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(ctx context.Context, configPath, addr, dbPath string, noPDF bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if dbPath != "" {
		cfg.Archive.DBPath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.Log
	defer logger.Close()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("telemetry.shutdown_failed")
		}
	}()

	svc, err := app.NewService(cfg, log, app.Options{NeedModel: true, UseArchive: true})
	if err != nil {
		return fmt.Errorf("init review service: %w", err)
	}
	defer svc.Close()

	opts := []httpapi.Option{httpapi.WithLogger(log)}
	if !noPDF {
		opts = append(opts, httpapi.WithPDFRenderer(report.NewChromiumPDFRenderer(cfg.Report.ChromePath)))
	}
	handler := httpapi.NewServer(svc.Service, httpapi.Config{
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Model:          svc.Model,
	}, opts...)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.Server.Addr, "model": svc.Model, "version": version}).Info("server.listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Info("server.shutting_down")
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.WithError(err).Error("server.shutdown_failed")
		}
	}
	return nil
}
