package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bucketdiver/bucketdiver/pkg/app"
	"github.com/bucketdiver/bucketdiver/pkg/browser"
	"github.com/bucketdiver/bucketdiver/pkg/catalog"
	"github.com/bucketdiver/bucketdiver/pkg/config"
	"github.com/bucketdiver/bucketdiver/pkg/dbinit"
	"github.com/bucketdiver/bucketdiver/pkg/health"
	"github.com/bucketdiver/bucketdiver/pkg/scheduler"
	"github.com/bucketdiver/bucketdiver/pkg/store"
)

func main() {
	var fileName string
	flag.StringVar(&fileName, "f", "", "Configuration file")
	flag.Parse()

	if fileName == "" {
		fmt.Fprintf(os.Stderr, "Configuration file not provided. Exit 1")
		fmt.Fprintf(os.Stderr, "\nUsage:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.ReadYamlCnxFile(fileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading configuration file: %s\n", err.Error())
		os.Exit(1)
	}
	l := initTrace(cfg.LogLevel)

	// Handle SIGTERM/SIGINT
	ctx, cancelFunc := context.WithCancel(context.Background())
	SetupCloseHandler(ctx, cancelFunc, l)

	s3Client, err := store.NewS3Client(ctx, cfg)
	if err != nil {
		l.Error("error creating the S3 client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	storeSvc := store.NewService(cfg, s3Client)
	storeSvc.SetLogger(l)

	b := browser.New(cfg, storeSvc, cfg.S3.Bucket)
	b.SetLogger(l)

	// The catalog is optional; the engine runs fine without it.
	var catalogSvc *catalog.Service
	healthMon := health.NewCatalogHealth(nil)
	if cfg.Catalog.DatabaseURL != "" {
		db, err := dbinit.InitializeDatabase(ctx, cfg.Catalog.DatabaseURL, l)
		if err != nil {
			l.Error("error initializing the catalog database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				l.Error("error closing the catalog database", slog.String("error", err.Error()))
			}
		}()

		catalogSvc = catalog.NewService(db)
		catalogSvc.SetLogger(l)
		b.SetSnapshotter(catalogSvc)

		healthMon = health.NewCatalogHealth(db)
	}
	healthMon.SetLogger(l)
	healthMon.Start(ctx)
	defer healthMon.Stop()

	sched := scheduler.NewScheduler(cfg, b)
	sched.SetLogger(l)
	if err := sched.Start(ctx); err != nil {
		l.Error("error starting the scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sched.Stop()

	a := app.NewApp(cfg, b, storeSvc, catalogSvc, healthMon)
	a.SetLogger(l)
	go func() {
		if err := a.Start(); err != nil {
			l.Error("server error", slog.String("error", err.Error()))
			cancelFunc()
		}
	}()

	<-ctx.Done()
	l.Info("stop the server")
	if err := a.StopServer(context.Background()); err != nil {
		l.Error("error stopping the server", slog.String("error", err.Error()))
	}
}

// SetupCloseHandler cancels the context on SIGTERM/SIGINT.
func SetupCloseHandler(ctx context.Context, cancelFunc context.CancelFunc, log *slog.Logger) {
	c := make(chan os.Signal, 5)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-c
		log.Info("INFO: signal received", slog.String("signal", s.String()))
		cancelFunc()
	}()
}

// initTrace initializes the logger
func initTrace(debugLevel string) *slog.Logger {
	handlerOptions := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}

	switch debugLevel {
	case "debug":
		handlerOptions.Level = slog.LevelDebug
		handlerOptions.AddSource = true
	case "info":
		handlerOptions.Level = slog.LevelInfo
	case "warn":
		handlerOptions.Level = slog.LevelWarn
	case "error":
		handlerOptions.Level = slog.LevelError
	default:
		handlerOptions.Level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, handlerOptions)
	return slog.New(handler)
}
