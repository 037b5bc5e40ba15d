package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"coparentcal/internal/config"
	"coparentcal/internal/i18n"
	"coparentcal/internal/server"
	"coparentcal/internal/storage"
)

// main delegates to runMain so deferred cleanup runs before the process
// terminates. os.Exit() does not run defers, so we must return an
// integer code first.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit
// codes.
func runMain() int {
	configPath := flag.String(config.FlagConfig, "", config.FlagDescConfig)
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	seedDemo := flag.Bool(config.FlagSeed, false, config.FlagDescSeed)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// Configure structured logging early to capture startup issues.
	setupLogging(*debugMode)

	// Root context cancels on SIGINT (Ctrl+C) or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	if err := run(ctx, *configPath, *seedDemo); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run loads configuration, opens the store, and either seeds the demo
// data or serves HTTP until the context is cancelled.
func run(ctx context.Context, configPath string, seedDemo bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if seedDemo {
		return seed(ctx, store, cfg)
	}

	labels := i18n.NewLabeler(i18n.NewBundle(), cfg.Locale)
	srv := server.New(cfg, store, labels, server.RealClock{})
	return srv.Start(ctx)
}

// printVersion outputs the build information to stdout.
func printVersion() {
	fmt.Printf(config.MsgVersionOut,
		config.AppName,
		config.Version,
		config.Commit,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.String(config.LogKeyVersion, config.Version),
		slog.String(config.LogKeyGoVer, runtime.Version()),
		slog.Int(config.LogKeyPID, os.Getpid()),
	)
}

// setupLogging configures the default slog logger with a JSON handler.
func setupLogging(debugMode bool) {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
}
