package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orgoj/rotalog/internal/config"
	"github.com/orgoj/rotalog/internal/logger"
	"github.com/orgoj/rotalog/internal/server"
	"github.com/orgoj/rotalog/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file (defaults are used when empty)")
	testConfigShort := flag.Bool("t", false, "Test configuration and exit (nginx style)")
	testConfigLong := flag.Bool("test", false, "Test configuration and exit (nginx style)")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	heartbeat := flag.Duration("heartbeat", 0, "Emit an info record at this interval (0 disables)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.VersionInfo())
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("[CRITICAL] %v\n", err)
		os.Exit(1)
	}

	if *testConfigShort || *testConfigLong {
		fmt.Printf("Configuration '%s' is valid.\n", displayPath(*configPath))
		os.Exit(0)
	}

	if err := run(cfg, *heartbeat); err != nil {
		fmt.Printf("[CRITICAL] %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.DefaultConfig()
		if err := config.ValidateConfig(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from '%s': %w", path, err)
	}
	return cfg, nil
}

func displayPath(path string) string {
	if path == "" {
		return "<defaults>"
	}
	return path
}

func run(cfg *config.Config, heartbeat time.Duration) error {
	lazy := logger.NewLazy(func() (*logger.Dispatcher, error) {
		return logger.New(*cfg)
	})
	log, err := lazy.Get()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Close()

	_ = log.Info(version.VersionInfo())

	var srv *server.Server
	if cfg.Admin.Enabled {
		srv, err = server.NewServer(server.Dependencies{Config: &cfg.Admin, Dispatcher: log})
		if err != nil {
			_ = log.Criticalf("failed to create admin server: %v", err)
			return err
		}
		go func() {
			if err := srv.Start(); err != nil {
				_ = log.Criticalf("admin server error: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tick <-chan time.Time
	if heartbeat > 0 {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for beats := 1; ; beats++ {
		select {
		case <-ctx.Done():
			_ = log.Info("Received shutdown signal.")
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := srv.Shutdown(shutdownCtx); err != nil {
					_ = log.Errorf("admin server forced to shutdown: %v", err)
				}
				cancel()
			}
			_ = log.Info("rotalog shut down gracefully.")
			return nil
		case <-tick:
			if err := log.Infof("heartbeat %d", beats); err != nil {
				fmt.Fprintf(os.Stderr, "[ERROR] heartbeat write failed: %v\n", err)
			}
		}
	}
}
