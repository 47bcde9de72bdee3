package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/orgoj/rotalog/internal/config"
)

func main() {
	flag.Parse()

	if len(flag.Args()) < 1 {
		fmt.Println("Error: Config file path is required")
		fmt.Println("Usage: config-validator <config-file>")
		os.Exit(1)
	}
	configPath := flag.Args()[0]

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := validateConfig(cfg); err != nil {
		fmt.Printf("Validation error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid!")
}

// validateConfig adds checks that only make sense for a deployed config.
func validateConfig(cfg *config.Config) error {
	if !cfg.Console.Enabled && !cfg.File.Enabled {
		return fmt.Errorf("at least one of console or file logging must be enabled")
	}

	if cfg.File.Enabled && cfg.File.FlushLevel < cfg.File.Level {
		fmt.Printf("[WARN] file.flush_level %s is below file.level %s; records below the file level still trigger flushes\n",
			cfg.File.FlushLevel, cfg.File.Level)
	}

	return nil
}
