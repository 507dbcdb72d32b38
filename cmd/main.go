package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/coursex/internal/shared"
	"github.com/urfave/cli/v3"
)

// configPath returns the config file location, overridable with COURSEX_CONFIG.
func configPath() string {
	if p := os.Getenv("COURSEX_CONFIG"); p != "" {
		return p
	}
	return "config.toml"
}

func main() {
	logger := shared.NewLogger(nil)

	path := configPath()
	config, err := shared.ResolveConfig(path)
	if err != nil {
		logger.Fatalf("configuration error: %v", err)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: path,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "coursex",
		Usage:    "Browse, watch and rate courses from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	err = app.Run(context.Background(), os.Args)
	if closeErr := runner.Close(); closeErr != nil {
		logger.Warn("shutdown", "error", closeErr)
	}

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
