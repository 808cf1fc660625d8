package main

import (
	"context"
	"fmt"
	"os"

	"surveytracker/internal/cli"
	"surveytracker/internal/config"
	"surveytracker/internal/infrastructure"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	paths, err := config.GetPaths(cfg)
	if err != nil {
		return err
	}

	return cli.Execute(context.Background(), &cli.App{
		Config: cfg,
		Paths:  paths,
		Logger: logger,
	})
}
