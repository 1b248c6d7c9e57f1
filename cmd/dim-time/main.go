package main

import (
	"context"
	_ "embed"
	"errors"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tigerroll/dimtime/internal/app"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// embeddedConfig embeds the application's YAML configuration.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// main runs one dim_time job. The trigger payload is read from DIM_TIME_EVENT.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown (e.g., Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	event := app.TriggerEvent(os.Getenv("DIM_TIME_EVENT"))

	if err := app.RunApplication(ctx, envFilePath, embeddedConfig, event); err != nil {
		if errors.Is(err, app.ErrJobFailed) {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		logger.Fatalf("Application run failed: %v", err)
	}
	os.Exit(0)
}
