// Package main is the knowledge-flow entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/knowledge-flow/internal/adapters/driving/cli"
	"github.com/custodia-labs/knowledge-flow/internal/app"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// dataDirEnv overrides the data directory.
const dataDirEnv = "KF_DATA_DIR"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, os.Getenv(dataDirEnv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "knowledge-flow: %v\n", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}()

	cli.SetServices(cli.Services{
		Ingestion:  a.Ingestion,
		Metadata:   a.Metadata,
		Content:    a.Content,
		Search:     a.Search,
		Tabular:    a.Tabular,
		Contexts:   a.Contexts,
		Profiles:   a.Profiles,
		Settings:   a.Settings,
		StagingDir: a.StagingDir,
	})

	if err := cli.Execute(ctx, version); err != nil {
		return 1
	}
	return 0
}
