package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dotwe/early-access/internal/server"
	"github.com/dotwe/early-access/internal/server/config"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, err := server.NewApp(config.LoadConfig())
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	app.Run(ctx)
	return nil
}
