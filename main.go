package main

import (
	"context"
	"log"

	"github.com/locvowork/tablereport/internal/bootstrap"
	"github.com/locvowork/tablereport/internal/logger"
)

func main() {
	ctx := context.Background()

	app := bootstrap.NewApp()
	if err := app.Initialize(ctx); err != nil {
		logger.ErrorLog(ctx, "Failed to initialize application", err)
		log.Fatal(err)
	}

	if err := app.Run(); err != nil {
		logger.ErrorLog(ctx, "Server stopped", err)
		log.Fatal(err)
	}
}
