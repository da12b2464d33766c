package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"funduscam/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to start rig: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Rig stopped: %v", err)
	}
}
