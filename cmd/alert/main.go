package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelzeko/flood-alert/internal/app"
	"github.com/abelzeko/flood-alert/internal/config"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Inburi flood alert run...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	a := app.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := a.RunOnce(ctx)
	if res.DispatchErr != nil {
		log.Printf("Run %s finished without delivering the alert", res.RunID)
	}
	log.Printf("Run %s done", res.RunID)
}
