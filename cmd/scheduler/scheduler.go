package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abelzeko/flood-alert/internal/app"
	"github.com/abelzeko/flood-alert/internal/config"
	"github.com/robfig/cron/v3"
)

// newScheduler registers job on the cron expression expr, evaluated in loc. Overlapping runs are skipped.
func newScheduler(loc *time.Location, expr string, job func()) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(expr, job); err != nil {
		return nil, fmt.Errorf("failed to set up cron job %q: %v", expr, err)
	}
	return c, nil
}

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting flood alert scheduler...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Each run reloads the historical dataset so a refreshed file is picked up
	run := func() {
		app.New(cfg).RunOnce(ctx)
	}

	c, err := newScheduler(cfg.Location(), cfg.Schedule, run)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("Flood alert has been scheduled with %q in %s", cfg.Schedule, cfg.Timezone)
	c.Start()

	<-ctx.Done()
	log.Println("Shutting down scheduler, waiting for a running alert to finish...")
	<-c.Stop().Done()
}
