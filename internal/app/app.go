// Package app assembles the flood alert pipeline from configuration
package app

import (
	"context"
	"log"

	"github.com/abelzeko/flood-alert/internal/api"
	"github.com/abelzeko/flood-alert/internal/config"
	"github.com/abelzeko/flood-alert/internal/integration"
	"github.com/abelzeko/flood-alert/internal/observability"
	"github.com/abelzeko/flood-alert/internal/repository"
	"github.com/abelzeko/flood-alert/internal/usecases"
)

const metricsJob = "flood_alert"

// App is a fully wired pipeline
type App struct {
	cfg     *config.Config
	useCase *usecases.FloodAlertUseCase
	metrics *observability.Metrics
}

// New wires the pipeline with a headless Chrome renderer
func New(cfg *config.Config) *App {
	return NewWithRenderer(cfg, integration.NewChromeRenderer(cfg.Gauge.ChromePath))
}

// NewWithRenderer wires the pipeline around the given page renderer
func NewWithRenderer(cfg *config.Config, renderer integration.Renderer) *App {
	metrics := observability.NewMetrics()

	gauge := integration.NewGaugeScraper(renderer, integration.GaugeOptions{
		URL:             cfg.Gauge.URL,
		StationMatch:    cfg.Gauge.Station,
		LevelCellIndex:  cfg.Gauge.LevelCell,
		BankLevelMeters: cfg.Gauge.BankLevel,
		Timeout:         cfg.Gauge.Timeout,
		MaxRetries:      cfg.Gauge.MaxRetries,
		RetryPause:      cfg.Gauge.RetryPause,
		SettleDelay:     cfg.Gauge.SettleDelay,
	})

	discharge := integration.NewDischargeClient(integration.DischargeOptions{
		URL:        cfg.Discharge.URL,
		Timeout:    cfg.Discharge.Timeout,
		StationKey: cfg.Discharge.StationKey,
	})

	history, err := repository.LoadHistory(cfg.History.File)
	if err != nil {
		log.Printf("Failed to load historical dataset, continuing without comparisons: %v", err)
		history = repository.NewHistoryStore(nil)
	}
	metrics.ObserveHistory(history.Len())

	notifier := api.NewNotifierFromConfig(cfg.Notify)

	useCase := usecases.NewFloodAlertUseCase(gauge, discharge, history, notifier, usecases.Options{
		StationName:  cfg.Gauge.Station,
		Location:     cfg.Location(),
		HistoryYears: cfg.History.Years,
		Metrics:      metrics,
	})

	return &App{
		cfg:     cfg,
		useCase: useCase,
		metrics: metrics,
	}
}

// RunOnce executes one pipeline run and pushes its metrics when a Pushgateway is configured
func (a *App) RunOnce(ctx context.Context) usecases.RunResult {
	res := a.useCase.Run(ctx)
	if err := a.metrics.Push(a.cfg.PushgatewayURL, metricsJob); err != nil {
		log.Printf("Warning: %v", err)
	}
	return res
}

// Metrics exposes the run metrics
func (a *App) Metrics() *observability.Metrics {
	return a.metrics
}
