// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"log"
	"time"

	"github.com/abelzeko/flood-alert/internal/entities"
	"github.com/abelzeko/flood-alert/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// GaugeFetcher reads the current water level at the gauge station
type GaugeFetcher interface {
	FetchGaugeReading(ctx context.Context) (entities.GaugeReading, error)
}

// DischargeFetcher reads the current dam discharge
type DischargeFetcher interface {
	FetchDischarge(ctx context.Context) (entities.DischargeReading, error)
}

// HistoryLookup answers nearest-date queries against the historical dataset
type HistoryLookup interface {
	LookupNearest(buddhistYear int, today time.Time) (entities.HistoricalRecord, bool)
}

// Notifier delivers the final message
type Notifier interface {
	Notify(ctx context.Context, n entities.Notification) error
}

// State is a step of a single pipeline run
type State int

const (
	StateIdle State = iota
	StateFetching
	StateSucceeded
	StateDegraded
	StateDispatched
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateSucceeded:
		return "succeeded"
	case StateDegraded:
		return "degraded"
	case StateDispatched:
		return "dispatched"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// DefaultStationName labels the gauge in degraded reports when no station is configured
const DefaultStationName = "อินทร์บุรี"

// Options tunes a FloodAlertUseCase. Zero values fall back to defaults.
type Options struct {
	Clock       clockwork.Clock
	Location    *time.Location
	StationName string
	// HistoryYears are the Buddhist years to compare against, in display order.
	// Empty means the previous Buddhist year.
	HistoryYears []int
	Metrics      *observability.Metrics
}

// RunResult describes what a run did
type RunResult struct {
	RunID        string
	Report       entities.Report
	Text         string
	Transitions  []State
	GaugeErr     error
	DischargeErr error
	DispatchErr  error
}

// FloodAlertUseCase runs the fetch, classify, compose and dispatch pipeline once per call
type FloodAlertUseCase struct {
	gauge     GaugeFetcher
	discharge DischargeFetcher
	history   HistoryLookup
	notifier  Notifier
	opts      Options
}

// NewFloodAlertUseCase creates a new flood alert use case
func NewFloodAlertUseCase(gauge GaugeFetcher, discharge DischargeFetcher, history HistoryLookup, notifier Notifier, opts Options) *FloodAlertUseCase {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.StationName == "" {
		opts.StationName = DefaultStationName
	}
	return &FloodAlertUseCase{
		gauge:     gauge,
		discharge: discharge,
		history:   history,
		notifier:  notifier,
		opts:      opts,
	}
}

// Run executes one sequential pipeline run. Source failures turn into a degraded report and
// notifier failures are only logged; dispatch is attempted exactly once.
func (uc *FloodAlertUseCase) Run(ctx context.Context) RunResult {
	res := RunResult{RunID: uuid.NewString()}
	transition := func(s State) {
		res.Transitions = append(res.Transitions, s)
		log.Printf("[run %s] state -> %s", res.RunID, s)
	}
	transition(StateIdle)

	log.Printf("[run %s] Starting flood alert run...", res.RunID)
	transition(StateFetching)

	var gauge *entities.GaugeReading
	if g, err := uc.gauge.FetchGaugeReading(ctx); err != nil {
		res.GaugeErr = err
		log.Printf("[run %s] Gauge reading unavailable (%s): %v", res.RunID, entities.KindOf(err), err)
	} else {
		gauge = &g
	}
	uc.opts.Metrics.ObserveFetch("gauge", res.GaugeErr)

	var discharge *entities.DischargeReading
	if d, err := uc.discharge.FetchDischarge(ctx); err != nil {
		res.DischargeErr = err
		log.Printf("[run %s] Discharge reading unavailable (%s): %v", res.RunID, entities.KindOf(err), err)
	} else {
		discharge = &d
	}
	uc.opts.Metrics.ObserveFetch("discharge", res.DischargeErr)

	now := uc.opts.Clock.Now().In(uc.opts.Location)
	comparisons := uc.lookupHistory(now)

	var tier entities.SeverityTier
	if gauge != nil && discharge != nil {
		tier = Classify(gauge.WaterLevelMeters, gauge.BankLevelMeters, discharge.CubicMetersPerSecond)
		transition(StateSucceeded)
	} else {
		transition(StateDegraded)
	}

	res.Report = entities.NewReport(now, gauge, discharge, tier, comparisons)
	if res.Report.Degraded != nil {
		res.Report.Degraded.StationName = uc.opts.StationName
	}
	res.Text = ComposeReport(res.Report)
	uc.opts.Metrics.ObserveReport(res.Report)

	log.Printf("[run %s] Message to dispatch:\n%s", res.RunID, res.Text)

	res.DispatchErr = uc.notifier.Notify(ctx, entities.Notification{
		Text:      res.Text,
		Degraded:  res.Report.Degraded != nil,
		Tier:      tier,
		Gauge:     gauge,
		Discharge: discharge,
	})
	uc.opts.Metrics.ObserveDispatch(res.DispatchErr)
	if res.DispatchErr != nil {
		log.Printf("[run %s] Dispatch failed (%s): %v", res.RunID, entities.KindOf(res.DispatchErr), res.DispatchErr)
	} else {
		log.Printf("[run %s] Dispatch succeeded", res.RunID)
	}
	transition(StateDispatched)

	transition(StateDone)
	return res
}

// lookupHistory collects a comparison for each configured year that has data
func (uc *FloodAlertUseCase) lookupHistory(now time.Time) []entities.HistoricalComparison {
	if uc.history == nil {
		return nil
	}
	years := uc.opts.HistoryYears
	if len(years) == 0 {
		years = []int{entities.GregorianToBuddhist(now.Year()) - 1}
	}

	var out []entities.HistoricalComparison
	for _, year := range years {
		rec, ok := uc.history.LookupNearest(year, now)
		if !ok {
			log.Printf("No historical data for Buddhist year %d", year)
			continue
		}
		log.Printf("Historical comparison for %d: %d/%d -> %.0f m³/s", year, rec.Day, rec.Month, rec.DischargeRate)
		out = append(out, entities.HistoricalComparison{BuddhistYear: year, Record: rec})
	}
	return out
}
