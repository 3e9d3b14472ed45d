// Package integration handles external service interactions
package integration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/abelzeko/flood-alert/internal/entities"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultGaugeURL          = "https://singburi.thaiwater.net/wl"
	DefaultStationMatch      = "อินทร์บุรี"
	DefaultRowHeaderSelector = "th[scope='row']"
	DefaultBankLevelMeters   = 13.0
)

// GaugeOptions configures the gauge page scraper
type GaugeOptions struct {
	URL               string
	StationMatch      string        // Substring of the row header that identifies the station
	RowHeaderSelector string        // CSS selector of the row header cells
	LevelCellIndex    int           // Index of the data cell holding the water level within the row
	BankLevelMeters   float64       // Bank elevation of the station
	Timeout           time.Duration // Bound on each page load and each wait for the table
	MaxRetries        int           // Retries after a stale read
	RetryPause        time.Duration // Fixed pause between retries
	SettleDelay       time.Duration // Pause after the second render before reading the DOM
}

// GaugeScraper reads the current water level of one station from a script-rendered table
type GaugeScraper struct {
	renderer Renderer
	opts     GaugeOptions
}

// NewGaugeScraper creates a new gauge scraper
func NewGaugeScraper(renderer Renderer, opts GaugeOptions) *GaugeScraper {
	if opts.URL == "" {
		opts.URL = DefaultGaugeURL
	}
	if opts.StationMatch == "" {
		opts.StationMatch = DefaultStationMatch
	}
	if opts.RowHeaderSelector == "" {
		opts.RowHeaderSelector = DefaultRowHeaderSelector
	}
	if opts.BankLevelMeters == 0 {
		opts.BankLevelMeters = DefaultBankLevelMeters
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &GaugeScraper{
		renderer: renderer,
		opts:     opts,
	}
}

// FetchGaugeReading renders the gauge page and extracts the station's water level.
// Only stale reads are retried; every attempt releases its browser session.
func (gs *GaugeScraper) FetchGaugeReading(ctx context.Context) (entities.GaugeReading, error) {
	var reading entities.GaugeReading
	attempt := 0

	operation := func() error {
		attempt++
		r, err := gs.fetchOnce(ctx)
		if err == nil {
			reading = r
			return nil
		}
		if entities.KindOf(err).Retryable() {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(gs.opts.RetryPause), uint64(gs.opts.MaxRetries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		log.Printf("Stale gauge read on attempt %d/%d, retrying in %s: %v", attempt, gs.opts.MaxRetries+1, wait, err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if entities.KindOf(err) == entities.KindUnknown {
			err = classifyRenderErr("gauge.fetch", err)
		}
		log.Printf("Gauge fetch failed after %d attempt(s): %v", attempt, err)
		return entities.GaugeReading{}, err
	}

	log.Printf("Found gauge data for '%s': water level=%.2f, bank level=%.2f",
		reading.StationName, reading.WaterLevelMeters, reading.BankLevelMeters)
	return reading, nil
}

// fetchOnce runs one render-and-extract attempt inside its own browser session
func (gs *GaugeScraper) fetchOnce(ctx context.Context) (entities.GaugeReading, error) {
	session, err := gs.renderer.Open(ctx)
	if err != nil {
		return entities.GaugeReading{}, classifyRenderErr("gauge.open", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Printf("Warning: failed to close render session: %v", cerr)
		}
	}()

	log.Printf("Rendering gauge page %s", gs.opts.URL)
	if err := gs.pageLoad(ctx, func(c context.Context) error { return session.Navigate(c, gs.opts.URL) }); err != nil {
		return entities.GaugeReading{}, classifyRenderErr("gauge.navigate", err)
	}
	if err := session.WaitReady(gs.opts.RowHeaderSelector, gs.opts.Timeout); err != nil {
		return entities.GaugeReading{}, classifyRenderErr("gauge.wait", err)
	}

	// The first render may come from a cached snapshot; reload and wait again for fresh values.
	if err := gs.pageLoad(ctx, session.Reload); err != nil {
		return entities.GaugeReading{}, classifyRenderErr("gauge.reload", err)
	}
	if err := session.WaitReady(gs.opts.RowHeaderSelector, gs.opts.Timeout); err != nil {
		return entities.GaugeReading{}, classifyRenderErr("gauge.wait", err)
	}
	if err := sleepContext(ctx, gs.opts.SettleDelay); err != nil {
		return entities.GaugeReading{}, entities.NewError(entities.KindTimeout, "gauge.settle", err)
	}

	html, err := session.HTML()
	if err != nil {
		return entities.GaugeReading{}, classifyRenderErr("gauge.snapshot", err)
	}
	header, level, err := ExtractStationLevel(html, gs.opts.RowHeaderSelector, gs.opts.StationMatch, gs.opts.LevelCellIndex)
	if err != nil {
		return entities.GaugeReading{}, err
	}

	// Read the DOM a second time; if the row moved or its value changed, the table was
	// being rewritten while we read it.
	again, err := session.HTML()
	if err != nil {
		return entities.GaugeReading{}, classifyRenderErr("gauge.snapshot", err)
	}
	_, confirm, err := ExtractStationLevel(again, gs.opts.RowHeaderSelector, gs.opts.StationMatch, gs.opts.LevelCellIndex)
	if err != nil || confirm != level {
		return entities.GaugeReading{}, entities.Errorf(entities.KindStale, "gauge.extract",
			"row for '%s' changed during read (%.2f then %.2f, err=%v)", gs.opts.StationMatch, level, confirm, err)
	}

	return entities.GaugeReading{
		StationName:      header,
		WaterLevelMeters: level,
		BankLevelMeters:  gs.opts.BankLevelMeters,
	}, nil
}

// pageLoad runs a navigation step bounded by the configured timeout
func (gs *GaugeScraper) pageLoad(ctx context.Context, step func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, gs.opts.Timeout)
	defer cancel()
	if err := step(stepCtx); err != nil {
		if stepCtx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%v: %w", err, stepCtx.Err())
		}
		return err
	}
	return nil
}

// ExtractStationLevel scans the row headers of a rendered page for the first one containing
// match and parses the water level from the data cell at cellIndex of the same row.
func ExtractStationLevel(html, selector, match string, cellIndex int) (string, float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", 0, entities.NewError(entities.KindRenderError, "gauge.parse", err)
	}

	var (
		header string
		cell   *goquery.Selection
		rows   int
	)
	doc.Find(selector).EachWithBreak(func(_ int, th *goquery.Selection) bool {
		rows++
		text := strings.TrimSpace(th.Text())
		if !strings.Contains(text, match) {
			return true
		}
		header = text
		cell = th.Closest("tr").Find("td").Eq(cellIndex)
		return false
	})

	if cell == nil {
		return "", 0, entities.Errorf(entities.KindNotFound, "gauge.extract",
			"station '%s' not found in %d row headers", match, rows)
	}
	if cell.Length() == 0 {
		return "", 0, entities.Errorf(entities.KindFormatMismatch, "gauge.extract",
			"row '%s' has no data cell at index %d", header, cellIndex)
	}

	raw := strings.TrimSpace(cell.Text())
	level, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, entities.Errorf(entities.KindFormatMismatch, "gauge.extract",
			"water level '%s' for '%s' is not a number", raw, header)
	}
	return header, level, nil
}

// classifyRenderErr maps browser errors onto the pipeline error kinds
func classifyRenderErr(op string, err error) error {
	if entities.KindOf(err) != entities.KindUnknown {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return entities.NewError(entities.KindTimeout, op, err)
	}
	return entities.NewError(entities.KindRenderError, op, fmt.Errorf("render: %w", err))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
