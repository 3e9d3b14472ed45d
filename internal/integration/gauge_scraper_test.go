package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abelzeko/flood-alert/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gaugeTable = `
<html><body>
<table>
  <thead><tr><th>สถานี</th><th>ระดับน้ำ</th></tr></thead>
  <tbody>
    <tr><th scope="row">สิงห์บุรี</th><td>%s</td><td>x</td></tr>
    <tr><th scope="row">  อ.อินทร์บุรี จ.สิงห์บุรี </th><td>%s</td><td>y</td></tr>
  </tbody>
</table>
</body></html>`

func gaugePage(level string) string {
	return fmt.Sprintf(gaugeTable, "9.10", level)
}

// fakeRenderer hands out scripted sessions and tracks how many are still open
type fakeRenderer struct {
	mu       sync.Mutex
	opened   int
	closed   int
	openErr  error
	waitErr  error
	hang     bool // Navigate blocks until its context is done
	snapshot func(attempt, call int) string
}

func (r *fakeRenderer) Open(_ context.Context) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openErr != nil {
		return nil, r.openErr
	}
	r.opened++
	return &fakeSession{renderer: r, attempt: r.opened}, nil
}

func (r *fakeRenderer) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened, r.closed
}

type fakeSession struct {
	renderer *fakeRenderer
	attempt  int
	calls    int
	waits    int
	reloads  int
}

func (s *fakeSession) Navigate(ctx context.Context, _ string) error {
	if s.renderer.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *fakeSession) WaitReady(string, time.Duration) error {
	s.waits++
	return s.renderer.waitErr
}

func (s *fakeSession) Reload(context.Context) error {
	s.reloads++
	return nil
}

func (s *fakeSession) HTML() (string, error) {
	s.calls++
	return s.renderer.snapshot(s.attempt, s.calls), nil
}

func (s *fakeSession) Close() error {
	s.renderer.mu.Lock()
	defer s.renderer.mu.Unlock()
	s.renderer.closed++
	return nil
}

func testGaugeScraper(r Renderer, retries int) *GaugeScraper {
	return NewGaugeScraper(r, GaugeOptions{
		URL:        "http://gauge.test/wl",
		Timeout:    time.Second,
		MaxRetries: retries,
		RetryPause: time.Millisecond,
	})
}

func TestFetchGaugeReading_Success(t *testing.T) {
	r := &fakeRenderer{snapshot: func(int, int) string { return gaugePage("11.37") }}

	reading, err := testGaugeScraper(r, 3).FetchGaugeReading(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "อ.อินทร์บุรี จ.สิงห์บุรี", reading.StationName)
	assert.InDelta(t, 11.37, reading.WaterLevelMeters, 1e-9)
	assert.Equal(t, DefaultBankLevelMeters, reading.BankLevelMeters)
	assert.InDelta(t, 1.63, reading.DistanceToBank(), 1e-9)

	opened, closed := r.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
}

func TestFetchGaugeReading_WaitsTwiceAroundReload(t *testing.T) {
	var session *fakeSession
	r := &fakeRenderer{snapshot: func(int, int) string { return gaugePage("10.00") }}
	wrapped := rendererFunc(func(ctx context.Context) (Session, error) {
		s, err := r.Open(ctx)
		session = s.(*fakeSession)
		return s, err
	})

	_, err := testGaugeScraper(wrapped, 0).FetchGaugeReading(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, session.waits)
	assert.Equal(t, 1, session.reloads)
}

func TestFetchGaugeReading_StationNotFoundIsNotRetried(t *testing.T) {
	r := &fakeRenderer{snapshot: func(int, int) string {
		return `<table><tr><th scope="row">ชัยนาท</th><td>15.00</td></tr></table>`
	}}

	_, err := testGaugeScraper(r, 3).FetchGaugeReading(context.Background())
	require.Error(t, err)
	assert.Equal(t, entities.KindNotFound, entities.KindOf(err))

	opened, closed := r.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
}

func TestFetchGaugeReading_Timeout(t *testing.T) {
	r := &fakeRenderer{
		waitErr:  fmt.Errorf("wait: %w", context.DeadlineExceeded),
		snapshot: func(int, int) string { return "" },
	}

	_, err := testGaugeScraper(r, 3).FetchGaugeReading(context.Background())
	require.Error(t, err)
	assert.Equal(t, entities.KindTimeout, entities.KindOf(err))

	opened, closed := r.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
}

func TestFetchGaugeReading_PageLoadThatNeverFinishesTimesOut(t *testing.T) {
	r := &fakeRenderer{hang: true, snapshot: func(int, int) string { return gaugePage("11.00") }}
	gs := NewGaugeScraper(r, GaugeOptions{Timeout: 20 * time.Millisecond, MaxRetries: 3, RetryPause: time.Millisecond})

	done := make(chan error, 1)
	go func() {
		_, err := gs.FetchGaugeReading(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, entities.KindTimeout, entities.KindOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("navigation was not bounded by the gauge timeout")
	}

	opened, closed := r.counts()
	assert.Equal(t, 1, opened, "timeouts are not retried")
	assert.Equal(t, 1, closed)
}

func TestFetchGaugeReading_RenderErrorOnOpen(t *testing.T) {
	r := &fakeRenderer{openErr: errors.New("chrome not installed")}

	_, err := testGaugeScraper(r, 3).FetchGaugeReading(context.Background())
	require.Error(t, err)
	assert.Equal(t, entities.KindRenderError, entities.KindOf(err))
}

func TestFetchGaugeReading_StaleIsRetriedAndReleasesEverySession(t *testing.T) {
	const retries = 4
	// Every attempt sees the value change between the two snapshots.
	r := &fakeRenderer{snapshot: func(attempt, call int) string {
		return gaugePage(fmt.Sprintf("%d.%d0", 10+attempt, call))
	}}

	_, err := testGaugeScraper(r, retries).FetchGaugeReading(context.Background())
	require.Error(t, err)
	assert.Equal(t, entities.KindStale, entities.KindOf(err))

	opened, closed := r.counts()
	assert.Equal(t, retries+1, opened)
	assert.Equal(t, opened, closed, "every render session must be released")
}

func TestFetchGaugeReading_RecoversAfterStale(t *testing.T) {
	r := &fakeRenderer{snapshot: func(attempt, call int) string {
		if attempt == 1 && call == 2 {
			return `<table></table>`
		}
		return gaugePage("12.05")
	}}

	reading, err := testGaugeScraper(r, 2).FetchGaugeReading(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 12.05, reading.WaterLevelMeters, 1e-9)

	opened, closed := r.counts()
	assert.Equal(t, 2, opened)
	assert.Equal(t, 2, closed)
}

func TestExtractStationLevel(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		cell     int
		wantKind entities.ErrorKind
		want     float64
	}{
		{name: "first data cell", html: gaugePage("11.25"), cell: 0, want: 11.25},
		{name: "missing cell index", html: gaugePage("11.25"), cell: 5, wantKind: entities.KindFormatMismatch},
		{name: "non numeric level", html: gaugePage("-"), cell: 0, wantKind: entities.KindFormatMismatch},
		{name: "no rows", html: `<p>loading</p>`, cell: 0, wantKind: entities.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, level, err := ExtractStationLevel(tt.html, DefaultRowHeaderSelector, DefaultStationMatch, tt.cell)
			if tt.wantKind != entities.KindUnknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, entities.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, level, 1e-9)
		})
	}
}

type rendererFunc func(ctx context.Context) (Session, error)

func (f rendererFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }
