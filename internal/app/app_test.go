package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelzeko/flood-alert/internal/config"
	"github.com/abelzeko/flood-alert/internal/entities"
	"github.com/abelzeko/flood-alert/internal/integration"
	"github.com/abelzeko/flood-alert/internal/usecases"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenRenderer struct{}

func (brokenRenderer) Open(context.Context) (integration.Session, error) {
	return nil, errors.New("chrome not installed")
}

const damPage = `<html><script>
var json_data = [{"itc_water":{"C13":{"storage":"1,234.5"}}}];
</script></html>`

func TestRunOnce_DegradedEndToEnd(t *testing.T) {
	dam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(damPage))
	}))
	defer dam.Close()

	received := make(chan map[string]any, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	historyPath := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(historyPath, []byte("ปี,เดือน,วันที่,ปริมาณน้ำ (ลบ.ม./วินาที)\n2568,ตุลาคม,15,1700\n"), 0o644))

	cfg := config.Default()
	cfg.Discharge.URL = dam.URL
	cfg.Discharge.Timeout = 5 * time.Second
	cfg.History.File = historyPath
	cfg.Notify.WebhookURL = hook.URL
	cfg.Gauge.MaxRetries = 0

	a := NewWithRenderer(cfg, brokenRenderer{})

	res := a.RunOnce(context.Background())

	require.NotNil(t, res.Report.Degraded)
	assert.Equal(t, entities.StatusFailed, res.Report.Degraded.GaugeStatus)
	assert.Equal(t, entities.StatusOK, res.Report.Degraded.DischargeStatus)
	assert.Equal(t, entities.KindRenderError, entities.KindOf(res.GaugeErr))
	assert.NoError(t, res.DispatchErr)
	assert.Equal(t, usecases.StateDone, res.Transitions[len(res.Transitions)-1])

	select {
	case payload := <-received:
		assert.Equal(t, res.Text, payload["message"])
		assert.InDelta(t, 1234.5, payload["discharge"], 1e-9)
		assert.NotContains(t, payload, "water_level")
	case <-time.After(time.Second):
		t.Fatal("webhook was not called")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().HistoryRecords))
}

func TestNewWithRenderer_MissingHistoryAndTransports(t *testing.T) {
	cfg := config.Default()
	cfg.History.File = filepath.Join(t.TempDir(), "absent.csv")

	a := NewWithRenderer(cfg, brokenRenderer{})
	assert.Equal(t, 0.0, testutil.ToFloat64(a.Metrics().HistoryRecords))
}

func TestRunOnce_TelegramAuthorizationFailureStillDispatchesToLine(t *testing.T) {
	dam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(damPage))
	}))
	defer dam.Close()

	var lineCalls int32
	line := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&lineCalls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer line.Close()

	telegram := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer telegram.Close()

	cfg := config.Default()
	cfg.Discharge.URL = dam.URL
	cfg.History.File = ""
	cfg.Gauge.MaxRetries = 0
	cfg.Notify.LineToken = "line-token"
	cfg.Notify.LineAPIBase = line.URL
	cfg.Notify.TelegramToken = "123:revoked"
	cfg.Notify.TelegramChatID = -100
	cfg.Notify.TelegramAPIEndpoint = telegram.URL + "/bot%s/%s"

	res := NewWithRenderer(cfg, brokenRenderer{}).RunOnce(context.Background())

	assert.EqualValues(t, 1, atomic.LoadInt32(&lineCalls), "LINE is still tried")
	require.Error(t, res.DispatchErr)
	assert.Equal(t, entities.KindConfigMissing, entities.KindOf(res.DispatchErr))
	assert.Equal(t, usecases.StateDone, res.Transitions[len(res.Transitions)-1])
}
