package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelzeko/flood-alert/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	getMeResponse       = `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Flood","username":"flood_alert_bot"}}`
	sendMessageResponse = `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100,"type":"group"},"text":"ok"}}`
	rateLimitedResponse = `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 1","parameters":{"retry_after":1}}`
	forbiddenResponse   = `{"ok":false,"error_code":403,"description":"Forbidden: bot was kicked"}`
	unauthorizedGetMe   = `{"ok":false,"error_code":401,"description":"Unauthorized"}`
)

// mockTelegramServer answers getMe, then serves sendMessage responses in order, repeating the last
func mockTelegramServer(t *testing.T, sends ...string) (*httptest.Server, *int32, *string) {
	t.Helper()
	return mockTelegramServerWithGetMe(t, getMeResponse, sends...)
}

func mockTelegramServerWithGetMe(t *testing.T, getMe string, sends ...string) (*httptest.Server, *int32, *string) {
	t.Helper()
	var sendCalls int32
	var lastText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(getMe))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			n := int(atomic.AddInt32(&sendCalls, 1))
			_ = r.ParseForm()
			lastText = r.FormValue("text")
			resp := sends[len(sends)-1]
			if n <= len(sends) {
				resp = sends[n-1]
			}
			_, _ = w.Write([]byte(resp))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &sendCalls, &lastText
}

func testTelegramNotifier(srv *httptest.Server) *TelegramNotifier {
	return NewTelegramNotifier(TelegramOptions{
		Token:    "123:abc",
		ChatID:   -100,
		Endpoint: srv.URL + "/bot%s/%s",
		Timeout:  time.Second,
		Retry:    fastRetry,
	})
}

func TestTelegramNotifier_Send(t *testing.T) {
	srv, calls, text := mockTelegramServer(t, sendMessageResponse)
	n := testTelegramNotifier(srv)

	require.NoError(t, n.Notify(context.Background(), watchNotification()))
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
	assert.Equal(t, watchNotification().Text, *text)
}

func TestTelegramNotifier_RateLimitedIsRetried(t *testing.T) {
	srv, calls, _ := mockTelegramServer(t, rateLimitedResponse, sendMessageResponse)
	n := testTelegramNotifier(srv)

	require.NoError(t, n.Notify(context.Background(), watchNotification()))
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestTelegramNotifier_OtherErrorsArePermanent(t *testing.T) {
	srv, calls, _ := mockTelegramServer(t, forbiddenResponse)
	n := testTelegramNotifier(srv)

	err := n.Notify(context.Background(), watchNotification())
	require.Error(t, err)
	assert.Equal(t, entities.KindNetwork, entities.KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestTelegramNotifier_AuthorizationFailureIsADispatchError(t *testing.T) {
	srv, calls, _ := mockTelegramServerWithGetMe(t, unauthorizedGetMe, sendMessageResponse)
	n := testTelegramNotifier(srv)

	err := n.Notify(context.Background(), watchNotification())
	require.Error(t, err)
	assert.Equal(t, entities.KindConfigMissing, entities.KindOf(err))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestTelegramNotifier_AuthorizesOnce(t *testing.T) {
	srv, calls, _ := mockTelegramServer(t, sendMessageResponse)
	n := testTelegramNotifier(srv)

	require.NoError(t, n.Notify(context.Background(), watchNotification()))
	require.NoError(t, n.Notify(context.Background(), watchNotification()))
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
	assert.NotNil(t, n.bot)
}
