package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedslabs/gratibot-backend/pkg/config"
	"github.com/seedslabs/gratibot-backend/pkg/metrics"
	"github.com/seedslabs/gratibot-backend/pkg/telegram"
)

type noopDispatcher struct {
	count int
}

func (d *noopDispatcher) Dispatch(context.Context, telegram.Update) { d.count++ }

type upPinger struct{}

func (upPinger) Ping(context.Context) error { return nil }

func newRouter(secret string) (http.Handler, *noopDispatcher, *metrics.BotMetrics) {
	cfg := &config.Config{}
	cfg.Bot.WebhookSecret = secret
	dispatcher := &noopDispatcher{}
	registry := prometheus.NewRegistry()
	botMetrics := metrics.NewBotMetrics(registry)
	return NewRouter(Params{
		Config:     cfg,
		Dispatcher: dispatcher,
		DB:         upPinger{},
		Registry:   registry,
	}), dispatcher, botMetrics
}

func TestRouter_WebhookRoundTrip(t *testing.T) {
	handler, dispatcher, _ := newRouter("")

	body := `{"update_id":1,"message":{"message_id":1,"text":"hi","from":{"id":42,"first_name":"Ana"},"chat":{"id":42,"type":"private"}}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bot/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, dispatcher.count)
}

func TestRouter_WebhookGuardedBySecret(t *testing.T) {
	handler, dispatcher, _ := newRouter("s3cret")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bot/webhook", strings.NewReader(`{"update_id":1}`)))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, dispatcher.count)
}

func TestRouter_HealthEndpoints(t *testing.T) {
	handler, _, _ := newRouter("")

	for _, path := range []string{"/", "/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_MetricsScrape(t *testing.T) {
	handler, _, botMetrics := newRouter("")
	botMetrics.IncUpdate("message")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bot_updates_total")
}
