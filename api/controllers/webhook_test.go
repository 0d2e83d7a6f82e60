package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedslabs/gratibot-backend/pkg/telegram"
)

type recordingDispatcher struct {
	updates []telegram.Update
}

func (r *recordingDispatcher) Dispatch(_ context.Context, update telegram.Update) {
	r.updates = append(r.updates, update)
}

func TestWebhook_DispatchesDecodedUpdate(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	handler := Webhook(dispatcher, nil)

	body := `{"update_id":7,"message":{"message_id":1,"text":"/start","from":{"id":42,"first_name":"Ana"},"chat":{"id":42,"type":"private"}}}`
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/bot/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, dispatcher.updates, 1)
	require.NotNil(t, dispatcher.updates[0].Message)
	assert.Equal(t, "/start", dispatcher.updates[0].Message.Text)
	assert.Equal(t, int64(42), dispatcher.updates[0].Message.From.ID)
}

func TestWebhook_MalformedPayloadIsRejectedWithoutDispatch(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	handler := Webhook(dispatcher, nil)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/bot/webhook", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, dispatcher.updates)
}

func TestWebhook_EmptyUpdateStillAnswersOK(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	handler := Webhook(dispatcher, nil)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/bot/webhook", strings.NewReader(`{"update_id":9}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, dispatcher.updates, 1)
}
