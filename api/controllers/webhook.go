// Package controllers holds the HTTP entrypoints: the webhook the transport
// delivers updates to, plus health probes.
package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/seedslabs/gratibot-backend/api/responses"
	"github.com/seedslabs/gratibot-backend/pkg/logger"
	"github.com/seedslabs/gratibot-backend/pkg/telegram"
)

// webhookBodyLimit caps inbound payloads. Updates are small; anything larger
// is not a legitimate delivery.
const webhookBodyLimit = 1 << 20

// UpdateDispatcher processes one inbound update end to end.
type UpdateDispatcher interface {
	Dispatch(ctx context.Context, update telegram.Update)
}

// Webhook decodes a transport delivery and hands it to the dispatcher. It
// always answers 200 for well-formed JSON so the transport does not redeliver
// updates whose handler failed: the dispatcher owns its own error handling.
func Webhook(dispatcher UpdateDispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
		if err != nil {
			if logg != nil {
				logg.Warn(ctx, "failed to read webhook body")
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var update telegram.Update
		if err := json.Unmarshal(body, &update); err != nil {
			if logg != nil {
				logg.Warn(ctx, "discarding malformed webhook payload")
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		dispatcher.Dispatch(ctx, update)

		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}
