package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/seedslabs/gratibot-backend/pkg/logger"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookToken rejects webhook deliveries that do not carry the secret the
// webhook was registered with. An empty configured secret disables the check.
func WebhookToken(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get(secretTokenHeader)
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					if logg != nil {
						logg.Warn(r.Context(), "webhook delivery with bad secret token rejected")
					}
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
