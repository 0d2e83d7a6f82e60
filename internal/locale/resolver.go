// Package locale resolves a sender's stored locale before any handler runs.
package locale

import (
	"context"

	"github.com/seedslabs/gratibot-backend/internal/directory"
	"github.com/seedslabs/gratibot-backend/pkg/logger"
)

// Resolver looks up locale preferences in the directory.
type Resolver struct {
	repo *directory.Repository
	logg *logger.Logger
}

// NewResolver binds the resolver to the directory store.
func NewResolver(repo *directory.Repository, logg *logger.Logger) *Resolver {
	return &Resolver{repo: repo, logg: logg}
}

// Resolve returns the stored locale for the chat identity, or "" when the
// sender is unknown, has no preference, or the store errors. Store failures
// degrade to "no locale" so a broken lookup never aborts the request; the
// value is threaded explicitly through rendering, never stashed in ambient
// state.
func (r *Resolver) Resolve(ctx context.Context, chatIdentity string) string {
	user, err := r.repo.FindByChatIdentity(ctx, chatIdentity)
	if err != nil {
		if r.logg != nil {
			r.logg.Warn(ctx, "locale lookup failed, proceeding without locale")
		}
		return ""
	}
	if user == nil || user.Locale == nil {
		return ""
	}
	return *user.Locale
}
