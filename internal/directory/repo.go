// Package directory is the registered-user store backing every other
// component. Resolution is always chat-identity first, display-name second:
// that ordering is what lets a name-only row be claimed by its chat identity
// on first contact.
package directory

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/seedslabs/gratibot-backend/pkg/db"
	"github.com/seedslabs/gratibot-backend/pkg/db/models"
	pkgerrors "github.com/seedslabs/gratibot-backend/pkg/errors"
)

// Repository exposes directory persistence operations.
type Repository struct {
	client *db.Client
}

// NewRepository constructs a directory repo bound to the shared DB client.
func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

// UpsertParams carries the resolution criteria and the fields to write.
type UpsertParams struct {
	ChatIdentity  string
	DisplayName   string
	AccountHandle string
}

// FindByChatIdentity returns the user exactly matching the chat identity, or
// nil when no row matches.
func (r *Repository) FindByChatIdentity(ctx context.Context, chatIdentity string) (*models.User, error) {
	if chatIdentity == "" {
		return nil, nil
	}
	var user models.User
	err := r.client.DB().WithContext(ctx).Where("user_id = ?", chatIdentity).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "finding user by chat identity")
	}
	return &user, nil
}

// FindByDisplayName returns the user exactly matching the display name, or
// nil when no row matches.
func (r *Repository) FindByDisplayName(ctx context.Context, name string) (*models.User, error) {
	if name == "" {
		return nil, nil
	}
	var user models.User
	err := r.client.DB().WithContext(ctx).Where("name = ?", name).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "finding user by display name")
	}
	return &user, nil
}

// Resolve applies the resolution priority: chat identity first, display name
// as the fallback.
func (r *Repository) Resolve(ctx context.Context, chatIdentity, name string) (*models.User, error) {
	user, err := r.FindByChatIdentity(ctx, chatIdentity)
	if err != nil || user != nil {
		return user, err
	}
	return r.FindByDisplayName(ctx, name)
}

// Upsert resolves the target record inside one transaction and either rewrites
// its account handle (claiming the row for the chat identity if it had none)
// or inserts a fresh record. The read-then-write sequence stays atomic so
// concurrent messages for the same identity cannot produce duplicate rows.
func (r *Repository) Upsert(ctx context.Context, params UpsertParams) (*models.User, error) {
	var out *models.User
	err := r.client.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := resolveTx(tx, params.ChatIdentity, params.DisplayName)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if user != nil {
			user.AccountHandle = params.AccountHandle
			user.DisplayName = params.DisplayName
			if user.ChatIdentity == nil && params.ChatIdentity != "" {
				identity := params.ChatIdentity
				user.ChatIdentity = &identity
			}
			user.UpdatedAt = now
			if err := tx.Save(user).Error; err != nil {
				return err
			}
			out = user
			return nil
		}

		fresh := &models.User{
			DisplayName:   params.DisplayName,
			AccountHandle: params.AccountHandle,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if params.ChatIdentity != "" {
			identity := params.ChatIdentity
			fresh.ChatIdentity = &identity
		}
		if err := tx.Create(fresh).Error; err != nil {
			return err
		}
		out = fresh
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "upserting user")
	}
	return out, nil
}

// SetLocale persists the locale preference, creating the record when the chat
// identity is unknown to the directory.
func (r *Repository) SetLocale(ctx context.Context, chatIdentity, displayName, locale string) (*models.User, error) {
	var out *models.User
	err := r.client.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := resolveTx(tx, chatIdentity, displayName)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		loc := locale
		if user != nil {
			user.Locale = &loc
			if user.ChatIdentity == nil && chatIdentity != "" {
				identity := chatIdentity
				user.ChatIdentity = &identity
			}
			user.UpdatedAt = now
			if err := tx.Save(user).Error; err != nil {
				return err
			}
			out = user
			return nil
		}

		fresh := &models.User{
			DisplayName: displayName,
			Locale:      &loc,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if chatIdentity != "" {
			identity := chatIdentity
			fresh.ChatIdentity = &identity
		}
		if err := tx.Create(fresh).Error; err != nil {
			return err
		}
		out = fresh
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "persisting locale")
	}
	return out, nil
}

func resolveTx(tx *gorm.DB, chatIdentity, name string) (*models.User, error) {
	var user models.User
	if chatIdentity != "" {
		err := tx.Where("user_id = ?", chatIdentity).First(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if name != "" {
		err := tx.Where("name = ?", name).First(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}
