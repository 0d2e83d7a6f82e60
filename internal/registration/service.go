// Package registration drives the per-conversation flow that binds a chat
// identity to a SEEDS account handle.
//
// The machine has two states. Idle is the absence of a scratch record;
// AwaitingUsername is entered on /start and holds until a valid handle, a
// cancellation, or scratch expiry. The dispatcher serializes messages per
// chat identity, so each flow sees its scratch record consistently.
package registration

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/seedslabs/gratibot-backend/internal/conversation"
	"github.com/seedslabs/gratibot-backend/internal/directory"
	"github.com/seedslabs/gratibot-backend/internal/i18n"
	"github.com/seedslabs/gratibot-backend/pkg/logger"
	"github.com/seedslabs/gratibot-backend/pkg/telegram"
)

var validate = validator.New()

// Service implements the registration state machine.
type Service struct {
	repo          *directory.Repository
	conversations conversation.Store
	sender        telegram.Sender
	logg          *logger.Logger
}

// NewService wires the registration dependencies.
func NewService(repo *directory.Repository, conversations conversation.Store, sender telegram.Sender, logg *logger.Logger) *Service {
	return &Service{repo: repo, conversations: conversations, sender: sender, logg: logg}
}

// Active returns the scratch record for the chat identity when a
// registration flow is in progress.
func (s *Service) Active(ctx context.Context, chatIdentity string) (conversation.Scratch, bool, error) {
	return s.conversations.Get(ctx, chatIdentity)
}

// Start enters AwaitingUsername. When the sender already has a linked
// account the prompt names the current handle and asks for a replacement;
// otherwise it explains the flow from scratch.
func (s *Service) Start(ctx context.Context, msg *telegram.Message, locale string) error {
	from := msg.From
	name := from.PreferredName()

	existing, err := s.repo.FindByDisplayName(ctx, name)
	if err != nil {
		return err
	}

	scratch := conversation.Scratch{
		State:       conversation.StateAwaitingUsername,
		DisplayName: name,
	}
	if err := s.conversations.Put(ctx, from.ChatIdentity(), scratch); err != nil {
		return err
	}

	if existing == nil {
		if err := s.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:    msg.Chat.ID,
			Text:      i18n.F(locale, i18n.KeyGreetingNew, from.FullName()),
			ParseMode: telegram.ParseModeMarkdown,
		}); err != nil {
			return err
		}
		return s.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   i18n.T(locale, i18n.KeyAskUsername),
		})
	}

	if err := s.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    msg.Chat.ID,
		Text:      i18n.F(locale, i18n.KeyGreetingReturning, from.FullName(), existing.AccountHandle),
		ParseMode: telegram.ParseModeMarkdown,
	}); err != nil {
		return err
	}
	return s.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   i18n.T(locale, i18n.KeyAskNewUsername),
	})
}

// Submit consumes the next message while AwaitingUsername. Non-alphanumeric
// input re-prompts without touching state or store; valid input becomes the
// sender's account handle and the machine resets to Idle.
func (s *Service) Submit(ctx context.Context, msg *telegram.Message, locale string) error {
	from := msg.From
	chatIdentity := from.ChatIdentity()

	if err := validate.Var(msg.Text, "required,alphanum"); err != nil {
		return s.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   i18n.T(locale, i18n.KeyInvalidUsername),
		})
	}

	scratch, ok, err := s.conversations.Get(ctx, chatIdentity)
	if err != nil {
		return err
	}
	displayName := from.PreferredName()
	if ok && scratch.DisplayName != "" {
		displayName = scratch.DisplayName
	}

	user, err := s.repo.Upsert(ctx, directory.UpsertParams{
		ChatIdentity:  chatIdentity,
		DisplayName:   displayName,
		AccountHandle: msg.Text,
	})
	if err != nil {
		return err
	}

	if err := s.conversations.Clear(ctx, chatIdentity); err != nil {
		return err
	}

	return s.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    msg.Chat.ID,
		Text:      i18n.F(locale, i18n.KeyRegistered, from.FullName(), user.AccountHandle),
		ParseMode: telegram.ParseModeMarkdown,
	})
}

// Cancel discards the scratch record with no store mutation.
func (s *Service) Cancel(ctx context.Context, msg *telegram.Message, locale string) error {
	if err := s.conversations.Clear(ctx, msg.From.ChatIdentity()); err != nil {
		return err
	}
	return s.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   i18n.T(locale, i18n.KeyCancelled),
	})
}
