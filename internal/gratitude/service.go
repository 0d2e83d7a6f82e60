// Package gratitude implements the acknowledgment dispatch pipeline: parse
// the /ack command, resolve the recipient in the directory, call the signing
// service, and hand the wallet artifact back to the sender.
package gratitude

import (
	"context"
	"time"

	"github.com/seedslabs/gratibot-backend/internal/directory"
	"github.com/seedslabs/gratibot-backend/internal/i18n"
	"github.com/seedslabs/gratibot-backend/pkg/esr"
	"github.com/seedslabs/gratibot-backend/pkg/logger"
	"github.com/seedslabs/gratibot-backend/pkg/metrics"
	"github.com/seedslabs/gratibot-backend/pkg/telegram"
)

// Signer is the signing-service surface the pipeline needs.
type Signer interface {
	Acknowledge(ctx context.Context, toAccount, memo string) (*esr.Artifact, error)
}

// Service dispatches acknowledgments.
type Service struct {
	repo        *directory.Repository
	signer      Signer
	sender      telegram.Sender
	logg        *logger.Logger
	metrics     *metrics.BotMetrics
	botUsername string
	timeout     time.Duration
}

// NewService wires the acknowledgment pipeline.
func NewService(repo *directory.Repository, signer Signer, sender telegram.Sender, logg *logger.Logger, m *metrics.BotMetrics, botUsername string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		repo:        repo,
		signer:      signer,
		sender:      sender,
		logg:        logg,
		metrics:     m,
		botUsername: botUsername,
		timeout:     timeout,
	}
}

// Acknowledge runs the pipeline for one /ack message.
//
// The chat-origin confirmation is deliberately sent before the signing call,
// matching the announce-first behavior users expect in the group chat. When
// the signing call then fails, the sender receives a compensating follow-up
// in private instead of the artifact; the group message is not retracted.
func (s *Service) Acknowledge(ctx context.Context, msg *telegram.Message, locale string) error {
	cmd, ok := parseAck(msg)
	if !ok {
		return s.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   i18n.T(locale, i18n.KeyAckUsage),
		})
	}

	recipient, err := s.repo.Resolve(ctx, cmd.recipientIdentity, cmd.recipientToken)
	if err != nil {
		return err
	}

	if recipient == nil {
		startLink := telegram.StartLink(s.botUsername, "setup")
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "recipient", cmd.recipientToken), "acknowledgment recipient not registered")
		}
		return s.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:    msg.Chat.ID,
			Text:      i18n.F(locale, i18n.KeyNotFound, cmd.recipientToken, startLink),
			ParseMode: telegram.ParseModeMarkdown,
		})
	}

	confirmation := i18n.F(locale, i18n.KeyAckConfirmation, msg.From.Mention(), recipient.DisplayName, cmd.memo)
	if err := s.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    msg.Chat.ID,
		Text:      confirmation,
		ParseMode: telegram.ParseModeMarkdown,
	}); err != nil {
		return err
	}

	// The signing round trip runs outside any store transaction and under
	// its own deadline; a timeout is handled exactly like a failure status.
	signCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	artifact, err := s.signer.Acknowledge(signCtx, recipient.AccountHandle, cmd.memo)
	s.metrics.ObserveSigning(time.Since(started))
	if err != nil {
		s.metrics.IncSigningFailure()
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "recipient", recipient.AccountHandle), "signing service call failed", err)
		}
		return s.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: msg.From.ID,
			Text:   i18n.T(locale, i18n.KeyAckFailed),
		})
	}

	s.metrics.IncAcknowledgment()
	return s.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    msg.From.ID,
		Text:      i18n.F(locale, i18n.KeyAckArtifact, recipient.DisplayName, artifact.DeepLink, artifact.QR),
		ParseMode: telegram.ParseModeMarkdown,
	})
}
