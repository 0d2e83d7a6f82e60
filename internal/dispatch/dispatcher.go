// Package dispatch is the per-update pipeline: serialize per chat identity,
// resolve the sender's locale, route to a handler, and convert every handler
// error into a logged apology so no inbound message crashes the process.
package dispatch

import (
	"context"
	"strings"

	"github.com/seedslabs/gratibot-backend/internal/conversation"
	"github.com/seedslabs/gratibot-backend/internal/directory"
	"github.com/seedslabs/gratibot-backend/internal/gratitude"
	"github.com/seedslabs/gratibot-backend/internal/i18n"
	"github.com/seedslabs/gratibot-backend/internal/locale"
	"github.com/seedslabs/gratibot-backend/internal/registration"
	"github.com/seedslabs/gratibot-backend/pkg/db"
	pkgerrors "github.com/seedslabs/gratibot-backend/pkg/errors"
	"github.com/seedslabs/gratibot-backend/pkg/logger"
	"github.com/seedslabs/gratibot-backend/pkg/metrics"
	"github.com/seedslabs/gratibot-backend/pkg/telegram"
)

const localeCallbackPrefix = "locale:"

// startAliases are the commands that enter the registration flow.
var startAliases = map[string]bool{
	"start":   true,
	"borala":  true,
	"bora":    true,
	"começar": true,
}

// Dispatcher routes inbound updates to handlers.
type Dispatcher struct {
	logg          *logger.Logger
	metrics       *metrics.BotMetrics
	sender        telegram.Sender
	locales       *locale.Resolver
	registration  *registration.Service
	gratitude     *gratitude.Service
	directory     *directory.Repository
	conversations conversation.Store
	dbClient      *db.Client
	botUsername   string
	defaultLocale string
	locks         *keyedMutex
}

// Params collects the dispatcher dependencies.
type Params struct {
	Logger        *logger.Logger
	Metrics       *metrics.BotMetrics
	Sender        telegram.Sender
	Locales       *locale.Resolver
	Registration  *registration.Service
	Gratitude     *gratitude.Service
	Directory     *directory.Repository
	Conversations conversation.Store
	DBClient      *db.Client
	BotUsername   string
	DefaultLocale string
}

// New wires the dispatcher.
func New(p Params) *Dispatcher {
	return &Dispatcher{
		logg:          p.Logger,
		metrics:       p.Metrics,
		sender:        p.Sender,
		locales:       p.Locales,
		registration:  p.Registration,
		gratitude:     p.Gratitude,
		directory:     p.Directory,
		conversations: p.Conversations,
		dbClient:      p.DBClient,
		botUsername:   p.BotUsername,
		defaultLocale: p.DefaultLocale,
		locks:         newKeyedMutex(),
	}
}

// Dispatch processes one inbound update. It never returns an error: failures
// are logged, counted, and answered with an apology.
func (d *Dispatcher) Dispatch(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		d.dispatchCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		d.dispatchMessage(ctx, update.Message)
	}
}

func (d *Dispatcher) dispatchMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	chatIdentity := msg.From.ChatIdentity()
	d.locks.lock(chatIdentity)
	defer d.locks.unlock(chatIdentity)

	if d.logg != nil {
		ctx = d.logg.WithChatIdentity(ctx, chatIdentity)
	}

	loc := d.resolveLocale(ctx, chatIdentity)

	kind, err := d.route(ctx, msg, loc)
	d.metrics.IncUpdate(kind)
	if err != nil {
		d.apologize(ctx, msg.Chat.ID, loc, err)
	}
}

// resolveLocale consults the directory, falling back to the configured
// default when the sender has no stored preference.
func (d *Dispatcher) resolveLocale(ctx context.Context, chatIdentity string) string {
	if loc := d.locales.Resolve(ctx, chatIdentity); loc != "" {
		return loc
	}
	return d.defaultLocale
}

// route picks a handler. A conversation that is mid-registration consumes the
// message before command dispatch, except for an explicit cancellation.
func (d *Dispatcher) route(ctx context.Context, msg *telegram.Message, loc string) (string, error) {
	scratch, active, err := d.registration.Active(ctx, msg.From.ChatIdentity())
	if err != nil {
		return "registration", err
	}

	cmd := msg.Command()

	if active && scratch.State == conversation.StateAwaitingUsername {
		if cmd == "cancel" {
			return "registration_cancel", d.registration.Cancel(ctx, msg, loc)
		}
		if cmd == "" {
			return "registration_submit", d.registration.Submit(ctx, msg, loc)
		}
		// Another command interrupts the flow; fall through after
		// discarding the scratch data.
		if err := d.conversations.Clear(ctx, msg.From.ChatIdentity()); err != nil {
			return "registration", err
		}
	}

	switch {
	case startAliases[cmd]:
		if !msg.IsPrivate() {
			return "start_redirect_help", d.sendHelp(ctx, msg, loc)
		}
		return "registration_start", d.registration.Start(ctx, msg, loc)
	case cmd == "help" || cmd == "ajuda":
		return "help", d.sendHelp(ctx, msg, loc)
	case cmd == "idioma" || cmd == "language":
		return "locale_chooser", d.sendLocaleChooser(ctx, msg.Chat.ID, loc)
	case cmd == "ack":
		return "ack", d.gratitude.Acknowledge(ctx, msg, loc)
	case cmd == "" && !msg.IsPrivate():
		// Group chatter outside a conversation is not addressed to us.
		return "ignored", nil
	default:
		return "unknown", d.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   i18n.F(loc, i18n.KeyUnknownCommand, msg.Text),
		})
	}
}

func (d *Dispatcher) dispatchCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	chatIdentity := cb.From.ChatIdentity()
	d.locks.lock(chatIdentity)
	defer d.locks.unlock(chatIdentity)

	if d.logg != nil {
		ctx = d.logg.WithChatIdentity(ctx, chatIdentity)
	}
	d.metrics.IncUpdate("callback")

	if !strings.HasPrefix(cb.Data, localeCallbackPrefix) {
		return
	}
	selected := strings.TrimPrefix(cb.Data, localeCallbackPrefix)
	if !i18n.Supported(selected) {
		return
	}

	if _, err := d.directory.SetLocale(ctx, chatIdentity, cb.From.PreferredName(), selected); err != nil {
		chatID := cb.From.ID
		if cb.Message != nil {
			chatID = cb.Message.Chat.ID
		}
		d.apologize(ctx, chatID, d.defaultLocale, err)
		return
	}

	if err := d.sender.AnswerCallbackQuery(ctx, cb.ID); err != nil && d.logg != nil {
		d.logg.Warn(ctx, "failed to answer callback query")
	}

	chatID := cb.From.ID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}
	msg := &telegram.Message{From: &cb.From, Chat: telegram.Chat{ID: chatID, Type: telegram.ChatTypePrivate}}
	if err := d.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: chatID,
		Text:   i18n.T(selected, i18n.KeyLocaleSaved),
	}); err != nil {
		d.apologize(ctx, chatID, selected, err)
		return
	}
	if err := d.sendHelp(ctx, msg, selected); err != nil {
		d.apologize(ctx, chatID, selected, err)
	}
}

// sendHelp renders the help text with the registration deep link.
func (d *Dispatcher) sendHelp(ctx context.Context, msg *telegram.Message, loc string) error {
	startLink := telegram.StartLink(d.botUsername, "setup")
	return d.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    msg.Chat.ID,
		Text:      i18n.F(loc, i18n.KeyHelp, msg.From.FullName(), startLink),
		ParseMode: telegram.ParseModeMarkdown,
	})
}

// sendLocaleChooser offers the language keyboard.
func (d *Dispatcher) sendLocaleChooser(ctx context.Context, chatID int64, loc string) error {
	keyboard := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "🇧🇷 Português", CallbackData: localeCallbackPrefix + "pt"},
			{Text: "🇬🇧 English", CallbackData: localeCallbackPrefix + "en"},
		}},
	}
	return d.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:      chatID,
		Text:        i18n.T(loc, i18n.KeyChooseLocale),
		ReplyMarkup: keyboard,
	})
}

// apologize is the outermost error boundary for one inbound unit of work.
func (d *Dispatcher) apologize(ctx context.Context, chatID int64, loc string, err error) {
	if d.logg != nil {
		dump := pkgerrors.Dump(err)
		ctx = d.logg.WithFields(ctx, map[string]any{
			"error_code":  string(dump.Code),
			"error_chain": dump.Chain,
			"pg_code":     dump.PGCode,
			"pg_detail":   dump.PGDetail,
		})
		d.logg.Error(ctx, "handler failed", err)
	}
	d.metrics.IncApology()

	if pkgerrors.HasCode(err, pkgerrors.CodeStoreUnavailable) {
		d.metrics.IncStoreFailure()
		if d.dbClient != nil {
			if resetErr := d.dbClient.Reset(ctx, d.logg); resetErr != nil && d.logg != nil {
				d.logg.Error(ctx, "database reset failed", resetErr)
			}
		}
	}

	if sendErr := d.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: chatID,
		Text:   i18n.T(loc, i18n.KeyApology),
	}); sendErr != nil && d.logg != nil {
		d.logg.Error(ctx, "failed to deliver apology", sendErr)
	}
}
