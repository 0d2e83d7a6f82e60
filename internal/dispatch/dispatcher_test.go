package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/seedslabs/gratibot-backend/internal/conversation"
	"github.com/seedslabs/gratibot-backend/internal/directory"
	"github.com/seedslabs/gratibot-backend/internal/gratitude"
	"github.com/seedslabs/gratibot-backend/internal/locale"
	"github.com/seedslabs/gratibot-backend/internal/registration"
	"github.com/seedslabs/gratibot-backend/pkg/db"
	"github.com/seedslabs/gratibot-backend/pkg/db/models"
	"github.com/seedslabs/gratibot-backend/pkg/esr"
	"github.com/seedslabs/gratibot-backend/pkg/telegram"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []telegram.SendMessageParams
	answered []string
}

func (f *fakeSender) SendMessage(_ context.Context, params telegram.SendMessageParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, params)
	return nil
}

func (f *fakeSender) AnswerCallbackQuery(_ context.Context, callbackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakeSender) messages() []telegram.SendMessageParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]telegram.SendMessageParams, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeSigner struct{}

func (fakeSigner) Acknowledge(context.Context, string, string) (*esr.Artifact, error) {
	return &esr.Artifact{QR: "qr", DeepLink: "esr://sign"}, nil
}

type fixture struct {
	dispatcher *Dispatcher
	sender     *fakeSender
	store      conversation.Store
	conn       *gorm.DB
}

func setup(t *testing.T) *fixture {
	return setupWithLocale(t, "")
}

func setupWithLocale(t *testing.T, defaultLocale string) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))

	client := db.NewWithConn(conn)
	repo := directory.NewRepository(client)
	store := conversation.NewMemoryStore(time.Minute)
	sender := &fakeSender{}

	dispatcher := New(Params{
		Sender:        sender,
		Locales:       locale.NewResolver(repo, nil),
		Registration:  registration.NewService(repo, store, sender, nil),
		Gratitude:     gratitude.NewService(repo, fakeSigner{}, sender, nil, nil, "gratibot", time.Second),
		Directory:     repo,
		Conversations: store,
		DBClient:      client,
		BotUsername:   "gratibot",
		DefaultLocale: defaultLocale,
	})
	return &fixture{dispatcher: dispatcher, sender: sender, store: store, conn: conn}
}

func privateMessage(text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		From: &telegram.User{ID: 42, FirstName: "Ana", Username: "anasilva"},
		Chat: telegram.Chat{ID: 42, Type: telegram.ChatTypePrivate},
		Text: text,
	}}
}

func groupMessage(text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		From: &telegram.User{ID: 42, FirstName: "Ana", Username: "anasilva"},
		Chat: telegram.Chat{ID: -100, Type: telegram.ChatTypeGroup},
		Text: text,
	}}
}

func TestDispatch_StartThenUsernameRegisters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.dispatcher.Dispatch(ctx, privateMessage("/start"))
	f.dispatcher.Dispatch(ctx, privateMessage("anaseeds"))

	var count int64
	require.NoError(t, f.conn.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var user models.User
	require.NoError(t, f.conn.First(&user).Error)
	assert.Equal(t, "anaseeds", user.AccountHandle)
	require.NotNil(t, user.ChatIdentity)
	assert.Equal(t, "42", *user.ChatIdentity)

	_, active, err := f.store.Get(ctx, "42")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestDispatch_StartAliasesEnterRegistration(t *testing.T) {
	for _, alias := range []string{"/borala", "/bora", "/começar"} {
		t.Run(alias, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()

			f.dispatcher.Dispatch(ctx, privateMessage(alias))

			_, active, err := f.store.Get(ctx, "42")
			require.NoError(t, err)
			assert.True(t, active)
		})
	}
}

func TestDispatch_StartInGroupRedirectsToHelp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.dispatcher.Dispatch(ctx, groupMessage("/start"))

	_, active, err := f.store.Get(ctx, "42")
	require.NoError(t, err)
	assert.False(t, active, "group /start must not open a registration conversation")

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "t.me/gratibot?start=")
}

func TestDispatch_CommandInterruptsRegistration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.dispatcher.Dispatch(ctx, privateMessage("/start"))
	f.dispatcher.Dispatch(ctx, privateMessage("/help"))

	_, active, err := f.store.Get(ctx, "42")
	require.NoError(t, err)
	assert.False(t, active, "an interrupting command discards the conversation")

	var count int64
	require.NoError(t, f.conn.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count, "'/help' must not be stored as an account handle")
}

func TestDispatch_CancelMidRegistration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.dispatcher.Dispatch(ctx, privateMessage("/start"))
	f.dispatcher.Dispatch(ctx, privateMessage("/cancel"))

	_, active, err := f.store.Get(ctx, "42")
	require.NoError(t, err)
	assert.False(t, active)

	var count int64
	require.NoError(t, f.conn.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDispatch_UnknownCommandEchoesInput(t *testing.T) {
	f := setup(t)

	f.dispatcher.Dispatch(context.Background(), privateMessage("/frobnicate"))

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "/frobnicate")
}

func TestDispatch_GroupChatterIsIgnored(t *testing.T) {
	f := setup(t)

	f.dispatcher.Dispatch(context.Background(), groupMessage("bom dia pessoal"))

	assert.Empty(t, f.sender.messages())
}

func TestDispatch_PrivateUnhandledTextGetsUnknownReply(t *testing.T) {
	f := setup(t)

	f.dispatcher.Dispatch(context.Background(), privateMessage("bom dia"))

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "bom dia")
}

func TestDispatch_BotSendersAreIgnored(t *testing.T) {
	f := setup(t)

	f.dispatcher.Dispatch(context.Background(), telegram.Update{Message: &telegram.Message{
		From: &telegram.User{ID: 7, IsBot: true, FirstName: "OtherBot"},
		Chat: telegram.Chat{ID: -100, Type: telegram.ChatTypeGroup},
		Text: "/start",
	}})

	assert.Empty(t, f.sender.messages())
}

func TestDispatch_AckFlowsToSigner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	identity := "77"
	require.NoError(t, f.conn.Create(&models.User{
		ChatIdentity:  &identity,
		DisplayName:   "Felipe",
		AccountHandle: "felipenseeds",
	}).Error)

	f.dispatcher.Dispatch(ctx, groupMessage("/ack @Felipe obrigada!"))

	msgs := f.sender.messages()
	require.Len(t, msgs, 2, "confirmation in chat plus artifact in private")
	assert.Equal(t, int64(-100), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "Felipe")
	assert.Equal(t, int64(42), msgs[1].ChatID)
	assert.Contains(t, msgs[1].Text, "esr://sign")
}

func TestDispatch_LocaleCallbackPersistsAndConfirms(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.dispatcher.Dispatch(ctx, telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:   "cb-1",
		From: telegram.User{ID: 42, FirstName: "Ana", Username: "anasilva"},
		Message: &telegram.Message{
			Chat: telegram.Chat{ID: 42, Type: telegram.ChatTypePrivate},
		},
		Data: "locale:en",
	}})

	var user models.User
	require.NoError(t, f.conn.Where("user_id = ?", "42").First(&user).Error)
	require.NotNil(t, user.Locale)
	assert.Equal(t, "en", *user.Locale)

	assert.Equal(t, []string{"cb-1"}, f.sender.answered)

	msgs := f.sender.messages()
	require.Len(t, msgs, 2, "saved confirmation plus re-rendered help")
	assert.Contains(t, msgs[0].Text, "Language saved")
	assert.Contains(t, msgs[1].Text, "Need help")
}

func TestDispatch_UnsupportedLocaleCallbackIsDropped(t *testing.T) {
	f := setup(t)

	f.dispatcher.Dispatch(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:   "cb-2",
		From: telegram.User{ID: 42, FirstName: "Ana"},
		Data: "locale:xx",
	}})

	assert.Empty(t, f.sender.messages())
	assert.Empty(t, f.sender.answered)

	var count int64
	require.NoError(t, f.conn.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDispatch_LocaleChooserShowsKeyboard(t *testing.T) {
	f := setup(t)

	f.dispatcher.Dispatch(context.Background(), privateMessage("/idioma"))

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].ReplyMarkup)
	require.Len(t, msgs[0].ReplyMarkup.InlineKeyboard, 1)
	data := make([]string, 0, 2)
	for _, btn := range msgs[0].ReplyMarkup.InlineKeyboard[0] {
		data = append(data, btn.CallbackData)
	}
	assert.ElementsMatch(t, []string{"locale:pt", "locale:en"}, data)
}

func TestDispatch_ConfiguredDefaultLocaleAppliesToUnknownSenders(t *testing.T) {
	f := setupWithLocale(t, "en")

	f.dispatcher.Dispatch(context.Background(), privateMessage("/help"))

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Need help")
}

func TestDispatch_StoredPreferenceBeatsConfiguredDefault(t *testing.T) {
	f := setupWithLocale(t, "en")
	ctx := context.Background()

	loc := "pt"
	identity := "42"
	require.NoError(t, f.conn.Create(&models.User{
		ChatIdentity: &identity,
		DisplayName:  "Ana",
		Locale:       &loc,
	}).Error)

	f.dispatcher.Dispatch(ctx, privateMessage("/help"))

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Precisa de ajuda")
}

func TestDispatch_RepliesFollowStoredLocale(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	loc := "en"
	identity := "42"
	require.NoError(t, f.conn.Create(&models.User{
		ChatIdentity: &identity,
		DisplayName:  "Ana",
		Locale:       &loc,
	}).Error)

	f.dispatcher.Dispatch(ctx, privateMessage("/help"))

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Need help")
}

func TestDispatch_ConcurrentUpdatesSameIdentityStaySerialized(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.dispatcher.Dispatch(ctx, privateMessage("/start"))
			f.dispatcher.Dispatch(ctx, privateMessage("anaseeds"))
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, f.conn.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	for _, m := range f.sender.messages() {
		assert.False(t, strings.Contains(m.Text, "/start"), "commands must never leak into replies verbatim")
	}
}
