// Package telegram speaks the chat-transport boundary: inbound webhook update
// payloads and the outbound bot API. The rest of the system depends on the
// Sender interface only.
package telegram

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// Chat types as delivered by the transport.
const (
	ChatTypePrivate = "private"
	ChatTypeGroup   = "group"
	ChatTypeChannel = "channel"
)

// Entity types the bot cares about.
const (
	EntityBotCommand  = "bot_command"
	EntityMention     = "mention"
	EntityTextMention = "text_mention"
)

// Update is one inbound unit of work from the webhook.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64    `json:"message_id"`
	From      *User    `json:"from,omitempty"`
	Chat      Chat     `json:"chat"`
	Text      string   `json:"text,omitempty"`
	Entities  []Entity `json:"entities,omitempty"`
}

// User identifies a transport participant.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Entity is a styled or semantic span inside a message text. Offsets and
// lengths count UTF-16 code units, as the transport defines them.
type Entity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	User   *User  `json:"user,omitempty"`
}

// CallbackQuery is an inline-keyboard button press.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// InlineKeyboardMarkup is the reply markup for inline keyboards.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton is a single inline button.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// ChatIdentity renders the numeric user id as the opaque identity string the
// directory stores.
func (u User) ChatIdentity() string {
	return fmt.Sprintf("%d", u.ID)
}

// FullName joins first and last names.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// PreferredName is the transport username when present, the full name
// otherwise. The directory keys name-only records on this value.
func (u User) PreferredName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FullName()
}

// Mention renders a markdown mention that links back to the user.
func (u User) Mention() string {
	return fmt.Sprintf("[%s](tg://user?id=%d)", u.FullName(), u.ID)
}

// IsPrivate reports whether the message arrived in a one-on-one chat.
func (m *Message) IsPrivate() bool {
	return m != nil && m.Chat.Type == ChatTypePrivate
}

// Command returns the leading bot command without the slash and any @bot
// suffix, or "" when the message is not a command.
func (m *Message) Command() string {
	if m == nil || !strings.HasPrefix(m.Text, "/") {
		return ""
	}
	cmd := m.Text[1:]
	if idx := strings.IndexAny(cmd, " \n"); idx >= 0 {
		cmd = cmd[:idx]
	}
	if idx := strings.Index(cmd, "@"); idx >= 0 {
		cmd = cmd[:idx]
	}
	return cmd
}

// CommandArgs returns the text after the command, trimmed.
func (m *Message) CommandArgs() string {
	if m == nil || m.Command() == "" {
		return ""
	}
	idx := strings.IndexAny(m.Text, " \n")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(m.Text[idx+1:])
}

// EntityText extracts the substring a span covers, honoring UTF-16 offsets.
func (m *Message) EntityText(e Entity) string {
	if m == nil {
		return ""
	}
	units := utf16.Encode([]rune(m.Text))
	if e.Offset < 0 || e.Offset+e.Length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
}

// TextAfterEntity returns everything past the span, honoring UTF-16 offsets.
func (m *Message) TextAfterEntity(e Entity) string {
	if m == nil {
		return ""
	}
	units := utf16.Encode([]rune(m.Text))
	end := e.Offset + e.Length
	if end < 0 || end > len(units) {
		return ""
	}
	return string(utf16.Decode(units[end:]))
}

// MentionEntity returns the first mention or text_mention span, if any.
func (m *Message) MentionEntity() (Entity, bool) {
	if m == nil {
		return Entity{}, false
	}
	for _, e := range m.Entities {
		if e.Type == EntityMention || e.Type == EntityTextMention {
			return e, true
		}
	}
	return Entity{}, false
}

// StartLink builds the deep link that opens a private chat with the bot and
// carries a start payload.
func StartLink(botUsername, payload string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, payload)
}
