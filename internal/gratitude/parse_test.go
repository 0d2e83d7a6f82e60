package gratitude

import (
	"testing"

	"github.com/seedslabs/gratibot-backend/pkg/telegram"
)

func TestParseAck_NoArgs(t *testing.T) {
	msg := &telegram.Message{Text: "/ack"}
	if _, ok := parseAck(msg); ok {
		t.Fatalf("expected no command for empty args")
	}
}

func TestParseAck_FallbackToken(t *testing.T) {
	msg := &telegram.Message{Text: "/ack @felipe muito obrigada"}
	cmd, ok := parseAck(msg)
	if !ok {
		t.Fatalf("expected parsed command")
	}
	if cmd.recipientToken != "felipe" {
		t.Fatalf("recipientToken = %q", cmd.recipientToken)
	}
	if cmd.memo != "muito obrigada" {
		t.Fatalf("memo = %q", cmd.memo)
	}
	if cmd.recipientIdentity != "" {
		t.Fatalf("unexpected identity %q", cmd.recipientIdentity)
	}
}

func TestParseAck_TakesSubstringAfterLastAt(t *testing.T) {
	msg := &telegram.Message{Text: "/ack oi@grupo@ana valeu"}
	cmd, ok := parseAck(msg)
	if !ok {
		t.Fatalf("expected parsed command")
	}
	if cmd.recipientToken != "ana" {
		t.Fatalf("recipientToken = %q", cmd.recipientToken)
	}
}

func TestParseAck_StructuredMention(t *testing.T) {
	msg := &telegram.Message{
		Text: "/ack @felipe *muito* _obrigada_",
		Entities: []telegram.Entity{
			{Type: telegram.EntityBotCommand, Offset: 0, Length: 4},
			{Type: telegram.EntityMention, Offset: 5, Length: 7},
		},
	}
	cmd, ok := parseAck(msg)
	if !ok {
		t.Fatalf("expected parsed command")
	}
	if cmd.recipientToken != "felipe" {
		t.Fatalf("recipientToken = %q", cmd.recipientToken)
	}
	if cmd.memo != "muito obrigada" {
		t.Fatalf("memo should be stripped to plain text, got %q", cmd.memo)
	}
}

func TestParseAck_TextMentionBindsIdentity(t *testing.T) {
	msg := &telegram.Message{
		Text: "/ack Felipe N valeu",
		Entities: []telegram.Entity{
			{Type: telegram.EntityTextMention, Offset: 5, Length: 8, User: &telegram.User{ID: 77, FirstName: "Felipe"}},
		},
	}
	cmd, ok := parseAck(msg)
	if !ok {
		t.Fatalf("expected parsed command")
	}
	if cmd.recipientIdentity != "77" {
		t.Fatalf("recipientIdentity = %q", cmd.recipientIdentity)
	}
	if cmd.recipientToken != "Felipe N" {
		t.Fatalf("recipientToken = %q", cmd.recipientToken)
	}
	if cmd.memo != "valeu" {
		t.Fatalf("memo = %q", cmd.memo)
	}
}
