package gratitude

import (
	"strings"

	"github.com/seedslabs/gratibot-backend/pkg/telegram"
)

// command is the parsed shape of an /ack invocation.
type command struct {
	// recipientToken is the display text identifying the recipient, without
	// any leading @.
	recipientToken string
	// recipientIdentity is set when a structured mention bound a chat
	// identity to the span.
	recipientIdentity string
	memo              string
}

// parseAck extracts the recipient and memo from an /ack message. The second
// return is false when the command carries no argument text.
func parseAck(msg *telegram.Message) (command, bool) {
	args := msg.CommandArgs()
	if args == "" {
		return command{}, false
	}

	if entity, ok := msg.MentionEntity(); ok {
		cmd := command{
			recipientToken: strings.TrimPrefix(msg.EntityText(entity), "@"),
			memo:           stripMarkup(strings.TrimSpace(msg.TextAfterEntity(entity))),
		}
		if entity.Type == telegram.EntityTextMention && entity.User != nil {
			cmd.recipientIdentity = entity.User.ChatIdentity()
		}
		return cmd, true
	}

	// No structured mention: first token is the recipient, taking the
	// substring after the last @ so "oi@grupo@ana" still yields "ana".
	parts := strings.SplitN(args, " ", 2)
	who := parts[0]
	if idx := strings.LastIndex(who, "@"); idx >= 0 {
		who = who[idx+1:]
	}
	cmd := command{recipientToken: who}
	if len(parts) > 1 {
		cmd.memo = stripMarkup(strings.TrimSpace(parts[1]))
	}
	return cmd, true
}

// stripMarkup reduces styled text to plain text so the memo travels clean to
// the signing service.
func stripMarkup(text string) string {
	replacer := strings.NewReplacer(
		"*", "",
		"_", "",
		"`", "",
		"[", "",
		"]", "",
	)
	return replacer.Replace(text)
}
