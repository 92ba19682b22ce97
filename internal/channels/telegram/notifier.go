package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"
)

// Notify delivers a job outcome message to the requester's chat. The
// requester ID is the Telegram user ID captured when the job was created.
// When the connector is disabled the notification is dropped silently.
func (c *Connector) Notify(ctx context.Context, requester, message string) error {
	if c.bot == nil {
		return nil
	}

	chatID, err := strconv.ParseInt(requester, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid requester id %q: %w", requester, err)
	}

	_, err = c.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   message,
	})
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
