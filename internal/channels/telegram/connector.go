// Package telegram provides the chat control surface using the Telego
// library. Users create publish jobs through a guided /upvideo flow, manage
// publish-target profiles, and receive completion notifications.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/mymmrac/telego"

	"github.com/hieund/repostbot/internal/config"
	"github.com/hieund/repostbot/internal/job"
	"github.com/hieund/repostbot/internal/logger"
	"github.com/hieund/repostbot/internal/store"
	"github.com/hieund/repostbot/internal/version"
)

// ChatStore is the slice of the store the chat channel needs.
type ChatStore interface {
	CreateJob(ctx context.Context, params store.CreateJobParams) (string, error)
	GetJobsByRequester(ctx context.Context, requester string, limit int) ([]*job.Job, error)
	DeleteJob(ctx context.Context, id string) (bool, error)

	CreateAccount(ctx context.Context, name, cookies string) (string, error)
	ListAccounts(ctx context.Context) ([]*job.Account, error)
	DeleteAccount(ctx context.Context, id string) (bool, error)
}

// Connector is the Telegram bot connector.
type Connector struct {
	cfg      config.TelegramConfig
	logger   *logger.Logger
	store    ChatStore
	bot      BotInterface
	sessions *sessions
	mediaDir string
	files    *http.Client

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Telegram connector. mediaDir is where user-attached video
// files are saved before publishing.
func New(cfg config.TelegramConfig, st ChatStore, mediaDir string, log *logger.Logger) *Connector {
	return &Connector{
		cfg:      cfg,
		logger:   log,
		store:    st,
		sessions: newSessions(),
		mediaDir: mediaDir,
		files:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Start initializes the bot and begins long polling for updates. It returns
// immediately; polling runs until the context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.logger.Info("telegram connector disabled in config")
		return nil
	}

	bot, err := telego.NewBot(c.cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	c.bot = NewBotAdapter(bot)
	c.ctx, c.cancel = context.WithCancel(ctx)

	botUser, err := c.bot.GetMe(c.ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	c.logger.Info("telegram bot initialized",
		logger.Field{Key: "bot_id", Value: botUser.ID},
		logger.Field{Key: "username", Value: botUser.Username})

	if err := c.registerCommands(); err != nil {
		c.logger.Error("failed to register bot commands", err)
	}
	c.sendStartupMessage()

	go c.poll()
	return nil
}

// sendStartupMessage tells the first whitelisted user the bot is up. With an
// open whitelist there is nobody specific to tell.
func (c *Connector) sendStartupMessage() {
	if len(c.cfg.AllowedUsers) == 0 {
		return
	}
	chatID, err := strconv.ParseInt(c.cfg.AllowedUsers[0], 10, 64)
	if err != nil {
		return
	}
	c.reply(chatID, version.FormatStartupMessage())
}

// Stop cancels long polling and drops the bot reference.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.bot = nil
	c.logger.Info("telegram connector stopped")
	return nil
}

// registerCommands publishes the bot menu.
func (c *Connector) registerCommands() error {
	params := &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "upvideo", Description: "Create a new publish job"},
			{Command: "jobs", Description: "Show your recent jobs"},
			{Command: "canceljob", Description: "Cancel a pending job"},
			{Command: "accounts", Description: "List publish profiles"},
			{Command: "newprofile", Description: "Add a publish profile"},
			{Command: "delprofile", Description: "Remove a publish profile"},
			{Command: "cancel", Description: "Abort the current flow"},
		},
	}
	return c.bot.SetMyCommands(c.ctx, params)
}

// poll consumes long-polling updates until the context is cancelled.
func (c *Connector) poll() {
	updates, err := c.bot.UpdatesViaLongPolling(c.ctx, &telego.GetUpdatesParams{Timeout: 30})
	if err != nil {
		c.logger.Error("failed to start long polling", err)
		return
	}

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("long polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				c.logger.Info("updates channel closed")
				return
			}
			c.handleUpdate(update)
		}
	}
}

// handleUpdate routes one update through authorization, commands, and any
// in-progress guided flow.
func (c *Connector) handleUpdate(update telego.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	var userID string
	if msg.From != nil {
		userID = fmt.Sprintf("%d", msg.From.ID)
	}

	if !c.isAllowedUser(userID) {
		c.logger.Warn("message blocked, user not in whitelist",
			logger.Field{Key: "user_id", Value: userID})
		c.reply(msg.Chat.ID, "Sorry, you are not authorized to use this bot.")
		return
	}

	if err := c.dispatch(msg, userID); err != nil {
		c.logger.Error("failed to handle message", err,
			logger.Field{Key: "user_id", Value: userID})
		c.reply(msg.Chat.ID, "Something went wrong, please try again.")
	}
}

// isAllowedUser checks the whitelist. An empty whitelist allows everyone.
func (c *Connector) isAllowedUser(userID string) bool {
	if len(c.cfg.AllowedUsers) == 0 {
		return true
	}
	return slices.Contains(c.cfg.AllowedUsers, userID)
}

// reply sends a best-effort message to a chat.
func (c *Connector) reply(chatID int64, text string) {
	if c.bot == nil {
		return
	}
	ctx := c.ctx
	if c.cfg.SendTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.SendTimeoutSeconds)*time.Second)
		defer cancel()
	}
	_, err := c.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		c.logger.Error("failed to send message", err,
			logger.Field{Key: "chat_id", Value: chatID})
	}
}
