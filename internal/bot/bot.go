// Package bot implements the Telegram reader that lists blog posts and shows
// them on demand.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/tgblog/apiserver/config"
	"github.com/tgblog/apiserver/types"
)

// ErrMissingToken is returned by New when no bot token is configured.
var ErrMissingToken = errors.New("BOT_TOKEN is not set")

// API is the part of the Telegram Bot API the reader uses. *tgbotapi.BotAPI
// satisfies it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// PostSource reads posts; Client is the production implementation.
type PostSource interface {
	ListPosts(ctx context.Context) ([]types.Post, error)
	GetPost(ctx context.Context, id int) (types.Post, error)
}

type Bot struct {
	api         API
	posts       PostSource
	pollTimeout time.Duration
	logger      zerolog.Logger
}

// New connects to Telegram with the configured token.
func New(cfg config.BotConfig, logger zerolog.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug
	logger.Info().Str("bot", api.Self.UserName).Msg("authorized on telegram")

	return NewWithAPI(api, NewClient(cfg.APIBaseURL), cfg.PollTimeout, logger), nil
}

func NewWithAPI(api API, posts PostSource, pollTimeout time.Duration, logger zerolog.Logger) *Bot {
	if pollTimeout <= 0 {
		pollTimeout = 60 * time.Second
	}
	return &Bot{
		api:         api,
		posts:       posts,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.pollTimeout / time.Second)
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info().Msg("bot started, waiting for updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info().Msg("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches one update. Failures are reported to the chat and
// logged, never returned.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		switch update.Message.Command() {
		case "start":
			b.reply(update.Message.Chat.ID, msgGreeting)
		case "posts":
			b.showPosts(ctx, update.Message.Chat.ID)
		default:
			b.logger.Debug().Str("command", update.Message.Command()).Msg("ignoring unknown command")
		}
	}
}

func (b *Bot) showPosts(ctx context.Context, chatID int64) {
	posts, err := b.posts.ListPosts(ctx)
	if err != nil {
		b.reply(chatID, b.describeListError(err))
		return
	}
	if len(posts) == 0 {
		b.reply(chatID, msgNoPosts)
		return
	}

	msg := tgbotapi.NewMessage(chatID, msgChoosePost)
	msg.ReplyMarkup = postKeyboard(posts)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send post list failed")
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("answer callback failed")
	}
	if query.Message == nil {
		return
	}
	chatID, messageID := query.Message.Chat.ID, query.Message.MessageID

	id, ok := parseCallbackData(query.Data)
	if !ok {
		b.edit(chatID, messageID, msgUnknownRequest, "")
		return
	}

	post, err := b.posts.GetPost(ctx, id)
	if err != nil {
		b.edit(chatID, messageID, b.describePostError(id, err), "")
		return
	}
	b.edit(chatID, messageID, renderPost(post), tgbotapi.ModeHTML)
}

func (b *Bot) describeListError(err error) string {
	var statusErr *StatusError
	var urlErr *url.Error
	switch {
	case errors.As(err, &statusErr):
		b.logger.Error().Int("status", statusErr.Code).Str("body", statusErr.Body).Msg("http error fetching posts")
		return listHTTPError(statusErr.Code)
	case errors.As(err, &urlErr):
		b.logger.Error().Err(err).Msg("network error fetching posts")
		return msgListUnreachable
	default:
		b.logger.Error().Err(err).Msg("unexpected error fetching posts")
		return msgListFailed
	}
}

func (b *Bot) describePostError(id int, err error) string {
	var statusErr *StatusError
	var urlErr *url.Error
	switch {
	case errors.Is(err, ErrPostNotFound):
		return msgPostNotFound
	case errors.As(err, &statusErr):
		b.logger.Error().Int("post_id", id).Int("status", statusErr.Code).Str("body", statusErr.Body).Msg("http error fetching post")
		return postHTTPError(statusErr.Code)
	case errors.As(err, &urlErr):
		b.logger.Error().Err(err).Int("post_id", id).Msg("network error fetching post")
		return msgPostUnreachable
	default:
		b.logger.Error().Err(err).Int("post_id", id).Msg("unexpected error showing post")
		return msgPostFailed
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}

func (b *Bot) edit(chatID int64, messageID int, text, parseMode string) {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	msg.ParseMode = parseMode
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("edit message failed")
	}
}
