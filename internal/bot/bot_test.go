package bot

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgblog/apiserver/config"
	"github.com/tgblog/apiserver/types"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) lastSent(t *testing.T) tgbotapi.Chattable {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakePosts struct {
	posts   []types.Post
	listErr error
	getErr  error
}

func (f *fakePosts) ListPosts(ctx context.Context) ([]types.Post, error) {
	return f.posts, f.listErr
}

func (f *fakePosts) GetPost(ctx context.Context, id int) (types.Post, error) {
	if f.getErr != nil {
		return types.Post{}, f.getErr
	}
	for _, p := range f.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return types.Post{}, ErrPostNotFound
}

func newTestBot(posts PostSource) (*Bot, *fakeAPI) {
	api := newFakeAPI()
	return NewWithAPI(api, posts, time.Second, zerolog.New(io.Discard)), api
}

func command(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func callback(chatID int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
	}}
}

var samplePosts = []types.Post{
	{ID: 2, Title: "Second <draft>", Text: "B & C", CreatedAt: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
	{ID: 1, Title: "First", Text: "A", CreatedAt: time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC)},
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(config.BotConfig{Token: "  "}, zerolog.New(io.Discard))
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestStartCommand(t *testing.T) {
	b, api := newTestBot(&fakePosts{})
	b.HandleUpdate(context.Background(), command(42, "/start"))

	msg, ok := api.lastSent(t).(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.EqualValues(t, 42, msg.ChatID)
	assert.Equal(t, msgGreeting, msg.Text)
}

func TestPostsCommand(t *testing.T) {
	b, api := newTestBot(&fakePosts{posts: samplePosts})
	b.HandleUpdate(context.Background(), command(42, "/posts"))

	msg, ok := api.lastSent(t).(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, msgChoosePost, msg.Text)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "Second <draft>", markup.InlineKeyboard[0][0].Text)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "post_2", *markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "post_1", *markup.InlineKeyboard[1][0].CallbackData)
}

func TestPostsCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		posts   *fakePosts
		message string
	}{
		{"empty", &fakePosts{}, msgNoPosts},
		{"http", &fakePosts{listErr: &StatusError{Code: 503, Body: "down"}}, "Could not load posts: HTTP 503. Please try again later."},
		{"network", &fakePosts{listErr: &url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")}}, msgListUnreachable},
		{"other", &fakePosts{listErr: errors.New("decode posts: bad json")}, msgListFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, api := newTestBot(tt.posts)
			b.HandleUpdate(context.Background(), command(7, "/posts"))

			msg, ok := api.lastSent(t).(tgbotapi.MessageConfig)
			require.True(t, ok)
			assert.Equal(t, tt.message, msg.Text)
		})
	}
}

func TestCallbackShowsPost(t *testing.T) {
	b, api := newTestBot(&fakePosts{posts: samplePosts})
	b.HandleUpdate(context.Background(), callback(42, 100, "post_2"))

	require.Len(t, api.requests, 1)
	answer, ok := api.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb-1", answer.CallbackQueryID)

	edit, ok := api.lastSent(t).(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.EqualValues(t, 42, edit.ChatID)
	assert.Equal(t, 100, edit.MessageID)
	assert.Equal(t, tgbotapi.ModeHTML, edit.ParseMode)
	assert.Equal(t, "<b>Second &lt;draft&gt;</b>\n\nB &amp; C\n\n<i>Created: 01.05.2024 10:30</i>", edit.Text)
}

func TestCallbackErrors(t *testing.T) {
	tests := []struct {
		name    string
		posts   *fakePosts
		data    string
		message string
	}{
		{"not found", &fakePosts{posts: samplePosts}, "post_9", msgPostNotFound},
		{"unknown", &fakePosts{posts: samplePosts}, "like_1", msgUnknownRequest},
		{"bad id", &fakePosts{posts: samplePosts}, "post_x1", msgUnknownRequest},
		{"http", &fakePosts{getErr: &StatusError{Code: 500}}, "post_1", "Could not load the post: HTTP 500."},
		{"network", &fakePosts{getErr: &url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")}}, "post_1", msgPostUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, api := newTestBot(tt.posts)
			b.HandleUpdate(context.Background(), callback(1, 5, tt.data))

			edit, ok := api.lastSent(t).(tgbotapi.EditMessageTextConfig)
			require.True(t, ok)
			assert.Equal(t, tt.message, edit.Text)
			assert.Empty(t, edit.ParseMode)
		})
	}
}

func TestParseCallbackData(t *testing.T) {
	id, ok := parseCallbackData("post_15")
	assert.True(t, ok)
	assert.Equal(t, 15, id)

	for _, data := range []string{"", "post_", "post_0", "post_-1", "post_1_2", "posts_1", "post_+1"} {
		_, ok := parseCallbackData(data)
		assert.False(t, ok, data)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	b, api := newTestBot(&fakePosts{posts: samplePosts})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	api.updates <- command(3, "/start")
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.True(t, api.stopped)
}
