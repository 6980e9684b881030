package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tgblog/apiserver/types"
)

const (
	callbackPostPrefix = "post_"
	dateLayout         = "02.01.2006 15:04"
)

const (
	msgGreeting        = "Hi! I show posts from the blog. Use /posts to see the list."
	msgChoosePost      = "Choose a post:"
	msgNoPosts         = "No posts yet. Add some through the API!"
	msgListUnreachable = "Could not reach the blog API. Please check that it is running."
	msgPostUnreachable = "Could not reach the blog API to load the post."
	msgPostNotFound    = "Post not found or was deleted."
	msgUnknownRequest  = "Unknown request."
	msgListFailed      = "Something went wrong while loading posts. Please try again later."
	msgPostFailed      = "Something went wrong while showing the post."
)

// postKeyboard lays out one button per post, in API order.
func postKeyboard(posts []types.Post) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(posts))
	for _, post := range posts {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(post.Title, callbackData(post.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func callbackData(id int) string {
	return callbackPostPrefix + strconv.Itoa(id)
}

// parseCallbackData accepts exactly "post_<positive id>".
func parseCallbackData(data string) (int, bool) {
	raw, ok := strings.CutPrefix(data, callbackPostPrefix)
	if !ok || raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// renderPost formats a post for parse mode HTML.
func renderPost(post types.Post) string {
	return fmt.Sprintf(
		"<b>%s</b>\n\n%s\n\n<i>Created: %s</i>",
		html.EscapeString(post.Title),
		html.EscapeString(post.Text),
		post.CreatedAt.Format(dateLayout),
	)
}

func listHTTPError(code int) string {
	return fmt.Sprintf("Could not load posts: HTTP %d. Please try again later.", code)
}

func postHTTPError(code int) string {
	return fmt.Sprintf("Could not load the post: HTTP %d.", code)
}
