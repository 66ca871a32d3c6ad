package telegram

import (
	"html"
	"strconv"
	"strings"
)

// htmlMarkup renders Telegram HTML. Mentions link to the user id; names
// holds display labels for the users known at render time.
type htmlMarkup struct {
	names map[string]string
}

func (htmlMarkup) Bold(s string) string { return "<b>" + html.EscapeString(s) + "</b>" }

func (htmlMarkup) Code(s string) string { return "<code>" + html.EscapeString(s) + "</code>" }

func (htmlMarkup) Quote(s string) string {
	return "<blockquote>" + html.EscapeString(s) + "</blockquote>"
}

func (m htmlMarkup) Mention(userID string) string {
	label := m.names[userID]
	if label == "" {
		label = "player"
	}
	return `<a href="tg://user?id=` + html.EscapeString(userID) + `">` + html.EscapeString(label) + "</a>"
}

func displayName(firstName, lastName, username string) string {
	name := strings.TrimSpace(firstName + " " + lastName)
	if name == "" && username != "" {
		return "@" + username
	}
	return name
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
