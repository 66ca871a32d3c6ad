package discord

import "strings"

// Markup renders Discord markdown.
type Markup struct{}

func (Markup) Bold(s string) string { return "**" + s + "**" }

func (Markup) Code(s string) string { return "`" + s + "`" }

func (Markup) Quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

func (Markup) Mention(userID string) string { return "<@" + userID + ">" }
