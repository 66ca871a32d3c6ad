// Package slug maps free-text game names to the canonical identifiers used
// as storage keys.
package slug

import (
	"strings"
	"unicode"

	"github.com/liuran001/LFGBot-Go/bot"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds a slug in bytes. Storage keys are sized to hold it.
const MaxLength = 100

// Normalize converts a game name into its slug: lowercase ASCII letters and
// digits, words joined by single hyphens, no leading or trailing hyphen.
// Accents are folded ("Pokémon" -> "pokemon") and apostrophes are dropped
// instead of splitting a word ("Assassin's Creed" -> "assassins-creed").
// It fails with bot.ErrInvalidInput when nothing is left or the slug is
// longer than MaxLength.
func Normalize(raw string) (string, error) {
	s := fold(raw)

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r + ('a' - 'A'))
		case isApostrophe(r):
			// keep the word together
		default:
			pendingHyphen = true
		}
	}

	if b.Len() == 0 {
		return "", bot.InvalidInputf("game name %q has no letters or digits", strings.TrimSpace(raw))
	}
	if b.Len() > MaxLength {
		return "", bot.InvalidInputf("game name is longer than %d characters", MaxLength)
	}
	return b.String(), nil
}

// Display renders a slug for user-facing echo by title-casing each
// hyphen-separated word.
func Display(slug string) string {
	words := strings.Split(slug, "-")
	out := words[:0]
	for _, w := range words {
		if w == "" {
			continue
		}
		out = append(out, strings.ToUpper(w[:1])+w[1:])
	}
	return strings.Join(out, " ")
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’' || r == '`'
}
