// Package autocomplete suggests game slugs for partially typed names.
package autocomplete

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"
	"strings"

	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/liuran001/LFGBot-Go/bot/slug"
)

//go:embed known_games.txt
var defaultGames []byte

// MaxChoices is the most suggestions a chat client will render.
const MaxChoices = 25

// Index ranks candidates drawn from a fixed known-games list and the
// server's active games.
type Index struct {
	games  bot.GameLister
	known  []string
	logger bot.Logger
}

// New builds an index. Known names are normalized once; invalid or
// duplicate names are skipped.
func New(games bot.GameLister, known []string, logger bot.Logger) *Index {
	seen := make(map[string]struct{}, len(known))
	slugs := make([]string, 0, len(known))
	for _, name := range known {
		s, err := slug.Normalize(name)
		if err != nil {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		slugs = append(slugs, s)
	}
	return &Index{games: games, known: slugs, logger: logger}
}

// KnownGames returns the normalized known list.
func (i *Index) KnownGames() []string {
	return slices.Clone(i.known)
}

// Suggest returns up to limit slugs matching partial. Slugs that start
// with the partial come first, then those that only contain it; each group
// is ordered by length and then alphabetically. A partial with no letters
// or digits matches everything.
//
// When the server's active games cannot be read, or no server is given,
// the known list alone is used, so typing never fails on a storage outage.
func (i *Index) Suggest(ctx context.Context, serverID, partial string, limit int) (iter.Seq[string], error) {
	if limit <= 0 {
		return nil, bot.InvalidInputf("limit must be positive, got %d", limit)
	}
	needle, err := slug.Normalize(partial)
	if err != nil {
		needle = ""
	}

	candidates := i.candidates(ctx, serverID)
	matches := rank(candidates, needle)

	return func(yield func(string) bool) {
		for n, s := range matches {
			if n >= limit || !yield(s) {
				return
			}
		}
	}, nil
}

func (i *Index) candidates(ctx context.Context, serverID string) []string {
	set := make(map[string]struct{}, len(i.known))
	for _, s := range i.known {
		set[s] = struct{}{}
	}
	if i.games != nil && serverID != "" {
		active, err := i.games.ListActiveGames(ctx, serverID)
		if err != nil {
			if i.logger != nil {
				i.logger.Warn("autocomplete falling back to known games", "server_id", serverID, "error", err)
			}
		}
		for _, s := range active {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

func rank(candidates []string, needle string) []string {
	type match struct {
		slug   string
		prefix bool
	}
	matches := make([]match, 0, len(candidates))
	for _, s := range candidates {
		switch {
		case strings.HasPrefix(s, needle):
			matches = append(matches, match{slug: s, prefix: true})
		case strings.Contains(s, needle):
			matches = append(matches, match{slug: s})
		}
	}
	slices.SortFunc(matches, func(a, b match) int {
		if a.prefix != b.prefix {
			if a.prefix {
				return -1
			}
			return 1
		}
		if len(a.slug) != len(b.slug) {
			return len(a.slug) - len(b.slug)
		}
		return strings.Compare(a.slug, b.slug)
	})
	out := make([]string, len(matches))
	for n, m := range matches {
		out[n] = m.slug
	}
	return out
}

// LoadKnownGames reads a newline separated game list. Blank lines and lines
// starting with # are skipped. An empty path loads the built-in list.
func LoadKnownGames(path string) ([]string, error) {
	if path == "" {
		return parseGames(bytes.NewReader(defaultGames))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open games file: %w", err)
	}
	defer f.Close()
	return parseGames(f)
}

func parseGames(r io.Reader) ([]string, error) {
	var games []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		games = append(games, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read games file: %w", err)
	}
	return games, nil
}
