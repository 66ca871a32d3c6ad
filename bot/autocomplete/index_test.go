package autocomplete

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	games map[string][]string
	err   error
	calls int
}

func (s *stubLister) ListActiveGames(ctx context.Context, serverID string) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.games[serverID], nil
}

func suggest(t *testing.T, idx *Index, server, partial string, limit int) []string {
	t.Helper()
	seq, err := idx.Suggest(context.Background(), server, partial, limit)
	require.NoError(t, err)
	return slices.Collect(seq)
}

func TestSuggestPrefixOrdering(t *testing.T) {
	idx := New(&stubLister{}, []string{"Valorant", "Valheim"}, nil)
	assert.Equal(t, []string{"valheim", "valorant"}, suggest(t, idx, "s", "val", 10))
}

func TestSuggestPrefixBeforeSubstring(t *testing.T) {
	idx := New(&stubLister{}, []string{"Star Wars", "Warframe", "World of Warcraft", "War Thunder"}, nil)
	got := suggest(t, idx, "s", "war", 10)
	assert.Equal(t, []string{"warframe", "war-thunder", "star-wars", "world-of-warcraft"}, got)
}

func TestSuggestMergesActiveGames(t *testing.T) {
	lister := &stubLister{games: map[string][]string{
		"a": {"valorant", "vampire-survivors"},
		"b": {"valiant-hearts"},
	}}
	idx := New(lister, []string{"Valorant"}, nil)

	assert.Equal(t, []string{"valorant", "vampire-survivors"}, suggest(t, idx, "a", "va", 10))
	assert.Equal(t, []string{"valorant", "valiant-hearts"}, suggest(t, idx, "b", "va", 10))
}

func TestSuggestNormalizesPartial(t *testing.T) {
	idx := New(nil, []string{"Deep Rock Galactic", "Rocket League"}, nil)
	assert.Equal(t, []string{"deep-rock-galactic"}, suggest(t, idx, "s", "DEEP rock", 10))
	assert.Equal(t, []string{"rocket-league", "deep-rock-galactic"}, suggest(t, idx, "s", "rock", 10))
}

func TestSuggestBlankPartialMatchesAll(t *testing.T) {
	idx := New(nil, []string{"Rust", "Dota 2", "Minecraft"}, nil)
	for _, partial := range []string{"", "   ", "!!"} {
		assert.Equal(t, []string{"rust", "dota-2", "minecraft"}, suggest(t, idx, "s", partial, 10), "partial %q", partial)
	}
}

func TestSuggestLimit(t *testing.T) {
	idx := New(nil, []string{"a1", "a2", "a3", "a4"}, nil)
	assert.Equal(t, []string{"a1", "a2"}, suggest(t, idx, "s", "a", 2))

	for _, limit := range []int{0, -1} {
		_, err := idx.Suggest(context.Background(), "s", "a", limit)
		assert.ErrorIs(t, err, bot.ErrInvalidInput)
	}
}

func TestSuggestWithoutServerUsesKnownGames(t *testing.T) {
	lister := &stubLister{games: map[string][]string{"": {"valkyria"}}}
	idx := New(lister, []string{"Valorant", "Valheim"}, nil)

	assert.Equal(t, []string{"valheim", "valorant"}, suggest(t, idx, "", "val", 5))
	assert.Zero(t, lister.calls)
}

func TestSuggestSequenceIsRestartable(t *testing.T) {
	idx := New(nil, []string{"Valorant", "Valheim"}, nil)
	seq, err := idx.Suggest(context.Background(), "s", "val", 5)
	require.NoError(t, err)

	assert.Equal(t, slices.Collect(seq), slices.Collect(seq))

	var first string
	for s := range seq {
		first = s
		break
	}
	assert.Equal(t, "valheim", first)
}

func TestSuggestFallsBackOnStoreError(t *testing.T) {
	lister := &stubLister{err: errors.New("down")}
	idx := New(lister, []string{"Valorant"}, nil)
	assert.Equal(t, []string{"valorant"}, suggest(t, idx, "s", "val", 5))
	assert.Equal(t, 1, lister.calls)
}

func TestNewDedupesKnownGames(t *testing.T) {
	idx := New(nil, []string{"Valorant", "VALORANT", "  ", "Pokémon Unite"}, nil)
	assert.Equal(t, []string{"valorant", "pokemon-unite"}, idx.KnownGames())
}

func TestLoadKnownGames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nValorant\n\n  Valheim  \n"), 0o644))

	games, err := LoadKnownGames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Valorant", "Valheim"}, games)

	_, err = LoadKnownGames(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestLoadKnownGamesDefault(t *testing.T) {
	games, err := LoadKnownGames("")
	require.NoError(t, err)
	assert.Contains(t, games, "Valheim")
	assert.Contains(t, games, "Deep Rock Galactic")
	for _, g := range games {
		assert.NotContains(t, g, "#")
	}
}
