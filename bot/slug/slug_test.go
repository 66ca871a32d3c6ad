package slug

import (
	"errors"
	"strings"
	"testing"

	"github.com/liuran001/LFGBot-Go/bot"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Deep Rock Galactic", "deep-rock-galactic"},
		{"deep rock galactic", "deep-rock-galactic"},
		{"DEEP-ROCK GALACTIC", "deep-rock-galactic"},
		{"  Deep   Rock\tGalactic  ", "deep-rock-galactic"},
		{"--deep--rock--", "deep-rock"},
		{"Helldivers 2", "helldivers-2"},
		{"Counter-Strike: Global Offensive", "counter-strike-global-offensive"},
		{"Assassin's Creed", "assassins-creed"},
		{"Baldur’s Gate 3", "baldurs-gate-3"},
		{"Pokémon Scarlet", "pokemon-scarlet"},
		{"rock_and_stone", "rock-and-stone"},
		{"valorant", "valorant"},
		{"Left 4 Dead 2!!!", "left-4-dead-2"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"Deep Rock Galactic", "Counter-Strike 2", "Pokémon", "a--b"}
	for _, in := range inputs {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n", "!!!", "---", "'"} {
		_, err := Normalize(in)
		if !errors.Is(err, bot.ErrInvalidInput) {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestNormalizeLength(t *testing.T) {
	atLimit := strings.Repeat("a", MaxLength)
	got, err := Normalize(atLimit)
	if err != nil || got != atLimit {
		t.Fatalf("Normalize(%d chars) = %q, %v", MaxLength, got, err)
	}

	// "a a a ..." becomes "a-a-a-...", twice the word count minus one.
	_, err = Normalize(strings.Repeat("a ", 200))
	if !errors.Is(err, bot.ErrInvalidInput) {
		t.Fatalf("Normalize(long) error = %v, want ErrInvalidInput", err)
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"deep-rock-galactic", "Deep Rock Galactic"},
		{"helldivers-2", "Helldivers 2"},
		{"valorant", "Valorant"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Display(tt.input); got != tt.want {
			t.Errorf("Display(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
