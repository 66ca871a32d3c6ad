package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadExampleINI(t *testing.T) {
	path := filepath.Join("..", "..", "config_example.ini")
	conf, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	settings, err := conf.Settings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.Platform != "discord" || settings.StoreBackend != "sqlite" {
		t.Fatalf("unexpected platform/backend: %s/%s", settings.Platform, settings.StoreBackend)
	}
	if settings.StoreTimeout != 5*time.Second {
		t.Fatalf("expected 5s store timeout, got %s", settings.StoreTimeout)
	}
	if settings.SuggestLimit != 25 {
		t.Fatalf("expected suggest limit 25, got %d", settings.SuggestLimit)
	}
	if !settings.UsesDiscord() || settings.UsesTelegram() {
		t.Fatalf("expected discord only")
	}
}

func TestDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	conf, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := conf.GetString("HealthListen"); got != ":8080" {
		t.Fatalf("expected default listen :8080, got %q", got)
	}
	if got := conf.GetInt("LFGCooldownSec"); got != 60 {
		t.Fatalf("expected default cooldown 60, got %d", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.ini", "DiscordToken = from-file\nLFGCooldownSec = 10\n")
	t.Setenv("LFGBOT_LFGCOOLDOWNSEC", "99")

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := conf.GetInt("LFGCooldownSec"); got != 99 {
		t.Fatalf("expected env override 99, got %d", got)
	}
	if got := conf.GetString("DiscordToken"); got != "from-file" {
		t.Fatalf("expected file token, got %q", got)
	}
}

func TestDotEnvAndLegacyNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "DISCORD_BOT_TOKEN=legacy-token\nGUILD_ID=123\n")
	path := writeFile(t, dir, "config.ini", "Platform = discord\n")
	t.Cleanup(func() {
		os.Unsetenv("DISCORD_BOT_TOKEN")
		os.Unsetenv("GUILD_ID")
	})

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	settings, err := conf.Settings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.DiscordToken != "legacy-token" || settings.DiscordGuildID != "123" {
		t.Fatalf("legacy env not applied: %+v", settings)
	}
}

func TestSettingsValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"missing discord token", "Platform = discord\n", "DiscordToken"},
		{"missing telegram token", "Platform = telegram\n", "TelegramToken"},
		{"both needs both", "Platform = both\nDiscordToken = x\n", "TelegramToken"},
		{"bad platform", "Platform = irc\n", "Platform"},
		{"postgres needs dsn", "DiscordToken = x\nStoreBackend = postgres\n", "PostgresDSN"},
		{"mongo needs uri", "DiscordToken = x\nStoreBackend = mongo\n", "MongoURI"},
		{"suggest limit too big", "DiscordToken = x\nSuggestLimit = 50\n", "SuggestLimit"},
		{"bad log format", "DiscordToken = x\nLogFormat = xml\n", "LogFormat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.ini", tt.content)
			conf, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			_, err = conf.Settings()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("expected error about %s, got %v", tt.field, err)
			}
		})
	}
}

func TestGetStringSliceSplitsCommas(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.ini", "Extra = a, b,,c\n")
	conf, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := conf.GetStringSlice("Extra")
	if strings.Join(got, "|") != "a|b|c" {
		t.Fatalf("unexpected slice: %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.ini")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
