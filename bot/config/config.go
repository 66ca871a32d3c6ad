package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/liuran001/LFGBot-Go/bot"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// EnvPrefix prefixes every environment override, e.g. LFGBOT_DISCORDTOKEN.
const EnvPrefix = "LFGBOT"

// Config wraps viper and provides typed accessors.
type Config struct {
	v *viper.Viper
}

var _ bot.Config = (*Config)(nil)

// Load reads .env next to the config file, then the config file itself.
// INI files are parsed with ini.v1; other extensions go through viper.
// Environment variables take precedence over file values. An empty path
// loads defaults and environment only.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)
	bindLegacyEnv(v)

	switch {
	case path == "":
	case strings.EqualFold(filepath.Ext(path), ".ini"):
		if err := loadINI(v, path); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	default:
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Platform", "discord")
	v.SetDefault("BotAPI", "https://api.telegram.org")
	v.SetDefault("StoreBackend", "sqlite")
	v.SetDefault("Database", "data/lfgbot.db")
	v.SetDefault("MongoDatabase", "lfgbot")
	v.SetDefault("MongoCollection", "lfg_subscriptions")
	v.SetDefault("StoreTimeoutSec", 5)
	v.SetDefault("BreakerMaxFailures", 5)
	v.SetDefault("BreakerOpenSec", 30)
	v.SetDefault("ActiveGamesCacheSec", 30)
	v.SetDefault("GamesFile", "")
	v.SetDefault("SuggestLimit", 25)
	v.SetDefault("LFGCooldownSec", 60)
	v.SetDefault("WorkerPoolSize", 8)
	v.SetDefault("RateLimitPerSecond", 1.0)
	v.SetDefault("RateLimitBurst", 3)
	v.SetDefault("HealthListen", ":8080")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("LogSource", false)
	v.SetDefault("LogDir", "")
	v.SetDefault("GormLogLevel", "warn")
	v.SetDefault("DBMaxOpenConns", 1)
	v.SetDefault("DBMaxIdleConns", 1)
	v.SetDefault("DBConnMaxLifetimeSec", 3600)
}

// bindLegacyEnv accepts the variable names of .env files written for
// earlier deployments of the bot.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("DiscordToken", EnvPrefix+"_DISCORDTOKEN", "DISCORD_BOT_TOKEN")
	_ = v.BindEnv("DiscordGuildID", EnvPrefix+"_DISCORDGUILDID", "GUILD_ID")
	_ = v.BindEnv("TelegramToken", EnvPrefix+"_TELEGRAMTOKEN", "BOT_TOKEN")
}

// GetString returns a string value.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns an int value.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 returns a float64 value.
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool returns a bool value.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice returns a slice of strings; comma separated values are split.
func (c *Config) GetStringSlice(key string) []string {
	raw := c.v.GetStringSlice(key)
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Settings is the typed, validated view of the configuration.
type Settings struct {
	Platform       string `validate:"oneof=discord telegram both"`
	DiscordToken   string `validate:"required_unless=Platform telegram"`
	DiscordAppID   string
	DiscordGuildID string
	TelegramToken  string `validate:"required_unless=Platform discord"`
	BotAPI         string `validate:"omitempty,url"`

	StoreBackend    string `validate:"oneof=sqlite postgres mongo"`
	Database        string `validate:"required_if=StoreBackend sqlite"`
	PostgresDSN     string `validate:"required_if=StoreBackend postgres"`
	MongoURI        string `validate:"required_if=StoreBackend mongo"`
	MongoDatabase   string `validate:"required_if=StoreBackend mongo"`
	MongoCollection string

	StoreTimeout       time.Duration `validate:"gt=0"`
	BreakerMaxFailures int           `validate:"min=1"`
	BreakerOpen        time.Duration `validate:"gt=0"`
	ActiveGamesCache   time.Duration

	GamesFile    string
	SuggestLimit int `validate:"min=1,max=25"`
	LFGCooldown  time.Duration

	WorkerPoolSize     int     `validate:"min=1"`
	RateLimitPerSecond float64 `validate:"gt=0"`
	RateLimitBurst     int     `validate:"min=1"`

	HealthListen string

	LogLevel     string `validate:"oneof=debug info warn warning error"`
	LogFormat    string `validate:"oneof=text json tint color"`
	LogSource    bool
	LogDir       string
	GormLogLevel string

	DBMaxOpenConns    int `validate:"min=0"`
	DBMaxIdleConns    int `validate:"min=0"`
	DBConnMaxLifetime time.Duration
}

// UsesDiscord reports whether the Discord transport should run.
func (s *Settings) UsesDiscord() bool {
	return s.Platform == "discord" || s.Platform == "both"
}

// UsesTelegram reports whether the Telegram transport should run.
func (s *Settings) UsesTelegram() bool {
	return s.Platform == "telegram" || s.Platform == "both"
}

var validate = validator.New()

// Settings decodes and validates the configuration.
func (c *Config) Settings() (*Settings, error) {
	s := &Settings{
		Platform:       strings.ToLower(c.GetString("Platform")),
		DiscordToken:   c.GetString("DiscordToken"),
		DiscordAppID:   c.GetString("DiscordAppID"),
		DiscordGuildID: c.GetString("DiscordGuildID"),
		TelegramToken:  c.GetString("TelegramToken"),
		BotAPI:         c.GetString("BotAPI"),

		StoreBackend:    strings.ToLower(c.GetString("StoreBackend")),
		Database:        c.GetString("Database"),
		PostgresDSN:     c.GetString("PostgresDSN"),
		MongoURI:        c.GetString("MongoURI"),
		MongoDatabase:   c.GetString("MongoDatabase"),
		MongoCollection: c.GetString("MongoCollection"),

		StoreTimeout:       seconds(c.GetInt("StoreTimeoutSec")),
		BreakerMaxFailures: c.GetInt("BreakerMaxFailures"),
		BreakerOpen:        seconds(c.GetInt("BreakerOpenSec")),
		ActiveGamesCache:   seconds(c.GetInt("ActiveGamesCacheSec")),

		GamesFile:    c.GetString("GamesFile"),
		SuggestLimit: c.GetInt("SuggestLimit"),
		LFGCooldown:  seconds(c.GetInt("LFGCooldownSec")),

		WorkerPoolSize:     c.GetInt("WorkerPoolSize"),
		RateLimitPerSecond: c.GetFloat64("RateLimitPerSecond"),
		RateLimitBurst:     c.GetInt("RateLimitBurst"),

		HealthListen: c.GetString("HealthListen"),

		LogLevel:     strings.ToLower(c.GetString("LogLevel")),
		LogFormat:    strings.ToLower(c.GetString("LogFormat")),
		LogSource:    c.GetBool("LogSource"),
		LogDir:       c.GetString("LogDir"),
		GormLogLevel: c.GetString("GormLogLevel"),

		DBMaxOpenConns:    c.GetInt("DBMaxOpenConns"),
		DBMaxIdleConns:    c.GetInt("DBMaxIdleConns"),
		DBConnMaxLifetime: seconds(c.GetInt("DBConnMaxLifetimeSec")),
	}

	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// loadINI copies the root section into viper as file-level values so
// that environment variables still override them.
func loadINI(v *viper.Viper, path string) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return err
	}
	for _, key := range cfg.Section("").Keys() {
		v.SetDefault(key.Name(), key.Value())
	}
	return nil
}

func loadDotEnv(configPath string) error {
	dir := "."
	if configPath != "" {
		dir = filepath.Dir(configPath)
	}
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err != nil {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("load %s: %w", envPath, err)
	}
	return nil
}
