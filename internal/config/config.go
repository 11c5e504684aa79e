// Package config loads the bot configuration from the environment, reading a
// .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN,required,notEmpty"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"."`
	DeveloperID   string `env:"DEVELOPER_ID"`

	JinglesDir string `env:"JINGLES_DIR" envDefault:"jingles"`
	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"json"`
	StoragePath    string `env:"STORAGE_PATH" envDefault:"data/jingler.json"`
	DatabaseDSN    string `env:"DATABASE_DSN" envDefault:"data/jingler.db"`

	UseServerAllowList bool     `env:"USE_SERVER_ALLOWLIST" envDefault:"false"`
	ServerAllowList    []string `env:"SERVER_ALLOWLIST" envSeparator:","`

	MaxJingleFileSizeKB    int64 `env:"MAX_JINGLE_FILESIZE_KB" envDefault:"1024"`
	MaxJingleLengthSeconds int   `env:"MAX_JINGLE_LENGTH_SECONDS" envDefault:"10"`
	MaxJingleTitleLength   int   `env:"MAX_JINGLE_TITLE_LENGTH" envDefault:"65"`

	MessageLengthLimit int           `env:"MESSAGE_LENGTH_LIMIT" envDefault:"1990"`
	PaginationTimeout  time.Duration `env:"PAGINATION_TIMEOUT" envDefault:"120s"`
	ReplyTimeout       time.Duration `env:"REPLY_TIMEOUT" envDefault:"120s"`
	UploadTimeout      time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"240s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE" envDefault:"data/logs/jingler.log"`

	dotenv bool
}

// Load reads .env, if present, then parses the environment.
func Load() (*Config, error) {
	dotenv := godotenv.Load() == nil

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.dotenv = dotenv
	return &cfg, nil
}

// DotEnvLoaded reports whether values came from a .env file.
func (c *Config) DotEnvLoaded() bool {
	return c.dotenv
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case BackendJSON, BackendSQLite, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	if c.CommandPrefix == "" {
		errs = append(errs, errors.New("command prefix is empty"))
	}
	if c.MaxJingleFileSizeKB <= 0 {
		errs = append(errs, errors.New("max jingle file size must be positive"))
	}
	if c.MaxJingleLengthSeconds <= 0 {
		errs = append(errs, errors.New("max jingle length must be positive"))
	}
	if c.MaxJingleTitleLength <= 0 {
		errs = append(errs, errors.New("max jingle title length must be positive"))
	}
	if c.MessageLengthLimit <= 0 {
		errs = append(errs, errors.New("message length limit must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"pagination": c.PaginationTimeout,
		"reply":      c.ReplyTimeout,
		"upload":     c.UploadTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s timeout must be positive", name))
		}
	}
	if c.UseServerAllowList && len(c.ServerAllowList) == 0 {
		errs = append(errs, errors.New("server allow-list is enabled but empty"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// AllowList returns the guild IDs commands and joins are limited to, or nil
// when every guild is allowed.
func (c *Config) AllowList() []string {
	if !c.UseServerAllowList {
		return nil
	}
	return c.ServerAllowList
}

// MaxJingleFileSize is the upload limit in bytes.
func (c *Config) MaxJingleFileSize() int64 {
	return c.MaxJingleFileSizeKB * 1024
}

// MaxJingleLength is the upload duration limit.
func (c *Config) MaxJingleLength() time.Duration {
	return time.Duration(c.MaxJingleLengthSeconds) * time.Second
}
