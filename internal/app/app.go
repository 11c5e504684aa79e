// Package app wires the bot together.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/keshon/jingler/internal/command"
	"github.com/keshon/jingler/internal/command/core"
	"github.com/keshon/jingler/internal/command/guild"
	"github.com/keshon/jingler/internal/command/jingles"
	"github.com/keshon/jingler/internal/command/user"
	"github.com/keshon/jingler/internal/config"
	"github.com/keshon/jingler/internal/discord"
	"github.com/keshon/jingler/internal/jingle"
	"github.com/keshon/jingler/internal/logger"
	"github.com/keshon/jingler/internal/middleware"
	"github.com/keshon/jingler/internal/player"
	"github.com/keshon/jingler/internal/settings"
	"github.com/keshon/jingler/internal/storage"
	"github.com/keshon/jingler/internal/storage/sqlstore"
	"github.com/keshon/jingler/internal/voice"
	"github.com/keshon/jingler/pkg/cmd"
)

// Store is the persistence the bot needs: settings records plus the
// per-guild command history.
type Store interface {
	settings.Store
	command.History
}

// CreateApp creates the fx application with all modules.
func CreateApp() fx.Option {
	return fx.Options(
		fx.NopLogger,
		fx.Provide(
			config.Load,
			provideLogger,
			provideStore,
			provideCatalog,
			provideSettings,
			provideSession,
			provideGateway,
			provideTransport,
			provideOrchestrator,
			cmd.NewRegistry,
			provideEnv,
			provideBot,
		),
		fx.Invoke(registerCommands, registerLifecycle),
	)
}

func provideLogger(cfg *config.Config) zerolog.Logger {
	log := logger.New(cfg.LogLevel, cfg.LogFile)
	if !cfg.DotEnvLoaded() {
		log.Info().Msg("No .env file found, using environment variables")
	}
	return log
}

func provideStore(lc fx.Lifecycle, cfg *config.Config, log zerolog.Logger) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.StorageBackend {
	case config.BackendSQLite, config.BackendPostgres:
		store, err = sqlstore.Open(cfg.StorageBackend, cfg.DatabaseDSN, log)
	default:
		var s *storage.Storage
		s, err = storage.New(cfg.StoragePath, log)
		if err == nil {
			log.Info().Int("guilds", len(s.Guilds())).Str("path", cfg.StoragePath).Msg("Settings loaded")
			store = s
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageBackend, err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Info().Msg("Closing settings store")
			return store.Close()
		},
	})
	return store, nil
}

func provideCatalog(cfg *config.Config, log zerolog.Logger) (*jingle.Catalog, error) {
	if err := os.MkdirAll(cfg.JinglesDir, 0755); err != nil {
		return nil, fmt.Errorf("create jingles folder: %w", err)
	}
	c := jingle.NewCatalog(cfg.JinglesDir, log)
	if _, err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func provideSettings(store Store, catalog *jingle.Catalog) *settings.Service {
	return settings.NewService(store, catalog)
}

func provideSession(cfg *config.Config) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create Discord session: %w", err)
	}
	return s, nil
}

func provideGateway(s *discordgo.Session, log zerolog.Logger) *discord.Gateway {
	return discord.NewGateway(s, log)
}

func provideTransport(s *discordgo.Session, cfg *config.Config, log zerolog.Logger) *voice.Transport {
	return voice.NewTransport(s, cfg.FFmpegPath, log)
}

func provideOrchestrator(catalog *jingle.Catalog, service *settings.Service, transport *voice.Transport, log zerolog.Logger) *player.Orchestrator {
	return player.New(catalog, service, transport, log)
}

func provideEnv(
	cfg *config.Config,
	gateway *discord.Gateway,
	catalog *jingle.Catalog,
	service *settings.Service,
	orchestrator *player.Orchestrator,
	store Store,
	registry *cmd.Registry,
	log zerolog.Logger,
) *command.Env {
	return &command.Env{
		Prefix:    cfg.CommandPrefix,
		Chat:      gateway,
		Reactions: gateway,
		Messages:  gateway,
		Voice:     gateway,
		Download:  gateway,
		Catalog:   catalog,
		Settings:  service,
		Player:    orchestrator,
		History:   store,
		Registry:  registry,
		Limits: jingle.Limits{
			MaxFileSize:    cfg.MaxJingleFileSize(),
			MaxLength:      cfg.MaxJingleLength(),
			MaxTitleLength: cfg.MaxJingleTitleLength,
		},
		MessageLimit:      cfg.MessageLengthLimit,
		PaginationTimeout: cfg.PaginationTimeout,
		ReplyTimeout:      cfg.ReplyTimeout,
		UploadTimeout:     cfg.UploadTimeout,
		Log:               log.With().Str("component", "command").Logger(),
	}
}

func provideBot(s *discordgo.Session, gateway *discord.Gateway, registry *cmd.Registry, orchestrator *player.Orchestrator, cfg *config.Config, log zerolog.Logger) *discord.Bot {
	return discord.NewBot(s, gateway, registry, orchestrator, discord.Options{
		Prefix:    cfg.CommandPrefix,
		AllowList: cfg.AllowList(),
	}, log)
}

// guildFree commands also answer in direct messages.
var guildFree = map[string]bool{"help": true, "ping": true}

func registerCommands(env *command.Env, registry *cmd.Registry, cfg *config.Config, log zerolog.Logger) error {
	var all []cmd.Command
	all = append(all, core.Commands(env)...)
	all = append(all, jingles.Commands(env)...)
	all = append(all, guild.Commands(env)...)
	all = append(all, user.Commands(env)...)

	for _, c := range all {
		var mws []cmd.Middleware
		if !guildFree[c.Name()] {
			mws = append(mws, middleware.WithGuildOnly())
		}
		mws = append(mws, middleware.WithAllowList(cfg.AllowList()))
		if c.Name() == "history" && cfg.DeveloperID != "" {
			mws = append(mws, middleware.WithDeveloperOnly(env, cfg.DeveloperID))
		}
		mws = append(mws, middleware.WithCommandLogger(log, env.History))

		if err := registry.Register(c, mws...); err != nil {
			return err
		}
	}
	log.Info().Int("commands", len(all)).Str("prefix", cfg.CommandPrefix).Msg("Commands registered")
	return nil
}

func registerLifecycle(lc fx.Lifecycle, bot *discord.Bot, log zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return bot.Open()
		},
		OnStop: func(context.Context) error {
			log.Info().Msg("Shutting down Discord bot")
			return bot.Close()
		},
	})
}
