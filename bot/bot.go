package bot

import (
	"log"
	"sync/atomic"

	"punish-bot/commands"
	"punish-bot/config"
	"punish-bot/identity"
	"punish-bot/message"
	"punish-bot/metrics"
	"punish-bot/model"
	"punish-bot/punishment"
	"punish-bot/utils/async"
	"punish-bot/utils/database/punishments"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Bot struct {
	Session         *discordgo.Session
	commands        commandRegistry
	config          atomic.Value // *model.Config
	CommandHandlers map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	DB        *sqlx.DB
	Store     *punishments.Store
	Pool      *async.Pool
	Templates *message.Templates
	Composer  *message.Composer
	Resolver  *identity.Resolver
	Platform  *Platform
	Service   *punishment.Service
	Commands  *punishment.Commands
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry

	scheduler *Scheduler
	done      chan struct{}
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

// New wires the punishment engine onto a Discord session.
func New(cfg *model.Config, db *sqlx.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	dg.StateEnabled = true

	b := &Bot{
		Session:  dg,
		DB:       db,
		Registry: prometheus.NewRegistry(),
		done:     make(chan struct{}),
	}
	b.config.Store(cfg)

	b.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	b.Metrics = metrics.New(b.Registry)

	b.Pool = async.NewPool(cfg.Workers, cfg.QueueSize)
	b.Pool.OnReject = func(error) { b.Metrics.IncrementPoolRejection() }

	b.Store = punishments.NewStore(db, cfg.StoreTimeout)

	b.Resolver = identity.NewResolver(b.Store, dg, b.Pool)
	b.Resolver.GuildIDs = b.enabledGuildIDs

	b.Templates = message.DefaultTemplates()
	b.Templates.Override(cfg.Messages)
	b.Composer = message.NewComposer(b.Templates, b.Resolver, cfg.ResolveTimeout)
	b.Composer.OnFallback = func(string, error) { b.Metrics.IncrementPlaceholderFallback() }

	b.Platform = NewPlatform(dg, func() map[string]model.ServerConfig { return b.GetConfig().ServerConfigs })
	b.Service = punishment.NewService(b.Store, b.Platform, b.Composer, b.Pool, b.Metrics)
	b.Service.LogWebhookURL = cfg.LogWebhookURL
	b.Commands = punishment.NewCommands(b.Service, b.Resolver)

	b.scheduler = NewScheduler(b)
	return b, nil
}

func (b *Bot) enabledGuildIDs() []string {
	var ids []string
	for _, sc := range b.GetConfig().ServerConfigs {
		if sc.Enable {
			ids = append(ids, sc.GuildID)
		}
	}
	return ids
}

func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	close(b.done)

	b.scheduler.Stop()
	b.Session.Close()
	b.Pool.Close()
}

func (b *Bot) RefreshCommands(guildID string) {
	serverCfg, ok := b.GetConfig().ServerConfigs[guildID]
	if !ok {
		log.Printf("Could not find server config for guild: %s", guildID)
		return
	}
	log.Printf("Updating commands for guild %s", serverCfg.GuildID)

	cmds := commands.GenerateCommands(&serverCfg)
	log.Printf("Registering %d new commands for guild %s...", len(cmds), serverCfg.GuildID)
	registeredCmds, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, serverCfg.GuildID, cmds)
	if err != nil {
		log.Printf("cannot update commands for guild '%s': %v", serverCfg.GuildID, err)
		return
	}
	b.commands.set(serverCfg.GuildID, registeredCmds)
}

// ReloadConfig re-reads the environment and punish config, then applies message
// overrides and refreshes guild commands. Pool and store settings need a restart.
func (b *Bot) ReloadConfig() error {
	log.Println("Reloading configuration...")
	newCfg, err := config.Load()
	if err != nil {
		log.Printf("Error reloading config: %v", err)
		return err
	}

	oldCfg := b.GetConfig()
	b.config.Store(newCfg)
	b.Templates.Override(newCfg.Messages)
	log.Println("Configuration reloaded successfully.")

	if newCfg.DisableCommandSet {
		return nil
	}
	for _, guildID := range disabledGuilds(oldCfg.ServerConfigs, newCfg.ServerConfigs) {
		log.Printf("Guild %s is no longer enabled, removing its commands", guildID)
		go b.UnregisterCommands(guildID)
	}

	log.Println("Refreshing commands for all guilds...")
	for _, serverCfg := range newCfg.ServerConfigs {
		if serverCfg.Enable {
			go b.RefreshCommands(serverCfg.GuildID)
		}
	}

	return nil
}
