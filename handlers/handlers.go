package handlers

import (
	"log"
	"time"

	"punish-bot/bot"
	"punish-bot/commands/defs"
	"punish-bot/handlers/admin"
	"punish-bot/handlers/punish"
	"punish-bot/utils"

	"github.com/bwmarrin/discordgo"
)

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b, newGate(b))
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	handlers := map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		defs.PunishStatus.Name: func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			PunishStatusHandler(s, i, b)
		},
		defs.ReloadConfig.Name: func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			admin.HandleReloadConfig(s, i, b)
		},
	}
	for _, def := range []*discordgo.ApplicationCommand{
		defs.Ban, defs.Unban, defs.Mute, defs.Unmute, defs.Kick, defs.Warn, defs.Note, defs.History,
	} {
		if !punish.IsCommand(def.Name) {
			log.Printf("No punish handler for command %s", def.Name)
			continue
		}
		handlers[def.Name] = func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			punish.HandlePunishCommand(s, i, b)
		}
	}
	return handlers
}

func newGate(b *bot.Bot) *Gate {
	return &Gate{
		Checker:  b.Commands,
		Enforcer: b.Service,
		Recorder: b.Resolver,
		Composer: b.Composer,
		Metrics:  b.Metrics,
		Enabled: func(guildID string) bool {
			_, ok := b.GetConfig().Server(guildID)
			return ok
		},
		Timeout:        b.GetConfig().StoreTimeout * 2,
		NoticeCooldown: time.Minute,
	}
}

func addHandlers(b *bot.Bot, gate *Gate) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if err := gate.OnMemberJoin(m.GuildID, m.User); err != nil {
			log.Printf("[Gate] Join gate failed in guild %s: %v", m.GuildID, err)
			utils.LogAsync(b.GetConfig().LogWebhookURL, utils.Warn, "Gate", "Join", err.Error())
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if _, err := gate.OnMessage(s, m.Message); err != nil {
			log.Printf("[Gate] Chat gate failed in guild %s: %v", m.GuildID, err)
			utils.LogAsync(b.GetConfig().LogWebhookURL, utils.Warn, "Gate", "Chat", err.Error())
		}
	})
}
