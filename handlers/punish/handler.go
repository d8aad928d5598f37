// Package punish adapts the moderation slash commands onto the punishment commands.
package punish

import (
	"context"
	"log"
	"time"

	"punish-bot/bot"
	"punish-bot/message"
	"punish-bot/model"
	"punish-bot/punishment"
	"punish-bot/utils"
	"punish-bot/utils/async"

	"github.com/bwmarrin/discordgo"
)

const commandTimeout = 30 * time.Second

// Moderator is the command surface the slash commands drive.
type Moderator interface {
	ResolveTarget(ctx context.Context, identifier string) *async.Future[model.Identity]
	Ban(ctx context.Context, req punishment.Request) *async.Future[model.Punishment]
	Mute(ctx context.Context, req punishment.Request) *async.Future[model.Punishment]
	Kick(ctx context.Context, req punishment.Request) *async.Future[model.Punishment]
	Warn(ctx context.Context, req punishment.Request) *async.Future[model.Punishment]
	Note(ctx context.Context, req punishment.Request) *async.Future[model.Punishment]
	Unban(ctx context.Context, target model.Identity, lifterID string) *async.Future[model.Punishment]
	Unmute(ctx context.Context, target model.Identity, lifterID string) *async.Future[model.Punishment]
	History(ctx context.Context, target model.Identity) *async.Future[punishment.HistoryResult]
}

type creator func(ctx context.Context, req punishment.Request) *async.Future[model.Punishment]
type lifter func(ctx context.Context, target model.Identity, lifterID string) *async.Future[model.Punishment]

type command struct {
	typ      model.PunishmentType
	feedback message.Key
	create   func(m Moderator) creator
	lift     func(m Moderator) lifter
}

var commands = map[string]command{
	"ban":    {typ: model.PunishmentBan, feedback: message.FeedbackBan, create: func(m Moderator) creator { return m.Ban }},
	"mute":   {typ: model.PunishmentMute, feedback: message.FeedbackMute, create: func(m Moderator) creator { return m.Mute }},
	"kick":   {typ: model.PunishmentKick, feedback: message.FeedbackKick, create: func(m Moderator) creator { return m.Kick }},
	"warn":   {typ: model.PunishmentWarning, feedback: message.FeedbackWarn, create: func(m Moderator) creator { return m.Warn }},
	"note":   {typ: model.PunishmentNote, feedback: message.FeedbackNote, create: func(m Moderator) creator { return m.Note }},
	"unban":  {typ: model.PunishmentBan, feedback: message.FeedbackUnban, lift: func(m Moderator) lifter { return m.Unban }},
	"unmute": {typ: model.PunishmentMute, feedback: message.FeedbackUnmute, lift: func(m Moderator) lifter { return m.Unmute }},
}

// IsCommand reports whether name is handled by HandlePunishCommand.
func IsCommand(name string) bool {
	if name == "history" {
		return true
	}
	_, ok := commands[name]
	return ok
}

// HandlePunishCommand checks the caller's permission, runs the command and replies
// ephemerally with the outcome.
func HandlePunishCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	composer := b.Composer
	if i.Member == nil {
		utils.SendErrorResponse(s, i, "This command can only be used in a server.")
		return
	}

	cfg := b.GetConfig()
	serverCfg, ok := cfg.Server(i.GuildID)
	if !ok {
		utils.SendErrorResponse(s, i, "Punishments are not enabled in this server.")
		return
	}
	permissionLevel := utils.CheckPermission(i.Member.Roles, i.Member.User.ID, serverCfg.AdminRoleIDs, cfg.DeveloperUserIDs)
	if !utils.CanModerate(permissionLevel) {
		utils.SendErrorResponse(s, i, composer.RenderNow(message.ErrorNoPermission, nil).Text)
		return
	}

	data := i.ApplicationCommandData()
	opts, err := parseOptions(data.Options)
	if err != nil {
		utils.SendErrorResponse(s, i, errorMessage(composer, err, model.PunishmentNote, "").Text)
		return
	}

	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Error deferring %s response: %v", data.Name, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	reply := execute(ctx, b.Commands, composer, data.Name, opts, i.Member.User.ID)
	utils.SendFollowUp(s, i.Interaction, truncateReply(reply))
}

// execute runs the named command and returns the reply text.
func execute(ctx context.Context, m Moderator, composer *message.Composer, name string, opts ParsedOptions, actorID string) string {
	target, err := m.ResolveTarget(ctx, opts.Target).Await(ctx)
	if err != nil {
		return errorMessage(composer, err, model.PunishmentNote, opts.Target).Text
	}

	if name == "history" {
		result, err := m.History(ctx, target).Await(ctx)
		if err != nil {
			return errorMessage(composer, err, model.PunishmentNote, target.DisplayName()).Text
		}
		return result.Message.Text
	}

	cmd, ok := commands[name]
	if !ok {
		log.Printf("[Punish] Unknown command %q", name)
		return errorMessage(composer, model.ErrInvalidPunishment, model.PunishmentNote, "").Text
	}

	var p model.Punishment
	if cmd.lift != nil {
		p, err = cmd.lift(m)(ctx, target, actorID).Await(ctx)
	} else {
		p, err = cmd.create(m)(ctx, punishment.Request{
			Target:     target,
			PunisherID: actorID,
			Reason:     opts.Reason,
			Duration:   opts.Duration,
			Silent:     opts.Silent,
		}).Await(ctx)
	}
	if err != nil {
		log.Printf("[Punish] /%s on %s by %s failed: %v", name, target.ID, actorID, err)
		return errorMessage(composer, err, cmd.typ, target.DisplayName()).Text
	}

	msg, err := composer.Punishment(ctx, cmd.feedback, p).Await(ctx)
	if err != nil {
		return errorMessage(composer, err, cmd.typ, target.DisplayName()).Text
	}
	return msg.Text
}
