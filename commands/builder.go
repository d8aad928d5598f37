package commands

import (
	"punish-bot/commands/defs"
	"punish-bot/model"

	"github.com/bwmarrin/discordgo"
)

var moderatorPermission int64 = discordgo.PermissionModerateMembers

// GenerateCommands returns the slash commands registered in a guild. Moderation commands
// are hidden from members without the moderate permission; the admin roles configured
// for the guild are still checked when a command runs.
func GenerateCommands(serverCfg *model.ServerConfig) []*discordgo.ApplicationCommand {
	moderation := []*discordgo.ApplicationCommand{
		defs.Ban, defs.Unban, defs.Mute, defs.Unmute,
		defs.Kick, defs.Warn, defs.Note, defs.History,
		defs.PunishStatus,
	}

	cmds := make([]*discordgo.ApplicationCommand, 0, len(moderation)+1)
	for _, def := range moderation {
		cmd := *def
		if len(serverCfg.AdminRoleIDs) > 0 {
			cmd.DefaultMemberPermissions = &moderatorPermission
		}
		cmds = append(cmds, &cmd)
	}
	return append(cmds, defs.ReloadConfig)
}
