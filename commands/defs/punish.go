package defs

import "github.com/bwmarrin/discordgo"

var (
	targetOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "target",
		Description: "Mention, user ID or name of the member",
		DescriptionLocalizations: map[discordgo.Locale]string{
			discordgo.ChineseCN: "成员的提及、用户ID或名称",
			discordgo.ChineseTW: "成員的提及、用戶ID或名稱",
		},
		Required: true,
	}
	reasonOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason shown to the member and in the announcement",
		DescriptionLocalizations: map[discordgo.Locale]string{
			discordgo.ChineseCN: "处罚原因",
			discordgo.ChineseTW: "處罰原因",
		},
		MaxLength: 512,
	}
	durationOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duration",
		Description: "Duration such as 30m, 2h or 1d12h; permanent if empty",
		DescriptionLocalizations: map[discordgo.Locale]string{
			discordgo.ChineseCN: "时长，例如 30m、2h、1d12h；留空为永久",
			discordgo.ChineseTW: "時長，例如 30m、2h、1d12h；留空為永久",
		},
	}
	silentOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "silent",
		Description: "Announce to staff only",
		DescriptionLocalizations: map[discordgo.Locale]string{
			discordgo.ChineseCN: "仅通知管理人员",
			discordgo.ChineseTW: "僅通知管理人員",
		},
	}
)

func punishCommand(name, description, cn, tw string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.ChineseCN: cn,
			discordgo.ChineseTW: tw,
		},
		Options: options,
	}
}

var Ban = punishCommand("ban", "Ban a member", "封禁成员", "封禁成員",
	targetOption, reasonOption, durationOption, silentOption)

var Unban = punishCommand("unban", "Lift the active ban of a member", "解除成员的封禁", "解除成員的封禁",
	targetOption)

var Mute = punishCommand("mute", "Mute a member", "禁言成员", "禁言成員",
	targetOption, reasonOption, durationOption, silentOption)

var Unmute = punishCommand("unmute", "Lift the active mute of a member", "解除成员的禁言", "解除成員的禁言",
	targetOption)

var Kick = punishCommand("kick", "Kick a member", "踢出成员", "踢出成員",
	targetOption, reasonOption, silentOption)

var Warn = punishCommand("warn", "Warn a member", "警告成员", "警告成員",
	targetOption, reasonOption, silentOption)

var Note = punishCommand("note", "Record a staff note on a member", "为成员记录备注", "為成員記錄備註",
	targetOption, reasonOption)

var History = punishCommand("history", "Show the punishment history of a member", "查看成员的处罚记录", "查看成員的處罰記錄",
	targetOption)
