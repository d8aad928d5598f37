package defs

import "github.com/bwmarrin/discordgo"

var PunishStatus = &discordgo.ApplicationCommand{
	Name:        "punish_status",
	Description: "Display punishment engine and system status",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "处罚状态",
		discordgo.ChineseTW: "處罰狀態",
	},
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "显示处罚引擎和系统的状态信息",
		discordgo.ChineseTW: "顯示處罰引擎和系統的狀態信息",
	},
}

var ReloadConfig = &discordgo.ApplicationCommand{
	Name:        "reload-config",
	Description: "Reload bot configuration file (developers only)",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "重载配置",
		discordgo.ChineseTW: "重載配置",
	},
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "重新加载机器人配置文件 (仅限开发者)",
		discordgo.ChineseTW: "重新加載機器人配置文件 (僅限開發者)",
	},
}
