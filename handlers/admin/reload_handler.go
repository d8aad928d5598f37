package admin

import (
	"fmt"

	"punish-bot/bot"
	"punish-bot/utils"

	"github.com/bwmarrin/discordgo"
)

func HandleReloadConfig(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	var userID string
	if i.Member != nil {
		userID = i.Member.User.ID
	} else if i.User != nil {
		userID = i.User.ID
	}
	permissionLevel := utils.CheckPermission(nil, userID, nil, b.GetConfig().DeveloperUserIDs)
	if permissionLevel != utils.DeveloperPermission {
		utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
		return
	}

	if err := b.ReloadConfig(); err != nil {
		utils.SendErrorResponse(s, i, fmt.Sprintf("❌ Failed to reload configuration: %v", err))
		return
	}
	utils.SendSimpleResponse(s, i, "✅ Configuration reloaded.")
}
