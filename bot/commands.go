package bot

import (
	"log"
	"sort"
	"sync"

	"punish-bot/model"

	"github.com/bwmarrin/discordgo"
)

// commandRegistry tracks the application commands registered per guild. Refreshes run
// concurrently after a config reload, so every access goes through mu.
type commandRegistry struct {
	mu     sync.Mutex
	guilds map[string][]*discordgo.ApplicationCommand
}

// set replaces the commands recorded for guildID.
func (r *commandRegistry) set(guildID string, cmds []*discordgo.ApplicationCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.guilds == nil {
		r.guilds = make(map[string][]*discordgo.ApplicationCommand)
	}
	r.guilds[guildID] = cmds
}

// take removes and returns the commands recorded for guildID.
func (r *commandRegistry) take(guildID string) []*discordgo.ApplicationCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmds := r.guilds[guildID]
	delete(r.guilds, guildID)
	return cmds
}

func (r *commandRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, cmds := range r.guilds {
		n += len(cmds)
	}
	return n
}

type commandDeleter interface {
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// deleteCommands removes cmds from guildID and returns how many deletions failed.
func deleteCommands(api commandDeleter, appID, guildID string, cmds []*discordgo.ApplicationCommand) int {
	failed := 0
	for _, cmd := range cmds {
		if err := api.ApplicationCommandDelete(appID, guildID, cmd.ID); err != nil {
			log.Printf("Cannot delete '%v' command in guild %s: %v", cmd.Name, guildID, err)
			failed++
		}
	}
	return failed
}

// disabledGuilds lists the guilds enabled in prev that are missing or disabled in next.
func disabledGuilds(prev, next map[string]model.ServerConfig) []string {
	var ids []string
	for key, sc := range prev {
		if !sc.Enable {
			continue
		}
		if now, ok := next[key]; ok && now.Enable {
			continue
		}
		ids = append(ids, sc.GuildID)
	}
	sort.Strings(ids)
	return ids
}
