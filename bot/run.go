package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"punish-bot/api"
	"punish-bot/utils"
)

// Run opens the gateway, registers guild commands and starts the expiry sweep and status
// API. It blocks until the process is interrupted.
func (b *Bot) Run() {
	err := b.Session.Open()
	if err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}

	cfg := b.GetConfig()
	if cfg.DisableCommandSet {
		log.Println("Command registration is disabled by environment variable.")
	} else {
		log.Println("Registering commands for enabled guilds...")
		for _, serverCfg := range cfg.ServerConfigs {
			if serverCfg.Enable {
				b.RefreshCommands(serverCfg.GuildID)
			}
		}
		log.Printf("Registered %d commands.", b.commands.count())
	}

	b.scheduler.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := api.NewServer(b.Service, b.Registry).ListenAndServe(ctx, cfg.APIAddr); err != nil {
			log.Printf("[PunishAPI] Server stopped: %v", err)
		}
	}()

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	if err := utils.LogInfo(cfg.LogWebhookURL, "System", "Startup", "Bot has started successfully."); err != nil {
		log.Printf("Failed to send startup log: %v", err)
	}
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	select {
	case <-sc:
	case <-b.done:
	}
}

// UnregisterCommands removes the commands registered in guildID.
func (b *Bot) UnregisterCommands(guildID string) {
	cmds := b.commands.take(guildID)
	if len(cmds) == 0 {
		return
	}
	if failed := deleteCommands(b.Session, b.Session.State.User.ID, guildID, cmds); failed > 0 {
		log.Printf("Failed to delete %d of %d commands in guild %s", failed, len(cmds), guildID)
	}
}
