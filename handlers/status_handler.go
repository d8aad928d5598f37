package handlers

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"punish-bot/bot"
	"punish-bot/model"
	"punish-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// engineStatus is what /punish_status reports about the punishment engine.
type engineStatus struct {
	ActiveBans   int
	ActiveMutes  int
	QueuedTasks  int
	DatabaseSize uint64
	Guilds       int
	Latency      time.Duration
}

type hostStatus struct {
	Platform   string
	Kernel     string
	CPUs       int
	CPUPercent float64
	MemPercent float64
	MemUsed    uint64
	MemTotal   uint64
}

func collectHostStatus() hostStatus {
	var hs hostStatus
	hs.CPUs, _ = cpu.Counts(true)
	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		hs.CPUPercent = percent[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		hs.MemPercent, hs.MemUsed, hs.MemTotal = vm.UsedPercent, vm.Used, vm.Total
	}
	if info, err := host.Info(); err == nil {
		hs.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		hs.Kernel = info.KernelVersion
	}
	return hs
}

func statusEmbed(es engineStatus, hs hostStatus, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Punishment status",
		Color: utils.ColorBlurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🔨 Active bans", Value: humanize.Comma(int64(es.ActiveBans)), Inline: true},
			{Name: "🔇 Active mutes", Value: humanize.Comma(int64(es.ActiveMutes)), Inline: true},
			{Name: "📥 Queued tasks", Value: fmt.Sprintf("%d", es.QueuedTasks), Inline: true},
			{Name: "🗃️ Database size", Value: humanize.Bytes(es.DatabaseSize), Inline: true},
			{Name: "🌍 Guilds", Value: fmt.Sprintf("%d", es.Guilds), Inline: true},
			{Name: "⏱️ WebSocket latency", Value: es.Latency.String(), Inline: true},
			{Name: "💻 OS", Value: valueOrDash(hs.Platform), Inline: true},
			{Name: "🔧 Kernel", Value: valueOrDash(hs.Kernel), Inline: true},
			{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
			{Name: "🔥 CPU", Value: fmt.Sprintf("%.1f%% of %d", hs.CPUPercent, hs.CPUs), Inline: true},
			{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%s / %s)", hs.MemPercent, humanize.Bytes(hs.MemUsed), humanize.Bytes(hs.MemTotal)), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Status at " + now.Format("15:04"),
		},
	}
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// PunishStatusHandler reports active punishment counts, queue depth and host statistics.
func PunishStatusHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	cfg := b.GetConfig()
	var roles []string
	var userID string
	if i.Member != nil {
		roles, userID = i.Member.Roles, i.Member.User.ID
	}
	serverCfg, _ := cfg.Server(i.GuildID)
	if !utils.CanModerate(utils.CheckPermission(roles, userID, serverCfg.AdminRoleIDs, cfg.DeveloperUserIDs)) {
		utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	defer cancel()

	es := engineStatus{
		QueuedTasks: b.Pool.Pending(),
		Guilds:      len(s.State.Guilds),
		Latency:     s.HeartbeatLatency(),
	}
	counts, err := b.Store.CountActive(ctx, time.Now())
	if err != nil {
		log.Printf("Failed to count active punishments: %v", err)
	}
	es.ActiveBans, es.ActiveMutes = counts[model.PunishmentBan], counts[model.PunishmentMute]
	if info, err := os.Stat(cfg.DatabasePath); err == nil {
		es.DatabaseSize = uint64(info.Size())
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{statusEmbed(es, collectHostStatus(), time.Now())},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error responding to punish_status: %v", err)
	}
}
