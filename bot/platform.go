package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"punish-bot/message"
	"punish-bot/model"
	"punish-bot/punishment"
	"punish-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// maxAuditReason is Discord's limit for the audit log reason header.
const maxAuditReason = 512

// DiscordAPI is the part of *discordgo.Session the platform drives.
type DiscordAPI interface {
	utils.DirectMessenger
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Platform enforces punishments across every enabled guild. A user's membership in a
// guild is one session; disconnecting it kicks them from that guild.
type Platform struct {
	api     DiscordAPI
	servers func() map[string]model.ServerConfig
}

func NewPlatform(api DiscordAPI, servers func() map[string]model.ServerConfig) *Platform {
	return &Platform{api: api, servers: servers}
}

func (p *Platform) enabledServers() []model.ServerConfig {
	var out []model.ServerConfig
	for _, sc := range p.servers() {
		if sc.Enable {
			out = append(out, sc)
		}
	}
	return out
}

// Sessions returns the memberships of target in enabled guilds.
func (p *Platform) Sessions(ctx context.Context, target model.Identity) ([]punishment.Session, error) {
	var sessions []punishment.Session
	var errs []error
	for _, sc := range p.enabledServers() {
		_, err := p.api.GuildMember(sc.GuildID, target.ID, discordgo.WithContext(ctx))
		if err != nil {
			if isUnknownMember(err) {
				continue
			}
			errs = append(errs, fmt.Errorf("guild %s: %w", sc.GuildID, err))
			continue
		}
		sessions = append(sessions, &memberSession{api: p.api, guild: sc, userID: target.ID})
	}
	if len(sessions) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		log.Printf("[Platform] Skipping membership lookup of %s: %v", target.ID, err)
	}
	return sessions, nil
}

// Broadcast posts msg to every guild's announcement channel, or only to the staff
// channel when silent.
func (p *Platform) Broadcast(ctx context.Context, msg message.Message, silent bool) error {
	var errs []error
	for _, sc := range p.enabledServers() {
		channelID := sc.AnnounceChannelID
		if silent {
			channelID = sc.StaffChannelID
		}
		if channelID == "" {
			continue
		}
		_, err := p.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content:         msg.Text,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		}, discordgo.WithContext(ctx))
		if err != nil {
			errs = append(errs, fmt.Errorf("guild %s channel %s: %w", sc.GuildID, channelID, err))
		}
	}
	return errors.Join(errs...)
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && (restErr.Message.Code == discordgo.ErrCodeUnknownMember || restErr.Message.Code == discordgo.ErrCodeUnknownUser) {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

type memberSession struct {
	api    DiscordAPI
	guild  model.ServerConfig
	userID string
}

func (s *memberSession) ID() string {
	return s.guild.GuildID
}

func (s *memberSession) text(msg message.Message) string {
	if s.guild.Name == "" {
		return msg.Text
	}
	return fmt.Sprintf("**[%s]** %s", s.guild.Name, msg.Text)
}

// Send notifies the member by DM.
func (s *memberSession) Send(ctx context.Context, msg message.Message) error {
	return utils.SendPrivateMessage(s.api, s.userID, s.text(msg), discordgo.WithContext(ctx))
}

// Disconnect DMs the member and removes them from the guild. Members with closed DMs
// are still removed.
func (s *memberSession) Disconnect(ctx context.Context, msg message.Message) error {
	if err := s.Send(ctx, msg); err != nil {
		log.Printf("[Platform] Could not notify %s before removal from %s: %v", s.userID, s.guild.GuildID, err)
	}
	reason := msg.Text
	if len(reason) > maxAuditReason {
		reason = strings.ToValidUTF8(reason[:maxAuditReason], "")
	}
	if err := s.api.GuildMemberDeleteWithReason(s.guild.GuildID, s.userID, reason, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to remove %s from guild %s: %w", s.userID, s.guild.GuildID, err)
	}
	return nil
}
