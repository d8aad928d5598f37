package handlers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"punish-bot/identity"
	"punish-bot/message"
	"punish-bot/metrics"
	"punish-bot/model"
	"punish-bot/utils"
	"punish-bot/utils/async"

	"github.com/bwmarrin/discordgo"
)

// GateChecker answers whether a member is currently banned or muted.
type GateChecker interface {
	IsActivelyBanned(ctx context.Context, target model.Identity) *async.Future[*model.Punishment]
	IsActivelyMuted(ctx context.Context, target model.Identity) *async.Future[*model.Punishment]
}

// Enforcer applies a punishment to the target's live sessions.
type Enforcer interface {
	ApplyPunishment(ctx context.Context, p model.Punishment) *async.Future[struct{}]
}

// NameRecorder stores the name a user was last seen with.
type NameRecorder interface {
	Record(ctx context.Context, user *discordgo.User) *async.Future[model.Identity]
}

// ChatAPI is the part of the Discord session the chat gate needs.
type ChatAPI interface {
	utils.DirectMessenger
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Gate keeps banned members out and muted members quiet.
type Gate struct {
	Checker  GateChecker
	Enforcer Enforcer
	Recorder NameRecorder
	Composer *message.Composer
	Metrics  *metrics.Metrics
	Enabled  func(guildID string) bool
	Timeout  time.Duration
	// NoticeCooldown limits how often a muted member is told they are muted.
	NoticeCooldown time.Duration
	Now            func() time.Time

	mu       sync.Mutex
	notified map[string]time.Time
}

func (g *Gate) context() (context.Context, context.CancelFunc) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (g *Gate) fail(action string, err error) error {
	g.Metrics.IncrementEnforcementFailure("gate")
	return fmt.Errorf("%s: %w", action, err)
}

// record stores the user's name and returns their identity. Failing to record is logged
// and the identity is built from the Discord user instead.
func (g *Gate) record(ctx context.Context, user *discordgo.User) model.Identity {
	id, err := g.Recorder.Record(ctx, user).Await(ctx)
	if err != nil {
		log.Printf("[Gate] Failed to record name of %s: %v", user.ID, err)
		return model.Identity{ID: user.ID, Name: identity.Name(user), Resolved: true}
	}
	return id
}

// OnMemberJoin enforces an active ban on a member joining guildID.
func (g *Gate) OnMemberJoin(guildID string, user *discordgo.User) error {
	if user == nil || user.Bot || !g.Enabled(guildID) {
		return nil
	}
	ctx, cancel := g.context()
	defer cancel()

	target := g.record(ctx, user)
	ban, err := g.Checker.IsActivelyBanned(ctx, target).Await(ctx)
	if err != nil {
		return g.fail("check ban of "+user.ID, err)
	}
	if ban == nil {
		return nil
	}

	log.Printf("[Gate] Banned user %s joined guild %s, enforcing ban #%d", user.ID, guildID, ban.ID)
	if _, err := g.Enforcer.ApplyPunishment(ctx, *ban).Await(ctx); err != nil {
		return g.fail(fmt.Sprintf("enforce ban #%d", ban.ID), err)
	}
	return nil
}

// OnMessage deletes m if its author is muted and tells them why. It reports whether the
// message was removed.
func (g *Gate) OnMessage(api ChatAPI, m *discordgo.Message) (bool, error) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || !g.Enabled(m.GuildID) {
		return false, nil
	}
	ctx, cancel := g.context()
	defer cancel()

	target := g.record(ctx, m.Author)
	mute, err := g.Checker.IsActivelyMuted(ctx, target).Await(ctx)
	if err != nil {
		return false, g.fail("check mute of "+m.Author.ID, err)
	}
	if mute == nil {
		return false, nil
	}

	if err := api.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		return false, g.fail("delete message of muted user "+m.Author.ID, err)
	}
	if !g.shouldNotify(m.Author.ID) {
		return true, nil
	}

	key, ok := message.ApplicationKey(*mute)
	if !ok {
		return true, nil
	}
	msg, err := g.Composer.Punishment(ctx, key, *mute).Await(ctx)
	if err != nil {
		return true, g.fail("render mute notice", err)
	}
	if err := utils.SendPrivateMessage(api, m.Author.ID, msg.Text); err != nil {
		return true, g.fail("notify muted user "+m.Author.ID, err)
	}
	return true, nil
}

func (g *Gate) shouldNotify(userID string) bool {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.notified == nil {
		g.notified = make(map[string]time.Time)
	}
	if last, ok := g.notified[userID]; ok && now.Sub(last) < g.NoticeCooldown {
		return false
	}
	for id, t := range g.notified {
		if now.Sub(t) >= g.NoticeCooldown {
			delete(g.notified, id)
		}
	}
	g.notified[userID] = now
	return true
}
