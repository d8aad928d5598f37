package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"punish-bot/message"
	"punish-bot/metrics"
	"punish-bot/model"
	"punish-bot/utils/async"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	ban, mute *model.Punishment
	err       error
}

func (f *fakeChecker) IsActivelyBanned(context.Context, model.Identity) *async.Future[*model.Punishment] {
	if f.err != nil {
		return async.Failed[*model.Punishment](f.err)
	}
	return async.Completed(f.ban)
}

func (f *fakeChecker) IsActivelyMuted(context.Context, model.Identity) *async.Future[*model.Punishment] {
	if f.err != nil {
		return async.Failed[*model.Punishment](f.err)
	}
	return async.Completed(f.mute)
}

type fakeEnforcer struct{ applied []int64 }

func (f *fakeEnforcer) ApplyPunishment(_ context.Context, p model.Punishment) *async.Future[struct{}] {
	f.applied = append(f.applied, p.ID)
	return async.Completed(struct{}{})
}

type fakeRecorder struct {
	recorded []string
	err      error
}

func (f *fakeRecorder) Record(_ context.Context, user *discordgo.User) *async.Future[model.Identity] {
	f.recorded = append(f.recorded, user.Username)
	if f.err != nil {
		return async.Failed[model.Identity](f.err)
	}
	return async.Completed(model.Identity{ID: user.ID, Name: user.Username, Resolved: true})
}

type fakeChat struct {
	deleted []string
	dms     []string
}

func (f *fakeChat) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeChat) ChannelMessageSend(_ string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.dms = append(f.dms, content)
	return &discordgo.Message{}, nil
}

func (f *fakeChat) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

var member = &discordgo.User{ID: "100000000000000001", Username: "target"}

func newTestGate(checker GateChecker, recorder NameRecorder, m *metrics.Metrics) (*Gate, *fakeEnforcer, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	enforcer := &fakeEnforcer{}
	composer := message.NewComposer(message.DefaultTemplates(), nil, time.Second)
	composer.Now = func() time.Time { return now }
	return &Gate{
		Checker:        checker,
		Enforcer:       enforcer,
		Recorder:       recorder,
		Composer:       composer,
		Metrics:        m,
		Enabled:        func(guildID string) bool { return guildID == "guild" },
		NoticeCooldown: time.Minute,
		Now:            func() time.Time { return now },
	}, enforcer, &now
}

func TestJoinGateEnforcesActiveBan(t *testing.T) {
	recorder := &fakeRecorder{}
	gate, enforcer, _ := newTestGate(&fakeChecker{ban: &model.Punishment{ID: 4, Type: model.PunishmentBan}}, recorder, nil)

	require.NoError(t, gate.OnMemberJoin("guild", member))
	assert.Equal(t, []int64{4}, enforcer.applied)
	assert.Equal(t, []string{"target"}, recorder.recorded)

	require.NoError(t, gate.OnMemberJoin("other-guild", member))
	require.NoError(t, gate.OnMemberJoin("guild", &discordgo.User{ID: "2", Bot: true}))
	assert.Len(t, enforcer.applied, 1)
}

func TestJoinGateLetsUnbannedIn(t *testing.T) {
	gate, enforcer, _ := newTestGate(&fakeChecker{}, &fakeRecorder{err: errors.New("db locked")}, nil)
	require.NoError(t, gate.OnMemberJoin("guild", member))
	assert.Empty(t, enforcer.applied)
}

func TestGateFailureIsCounted(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	gate, _, _ := newTestGate(&fakeChecker{err: &model.StorageError{Op: "get punishments", Err: errors.New("locked")}}, &fakeRecorder{}, m)

	err := gate.OnMemberJoin("guild", member)
	var storageErr *model.StorageError
	assert.ErrorAs(t, err, &storageErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnforcementFailures.WithLabelValues("gate")))
}

func TestChatGateDeletesMutedMessages(t *testing.T) {
	d := 10 * time.Minute
	reason := "spam"
	chat := &fakeChat{}
	gate, _, now := newTestGate(&fakeChecker{mute: &model.Punishment{
		ID: 5, Type: model.PunishmentMute, Reason: &reason, Duration: &d, CreatedAt: time.Unix(1_700_000_000, 0),
	}}, &fakeRecorder{}, nil)

	msg := func(id string) *discordgo.Message {
		return &discordgo.Message{ID: id, ChannelID: "c", GuildID: "guild", Author: member}
	}

	removed, err := gate.OnMessage(chat, msg("m1"))
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = gate.OnMessage(chat, msg("m2"))
	require.NoError(t, err)
	assert.True(t, removed)

	*now = now.Add(2 * time.Minute)
	_, err = gate.OnMessage(chat, msg("m3"))
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m2", "m3"}, chat.deleted)
	require.Len(t, chat.dms, 2)
	assert.Equal(t, "You are muted (expires 10 minutes from now): spam", chat.dms[0])
}

func TestChatGateIgnoresUnmutedAndDirectMessages(t *testing.T) {
	chat := &fakeChat{}
	gate, _, _ := newTestGate(&fakeChecker{}, &fakeRecorder{}, nil)

	removed, err := gate.OnMessage(chat, &discordgo.Message{ID: "m1", GuildID: "guild", Author: member})
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = gate.OnMessage(chat, &discordgo.Message{ID: "m2", Author: member})
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, chat.deleted)
}

func TestStatusEmbed(t *testing.T) {
	embed := statusEmbed(engineStatus{ActiveBans: 1200, ActiveMutes: 3, DatabaseSize: 2_000_000}, hostStatus{}, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC))

	values := make(map[string]string)
	for _, f := range embed.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "1,200", values["🔨 Active bans"])
	assert.Equal(t, "3", values["🔇 Active mutes"])
	assert.Equal(t, "2.0 MB", values["🗃️ Database size"])
	assert.Equal(t, "-", values["💻 OS"])
	assert.Equal(t, "Status at 09:30", embed.Footer.Text)
}
