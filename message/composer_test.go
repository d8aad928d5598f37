package message

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"punish-bot/model"
	"punish-bot/utils/async"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNames struct {
	mu      sync.Mutex
	names   map[string]string
	lookups int
}

func (f *fakeNames) DisplayName(_ context.Context, id string) *async.Future[string] {
	f.mu.Lock()
	f.lookups++
	f.mu.Unlock()
	return async.Go(func() (string, error) {
		time.Sleep(5 * time.Millisecond)
		if name, ok := f.names[id]; ok {
			return name, nil
		}
		return "", errors.New("unknown user")
	})
}

func newTestComposer(names NameLookup) *Composer {
	templates := DefaultTemplates()
	templates.Override(map[string]string{
		"test.pair":   "{a} and {b}",
		"test.braces": "{a} {missing}",
	})
	c := NewComposer(templates, names, 50*time.Millisecond)
	c.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func render(t *testing.T, f *async.Future[Message]) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := f.Await(ctx)
	require.NoError(t, err)
	return msg
}

func TestRenderImmediateIsSynchronousAndOrderIndependent(t *testing.T) {
	c := newTestComposer(nil)

	first := c.Render(context.Background(), "test.pair", c.Text("a", "x"), c.Text("b", "y"))
	second := c.Render(context.Background(), "test.pair", c.Text("b", "y"), c.Text("a", "x"))

	msg1, err, done := first.Result()
	require.True(t, done)
	require.NoError(t, err)
	msg2, _, _ := second.Result()
	assert.Equal(t, "x and y", msg1.Text)
	assert.Equal(t, msg1, msg2)
}

func TestRenderDuplicateNamesIgnoreArgumentOrder(t *testing.T) {
	c := newTestComposer(nil)
	ctx := context.Background()
	bundle := c.Multiple(map[string]Value{"a": Immediate("bundled"), "b": Immediate("y")})

	overridden := render(t, c.Render(ctx, "test.pair", c.Text("a", "x"), bundle))
	reversed := render(t, c.Render(ctx, "test.pair", bundle, c.Text("a", "x")))
	assert.Equal(t, "x and y", overridden.Text)
	assert.Equal(t, overridden, reversed)

	forward := render(t, c.Render(ctx, "test.pair", c.Text("a", "2"), c.Text("a", "1"), c.Text("b", "y")))
	backward := render(t, c.Render(ctx, "test.pair", c.Text("b", "y"), c.Text("a", "1"), c.Text("a", "2")))
	assert.Equal(t, "1 and y", forward.Text)
	assert.Equal(t, forward, backward)
}

func TestRenderWaitsForPendingPlaceholders(t *testing.T) {
	c := newTestComposer(nil)
	slow, complete := async.NewFuture[string]()

	f := c.Render(context.Background(), "test.pair", c.Lazy("a", slow), c.Text("b", "y"))
	_, _, done := f.Result()
	assert.False(t, done, "render must wait for the pending placeholder")

	complete("late", nil)
	assert.Equal(t, "late and y", render(t, f).Text)
}

func TestRenderFallsBackForFailedPlaceholderOnly(t *testing.T) {
	c := newTestComposer(nil)
	var fallbacks []string
	var mu sync.Mutex
	c.OnFallback = func(name string, err error) {
		mu.Lock()
		fallbacks = append(fallbacks, name)
		mu.Unlock()
	}

	failing := async.Go(func() (string, error) {
		time.Sleep(time.Millisecond)
		return "", errors.New("lookup failed")
	})
	msg := render(t, c.Render(context.Background(), "test.pair", c.Lazy("a", failing), c.Text("b", "y")))
	assert.Equal(t, " and y", msg.Text)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a"}, fallbacks)
}

func TestRenderDoesNotHangOnStuckPlaceholder(t *testing.T) {
	c := newTestComposer(nil)
	never, _ := async.NewFuture[string]()

	start := time.Now()
	msg := render(t, c.Render(context.Background(), "test.pair", c.Lazy("a", never), c.Text("b", "y")))
	assert.Equal(t, " and y", msg.Text)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRenderLeavesUnknownTokensAndKeys(t *testing.T) {
	c := newTestComposer(nil)

	msg := render(t, c.Render(context.Background(), "test.braces", c.Text("a", "{missing}")))
	assert.Equal(t, "{missing} {missing}", msg.Text, "substituted text is not scanned again")

	unknown := render(t, c.Render(context.Background(), "no.such.key"))
	assert.Equal(t, "no.such.key", unknown.Text)
}

func TestMultipleBundles(t *testing.T) {
	c := newTestComposer(nil)
	pending, complete := async.NewFuture[string]()

	bundle := c.Multiple(map[string]Value{"a": Pending(pending), "b": Immediate("y")})
	assert.False(t, bundle.Ready())
	complete("x", nil)
	assert.Equal(t, "x and y", render(t, c.Render(context.Background(), "test.pair", bundle)).Text)

	later := c.MultipleLater(async.Completed(map[string]string{"a": "1", "b": "2"}))
	assert.Equal(t, "1 and 2", render(t, c.Render(context.Background(), "test.pair", later)).Text)

	broken := c.MultipleLater(async.Failed[map[string]string](errors.New("down")))
	assert.Equal(t, "{a} and {b}", render(t, c.Render(context.Background(), "test.pair", broken)).Text)
}

func TestPendingNilFutureFallsBack(t *testing.T) {
	c := newTestComposer(nil)
	msg := render(t, c.Render(context.Background(), "test.pair", c.Lazy("a", nil), c.Text("b", "y")))
	assert.Equal(t, " and y", msg.Text)
}

func TestRenderHonoursCallerContext(t *testing.T) {
	c := newTestComposer(nil)
	c.ResolveTimeout = time.Second
	never, _ := async.NewFuture[string]()

	ctx, cancel := context.WithCancel(context.Background())
	f := c.Render(ctx, "test.pair", c.Lazy("a", never))
	cancel()
	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPunishmentComponentsResolveNames(t *testing.T) {
	names := &fakeNames{names: map[string]string{"t1": "Target", "p1": "Punisher"}}
	c := newTestComposer(names)

	reason := "spam"
	d := 10 * time.Minute
	p := model.Punishment{
		ID:        7,
		Type:      model.PunishmentMute,
		Target:    model.UnresolvedIdentity("t1"),
		Punisher:  model.UnresolvedIdentity("p1"),
		Reason:    &reason,
		CreatedAt: c.Now(),
		Duration:  &d,
	}

	key, ok := BroadcastKey(p)
	require.True(t, ok)
	msg := render(t, c.Punishment(context.Background(), key, p))
	assert.Equal(t, "🔇 **Target** was muted by **Punisher** (10m): spam", msg.Text)

	p.Lifted = true
	p.LiftedBy = &model.Identity{ID: "ghost"}
	key, _ = BroadcastKey(p)
	msg = render(t, c.Punishment(context.Background(), key, p))
	assert.Equal(t, "🔊 **Target** was unmuted by ****.", msg.Text, "unknown lifter falls back to empty")
}

func TestHistory(t *testing.T) {
	c := newTestComposer(nil)
	target := model.Identity{ID: "t1", Name: "Target"}

	empty := render(t, c.History(context.Background(), target, nil))
	assert.Equal(t, "📜 **Target** has no punishments.", empty.Text)

	reason := "rude"
	punishments := []model.Punishment{
		{ID: 1, Type: model.PunishmentWarning, Target: target, Punisher: model.Identity{ID: "a", Name: "Admin"}, Reason: &reason, CreatedAt: c.Now().Add(-time.Hour)},
		{ID: 2, Type: model.PunishmentBan, Target: target, Punisher: model.Identity{ID: "a", Name: "Admin"}, CreatedAt: c.Now().Add(-time.Minute)},
	}
	msg := render(t, c.History(context.Background(), target, punishments))
	assert.Equal(t, "📜 Punishment history of **Target** (2 entries)\n"+
		"`#1` **warning** by Admin 1 hour ago [recorded] rude\n"+
		"`#2` **ban** by Admin 1 minute ago [active]", msg.Text)
}

func TestTemplateSelection(t *testing.T) {
	reason := "r"
	cases := []struct {
		p    model.Punishment
		want Key
	}{
		{model.Punishment{Type: model.PunishmentBan, Reason: &reason}, BroadcastBanReasoned},
		{model.Punishment{Type: model.PunishmentBan}, BroadcastBanReasonless},
		{model.Punishment{Type: model.PunishmentBan, Lifted: true}, BroadcastUnban},
		{model.Punishment{Type: model.PunishmentKick, Reason: &reason}, BroadcastKickReasoned},
		{model.Punishment{Type: model.PunishmentKick}, BroadcastKickReasonless},
		{model.Punishment{Type: model.PunishmentMute, Reason: &reason}, BroadcastMuteReasoned},
		{model.Punishment{Type: model.PunishmentMute}, BroadcastMuteReasonless},
		{model.Punishment{Type: model.PunishmentMute, Lifted: true, Reason: &reason}, BroadcastUnmute},
		{model.Punishment{Type: model.PunishmentWarning, Reason: &reason}, BroadcastWarnReasoned},
		{model.Punishment{Type: model.PunishmentWarning}, BroadcastWarnReasonless},
	}
	for _, tc := range cases {
		got, ok := BroadcastKey(tc.p)
		require.True(t, ok)
		assert.Equal(t, tc.want, got)
	}

	_, ok := BroadcastKey(model.Punishment{Type: model.PunishmentNote})
	assert.False(t, ok)
	_, ok = ApplicationKey(model.Punishment{Type: model.PunishmentNote})
	assert.False(t, ok)

	key, ok := ApplicationKey(model.Punishment{Type: model.PunishmentKick, Reason: &reason})
	require.True(t, ok)
	assert.Equal(t, ApplicationKickReasoned, key)
}
