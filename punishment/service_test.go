package punishment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"punish-bot/message"
	"punish-bot/metrics"
	"punish-bot/model"
	"punish-bot/punishment"
	"punish-bot/punishment/mocks"
	"punish-bot/utils/async"
	"punish-bot/utils/database/punishments"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type broadcast struct {
	msg    message.Message
	silent bool
}

type harness struct {
	t        *testing.T
	ctrl     *gomock.Controller
	platform *mocks.MockPlatform
	resolver *mocks.MockIdentityResolver
	store    *punishments.Store
	pool     *async.Pool
	service  *punishment.Service
	commands *punishment.Commands
	metrics  *metrics.Metrics
	clock    *clock
}

var (
	target = model.Identity{ID: "t1", Name: "Target", Resolved: true}
	mod    = model.Identity{ID: "mod", Name: "Mod", Resolved: true}
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	db, err := punishments.Init(":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := punishments.NewStore(db, time.Second)
	store.Now = c.Now
	for _, id := range []model.Identity{target, mod} {
		_, err := store.UpsertUser(context.Background(), id.ID, id.Name)
		require.NoError(t, err)
	}

	pool := async.NewPool(4, 64)
	t.Cleanup(pool.Close)

	composer := message.NewComposer(nil, nil, 100*time.Millisecond)
	composer.Now = c.Now

	m := metrics.New(prometheus.NewRegistry())
	platform := mocks.NewMockPlatform(ctrl)
	resolver := mocks.NewMockIdentityResolver(ctrl)

	service := punishment.NewService(store, platform, composer, pool, m)
	service.Now = c.Now

	return &harness{
		t:        t,
		ctrl:     ctrl,
		platform: platform,
		resolver: resolver,
		store:    store,
		pool:     pool,
		service:  service,
		commands: punishment.NewCommands(service, resolver),
		metrics:  m,
		clock:    c,
	}
}

func (h *harness) noSessions() {
	h.platform.EXPECT().Sessions(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
}

func (h *harness) captureBroadcasts() <-chan broadcast {
	ch := make(chan broadcast, 16)
	h.platform.EXPECT().Broadcast(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg message.Message, silent bool) error {
			ch <- broadcast{msg: msg, silent: silent}
			return nil
		}).AnyTimes()
	return ch
}

func (h *harness) resolves(ids ...model.Identity) {
	for _, id := range ids {
		h.resolver.EXPECT().Resolve(gomock.Any(), id.ID).Return(async.Completed(&id)).AnyTimes()
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for platform call")
	}
	var zero T
	return zero
}

func await[T any](t *testing.T, f *async.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return f.Await(ctx)
}

func (h *harness) create(b *model.PunishmentBuilder) model.Punishment {
	h.t.Helper()
	p, err := await(h.t, h.service.CreatePunishment(context.Background(), b))
	require.NoError(h.t, err)
	return p
}

func builder(typ model.PunishmentType) *model.PunishmentBuilder {
	return model.NewPunishmentBuilder().Type(typ).Target(target).Punisher(mod)
}

func TestTimedMuteExpiresAtBoundary(t *testing.T) {
	h := newHarness(t)
	h.noSessions()
	h.captureBroadcasts()
	ctx := context.Background()

	created := h.create(builder(model.PunishmentMute).Duration(10 * time.Minute))

	h.clock.Advance(10*time.Minute - time.Millisecond)
	active, err := await(t, h.service.GetActiveMute(ctx, target))
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, created.ID, active.ID)

	h.clock.Advance(time.Millisecond)
	active, err = await(t, h.service.GetActiveMute(ctx, target))
	require.NoError(t, err)
	assert.Nil(t, active, "a mute is no longer active at exactly created+duration")
}

func TestPermanentBanUntilLifted(t *testing.T) {
	h := newHarness(t)
	h.noSessions()
	h.captureBroadcasts()
	ctx := context.Background()

	ban := h.create(builder(model.PunishmentBan))

	h.clock.Advance(10 * 365 * 24 * time.Hour)
	active, err := await(t, h.service.GetActiveBan(ctx, target))
	require.NoError(t, err)
	require.NotNil(t, active)

	lifted, err := await(t, h.service.LiftPunishment(ctx, ban, mod))
	require.NoError(t, err)
	assert.True(t, lifted.Lifted)
	assert.Equal(t, mod.ID, lifted.LiftedBy.ID)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.Lifted.WithLabelValues("ban")) == 1
	}, time.Second, 5*time.Millisecond)

	active, err = await(t, h.service.GetActiveBan(ctx, target))
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestNonLiftableTypesAreNeverActive(t *testing.T) {
	h := newHarness(t)
	h.noSessions()
	h.captureBroadcasts()
	ctx := context.Background()

	kick := h.create(builder(model.PunishmentKick))
	h.create(builder(model.PunishmentWarning).Reason("rude"))
	h.create(builder(model.PunishmentNote).Reason("watch"))

	for _, typ := range []model.PunishmentType{model.PunishmentKick, model.PunishmentWarning, model.PunishmentNote} {
		active, err := await(t, h.service.GetActivePunishment(ctx, target, typ))
		require.NoError(t, err)
		assert.Nil(t, active, typ.String())
	}

	_, err := await(t, h.service.LiftPunishment(ctx, kick, mod))
	assert.ErrorIs(t, err, model.ErrNotLiftable)
}

func TestLiftAlreadyLiftedDoesNotTouchStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	pool := async.NewPool(1, 1)
	t.Cleanup(pool.Close)

	service := punishment.NewService(store, mocks.NewMockPlatform(ctrl), message.NewComposer(nil, nil, 0), pool, nil)

	liftedAt := time.Now()
	p := model.Punishment{ID: 3, Type: model.PunishmentMute, Target: target, Punisher: mod,
		CreatedAt: liftedAt.Add(-time.Hour), Lifted: true, LiftedBy: &mod, LiftedAt: &liftedAt}

	result, err := await(t, service.LiftPunishment(context.Background(), p, model.Identity{ID: "other"}))
	assert.ErrorIs(t, err, model.ErrAlreadyLifted)
	assert.Zero(t, result.ID)
}

func TestLiftRaceIsConcurrentLift(t *testing.T) {
	h := newHarness(t)
	h.noSessions()
	h.captureBroadcasts()
	ctx := context.Background()

	mute := h.create(builder(model.PunishmentMute))
	_, err := await(t, h.service.LiftPunishment(ctx, mute, mod))
	require.NoError(t, err)

	_, err = await(t, h.service.LiftPunishment(ctx, mute, mod))
	assert.ErrorIs(t, err, model.ErrConcurrentLift)
}

func TestConcurrentCreatesLaterWins(t *testing.T) {
	h := newHarness(t)
	h.noSessions()
	h.captureBroadcasts()
	ctx := context.Background()

	first := h.service.CreatePunishment(ctx, builder(model.PunishmentMute).Reason("first"))
	second := h.service.CreatePunishment(ctx, builder(model.PunishmentMute).Reason("second"))
	a, err := await(t, first)
	require.NoError(t, err)
	b, err := await(t, second)
	require.NoError(t, err)

	all, err := await(t, h.service.GetPunishments(ctx, target))
	require.NoError(t, err)
	assert.Len(t, all, 2, "the engine does not serialise creations")

	later := a
	if b.ID > a.ID {
		later = b
	}
	active, err := await(t, h.service.GetActiveMute(ctx, target))
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, later.ID, active.ID)
}

func TestApplyBanDisconnectsEverySession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reason := "cheating"
	ban := model.Punishment{ID: 1, Type: model.PunishmentBan, Target: target, Punisher: mod, Reason: &reason, CreatedAt: h.clock.Now()}

	var sessions []punishment.Session
	for _, id := range []string{"guild-a", "guild-b"} {
		session := mocks.NewMockSession(h.ctrl)
		session.EXPECT().Disconnect(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg message.Message) error {
			assert.Equal(t, message.ApplicationBanReasoned, msg.Key)
			assert.Equal(t, "You are banned from this server (permanent): cheating", msg.Text)
			return nil
		})
		session.EXPECT().ID().Return(id).AnyTimes()
		sessions = append(sessions, session)
	}
	h.platform.EXPECT().Sessions(gomock.Any(), target).Return(sessions, nil)

	_, err := await(t, h.service.ApplyPunishment(ctx, ban))
	require.NoError(t, err)
}

func TestApplyWarningNotifiesSessions(t *testing.T) {
	h := newHarness(t)
	warning := model.Punishment{ID: 2, Type: model.PunishmentWarning, Target: target, Punisher: mod, CreatedAt: h.clock.Now()}

	session := mocks.NewMockSession(h.ctrl)
	session.EXPECT().Send(gomock.Any(), message.Message{
		Key:  message.ApplicationWarnReasonless,
		Text: "You have been warned by Mod.",
	}).Return(nil)
	h.platform.EXPECT().Sessions(gomock.Any(), target).Return([]punishment.Session{session}, nil)

	_, err := await(t, h.service.ApplyPunishment(context.Background(), warning))
	require.NoError(t, err)
}

func TestApplyNoopCases(t *testing.T) {
	h := newHarness(t)
	now := h.clock.Now()

	note := model.Punishment{ID: 1, Type: model.PunishmentNote, Target: target, Punisher: mod, CreatedAt: now}
	liftedMute := model.Punishment{ID: 2, Type: model.PunishmentMute, Target: target, Punisher: mod, CreatedAt: now, Lifted: true}

	for _, p := range []model.Punishment{note, liftedMute} {
		f := h.service.ApplyPunishment(context.Background(), p)
		_, err, done := f.Result()
		assert.True(t, done)
		assert.NoError(t, err)
	}
}

func TestAnnounceSelectsTemplateAndSilentFlag(t *testing.T) {
	h := newHarness(t)
	broadcasts := h.captureBroadcasts()
	ctx := context.Background()
	d := 2 * time.Hour

	mute := model.Punishment{ID: 4, Type: model.PunishmentMute, Target: target, Punisher: mod, Duration: &d, CreatedAt: h.clock.Now(), Silent: true}
	_, err := await(t, h.service.AnnouncePunishment(ctx, mute))
	require.NoError(t, err)

	got := receive(t, broadcasts)
	assert.True(t, got.silent)
	assert.Equal(t, message.BroadcastMuteReasonless, got.msg.Key)
	assert.Equal(t, "🔇 **Target** was muted by **Mod** (2h).", got.msg.Text)

	note := model.Punishment{ID: 5, Type: model.PunishmentNote, Target: target, Punisher: mod, CreatedAt: h.clock.Now()}
	_, err = await(t, h.service.AnnouncePunishment(ctx, note))
	require.NoError(t, err)
	select {
	case b := <-broadcasts:
		t.Fatalf("note was announced: %q", b.msg.Text)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCreateSurvivesEnforcementFailure(t *testing.T) {
	h := newHarness(t)
	h.captureBroadcasts()
	failed := make(chan struct{})
	h.platform.EXPECT().Sessions(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, model.Identity) ([]punishment.Session, error) {
		defer close(failed)
		return nil, assert.AnError
	})

	p := h.create(builder(model.PunishmentKick))
	assert.NotZero(t, p.ID)

	receive(t, failed)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.EnforcementFailures.WithLabelValues("apply")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Created.WithLabelValues("kick")))
}

func TestCreateRejectsInvalidBuilder(t *testing.T) {
	h := newHarness(t)
	_, err := await(t, h.service.CreatePunishment(context.Background(), builder(model.PunishmentKick).Duration(time.Hour)))
	assert.ErrorIs(t, err, model.ErrInvalidPunishment)
}

func TestClosedPoolIsStorageError(t *testing.T) {
	h := newHarness(t)
	h.pool.Close()

	_, err := await(t, h.service.GetPunishments(context.Background(), target))
	assert.True(t, model.IsStorageError(err))
	assert.ErrorIs(t, err, async.ErrPoolClosed)
}
