// Package punishment owns the punishment lifecycle: creating, applying, announcing and
// lifting punishments, plus the command surface moderators drive it through.
package punishment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"punish-bot/message"
	"punish-bot/metrics"
	"punish-bot/model"
	"punish-bot/utils"
	"punish-bot/utils/async"
)

// Service runs every store and platform call on a bounded pool and hands back futures.
// It does not serialise creations: concurrent creates for one target persist separate
// rows and the most recently created one is the active one.
type Service struct {
	store    Store
	platform Platform
	composer *message.Composer
	pool     *async.Pool
	metrics  *metrics.Metrics

	// LogWebhookURL, if set, receives an embed for every created or lifted punishment.
	LogWebhookURL string
	Now           func() time.Time
}

func NewService(store Store, platform Platform, composer *message.Composer, pool *async.Pool, m *metrics.Metrics) *Service {
	return &Service{
		store:    store,
		platform: platform,
		composer: composer,
		pool:     pool,
		metrics:  m,
		Now:      time.Now,
	}
}

// Composer returns the composer messages are rendered with.
func (s *Service) Composer() *message.Composer {
	return s.composer
}

// submitStore runs a store operation on the pool. A saturated or closed pool fails the
// operation with a StorageError, as the store could not be reached.
func submitStore[T any](s *Service, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) *async.Future[T] {
	out, complete := async.NewFuture[T]()
	f := async.Submit(ctx, s.pool, func(ctx context.Context) (T, error) {
		start := time.Now()
		defer func() { s.metrics.ObserveStoreLatency(op, time.Since(start)) }()
		return fn(ctx)
	})
	async.OnComplete(f, func(v T, err error) {
		if errors.Is(err, async.ErrPoolFull) || errors.Is(err, async.ErrPoolClosed) {
			err = &model.StorageError{Op: op, Err: err}
		}
		complete(v, err)
	})
	return out
}

// GetPunishments returns every punishment of target, oldest first.
func (s *Service) GetPunishments(ctx context.Context, target model.Identity) *async.Future[[]model.Punishment] {
	return submitStore(s, ctx, "get punishments", func(ctx context.Context) ([]model.Punishment, error) {
		return s.store.GetPunishments(ctx, target.ID)
	})
}

// GetActivePunishment returns the most recently created punishment of typ that is active
// now, or nil. Types that cannot be lifted are never active.
func (s *Service) GetActivePunishment(ctx context.Context, target model.Identity, typ model.PunishmentType) *async.Future[*model.Punishment] {
	if !typ.Liftable() {
		return async.Completed[*model.Punishment](nil)
	}
	return async.Then(s.GetPunishments(ctx, target), func(punishments []model.Punishment) (*model.Punishment, error) {
		return latestActive(punishments, typ, s.Now()), nil
	})
}

func latestActive(punishments []model.Punishment, typ model.PunishmentType, now time.Time) *model.Punishment {
	for i := len(punishments) - 1; i >= 0; i-- {
		p := punishments[i]
		if p.Type == typ && p.ActiveAt(now) {
			return &p
		}
	}
	return nil
}

func (s *Service) GetActiveBan(ctx context.Context, target model.Identity) *async.Future[*model.Punishment] {
	return s.GetActivePunishment(ctx, target, model.PunishmentBan)
}

func (s *Service) GetActiveMute(ctx context.Context, target model.Identity) *async.Future[*model.Punishment] {
	return s.GetActivePunishment(ctx, target, model.PunishmentMute)
}

// CreatePunishment persists the punishment described by builder. Once saved it is applied
// and announced independently; their failures are logged and never reach the caller.
// The caller is responsible for lifting an existing active ban or mute first.
func (s *Service) CreatePunishment(ctx context.Context, builder *model.PunishmentBuilder) *async.Future[model.Punishment] {
	if err := builder.Validate(); err != nil {
		return async.Failed[model.Punishment](err)
	}
	saved := submitStore(s, ctx, "save punishment", func(ctx context.Context) (model.Punishment, error) {
		return s.store.Save(ctx, builder)
	})

	background := context.WithoutCancel(ctx)
	async.OnComplete(saved, func(p model.Punishment, err error) {
		if err != nil {
			log.Printf("[Punishment] Failed to save punishment: %v", err)
			return
		}
		s.metrics.IncrementCreated(p.Type.String())
		utils.LogAsync(s.LogWebhookURL, utils.Info, "Punishment", "Create",
			fmt.Sprintf("#%d %s of %s by %s", p.ID, p.Type, p.Target.DisplayName(), p.Punisher.DisplayName()))

		s.watch("apply", p, s.ApplyPunishment(background, p))
		s.watch("announce", p, s.AnnouncePunishment(background, p))
	})
	return saved
}

func (s *Service) watch(stage string, p model.Punishment, f *async.Future[struct{}]) {
	async.OnComplete(f, func(_ struct{}, err error) {
		if err == nil {
			return
		}
		s.metrics.IncrementEnforcementFailure(stage)
		log.Printf("[Punishment] Failed to %s punishment #%d (%s of %s): %v", stage, p.ID, p.Type, p.Target.ID, err)
		utils.LogAsync(s.LogWebhookURL, utils.Warn, "Punishment", stage,
			fmt.Sprintf("#%d %s of %s: %v", p.ID, p.Type, p.Target.ID, err))
	})
}

// ApplyPunishment enforces p on the target's live sessions. Bans and kicks disconnect
// every session; warnings and mutes notify them. Notes and lifted punishments do nothing.
func (s *Service) ApplyPunishment(ctx context.Context, p model.Punishment) *async.Future[struct{}] {
	if !p.Type.Applicable() || (p.Type.Liftable() && p.Lifted) {
		return async.Completed(struct{}{})
	}
	key, ok := message.ApplicationKey(p)
	if !ok {
		return async.Completed(struct{}{})
	}

	sessions := async.Submit(ctx, s.pool, func(ctx context.Context) ([]Session, error) {
		return s.platform.Sessions(ctx, p.Target)
	})
	rendered := s.composer.Punishment(ctx, key, p)

	return async.Go(func() (struct{}, error) {
		list, err := sessions.Await(ctx)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to get sessions of %s: %w", p.Target.ID, err)
		}
		if len(list) == 0 {
			return struct{}{}, nil
		}
		msg, err := rendered.Await(ctx)
		if err != nil {
			return struct{}{}, err
		}
		return async.Submit(ctx, s.pool, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.deliver(ctx, p, list, msg)
		}).Await(ctx)
	})
}

func (s *Service) deliver(ctx context.Context, p model.Punishment, sessions []Session, msg message.Message) error {
	var errs []error
	for _, session := range sessions {
		var err error
		switch p.Type {
		case model.PunishmentBan, model.PunishmentKick:
			err = session.Disconnect(ctx, msg)
		default:
			err = session.Send(ctx, msg)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", session.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// LiftPunishment marks p as lifted by liftedBy. A punishment already lifted in hand is
// rejected without touching the store; losing a race to another lift is ErrConcurrentLift.
func (s *Service) LiftPunishment(ctx context.Context, p model.Punishment, liftedBy model.Identity) *async.Future[model.Punishment] {
	if !p.Type.Liftable() {
		return async.Failed[model.Punishment](fmt.Errorf("%s #%d: %w", p.Type, p.ID, model.ErrNotLiftable))
	}
	if p.Lifted {
		return async.Failed[model.Punishment](fmt.Errorf("%s #%d: %w", p.Type, p.ID, model.ErrAlreadyLifted))
	}

	lifted := submitStore(s, ctx, "lift punishment", func(ctx context.Context) (model.Punishment, error) {
		return s.store.Lift(ctx, p, liftedBy)
	})
	async.OnComplete(lifted, func(p model.Punishment, err error) {
		if err != nil {
			return
		}
		s.metrics.IncrementLifted(p.Type.String())
		utils.LogAsync(s.LogWebhookURL, utils.Info, "Punishment", "Lift",
			fmt.Sprintf("#%d %s of %s lifted by %s", p.ID, p.Type, p.Target.DisplayName(), liftedBy.DisplayName()))
	})
	return lifted
}

// AnnouncePunishment broadcasts p with the template matching its type, reason and lifted
// state. Notes are never announced.
func (s *Service) AnnouncePunishment(ctx context.Context, p model.Punishment) *async.Future[struct{}] {
	key, ok := message.BroadcastKey(p)
	if !ok {
		return async.Completed(struct{}{})
	}
	rendered := s.composer.Punishment(ctx, key, p)

	return async.Go(func() (struct{}, error) {
		msg, err := rendered.Await(ctx)
		if err != nil {
			return struct{}{}, err
		}
		return async.Submit(ctx, s.pool, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.platform.Broadcast(ctx, msg, p.Silent)
		}).Await(ctx)
	})
}
