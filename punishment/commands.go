package punishment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"punish-bot/message"
	"punish-bot/model"
	"punish-bot/utils"
	"punish-bot/utils/async"
)

// Request carries the moderator input shared by every punishing command.
type Request struct {
	Target     model.Identity
	PunisherID string
	Reason     string
	Duration   time.Duration // zero is permanent; ignored for types without a duration
	Silent     bool
}

// HistoryResult is a target's punishments with their rendered listing.
type HistoryResult struct {
	Target      model.Identity
	Punishments []model.Punishment
	Message     message.Message
}

// Commands is the moderator surface on top of Service. Replacing a ban or mute is
// serialised per target and type so concurrent commands cannot leave two active rows.
type Commands struct {
	service  *Service
	resolver IdentityResolver
	locks    *utils.KeyedLock
}

func NewCommands(service *Service, resolver IdentityResolver) *Commands {
	return &Commands{
		service:  service,
		resolver: resolver,
		locks:    utils.NewKeyedLock(),
	}
}

func lockKey(targetID string, typ model.PunishmentType) string {
	return targetID + ":" + typ.String()
}

// ResolveTarget resolves identifier to a known identity.
func (c *Commands) ResolveTarget(ctx context.Context, identifier string) *async.Future[model.Identity] {
	return async.Then(c.resolver.Resolve(ctx, identifier), func(id *model.Identity) (model.Identity, error) {
		if id == nil {
			return model.Identity{}, &model.IdentityUnresolvedError{Identifier: identifier}
		}
		return *id, nil
	})
}

// resolveActor resolves the moderator issuing a command. Only durable identities may
// punish or lift.
func (c *Commands) resolveActor(ctx context.Context, id string) (model.Identity, error) {
	actor, err := c.resolver.Resolve(ctx, id).Await(ctx)
	if err != nil {
		return model.Identity{}, err
	}
	if actor == nil || !actor.Resolved {
		return model.Identity{}, &model.IdentityUnresolvedError{Identifier: id}
	}
	return *actor, nil
}

func (c *Commands) Ban(ctx context.Context, req Request) *async.Future[model.Punishment] {
	return c.replace(ctx, model.PunishmentBan, req)
}

func (c *Commands) Mute(ctx context.Context, req Request) *async.Future[model.Punishment] {
	return c.replace(ctx, model.PunishmentMute, req)
}

// replace lifts the active punishment of typ, if any, and creates the new one.
func (c *Commands) replace(ctx context.Context, typ model.PunishmentType, req Request) *async.Future[model.Punishment] {
	return async.Go(func() (model.Punishment, error) {
		punisher, err := c.resolveActor(ctx, req.PunisherID)
		if err != nil {
			return model.Punishment{}, err
		}

		unlock := c.locks.Lock(lockKey(req.Target.ID, typ))
		defer unlock()

		active, err := c.service.GetActivePunishment(ctx, req.Target, typ).Await(ctx)
		if err != nil {
			return model.Punishment{}, err
		}
		if active != nil {
			_, err := c.service.LiftPunishment(ctx, *active, punisher).Await(ctx)
			if err != nil && !errors.Is(err, model.ErrConcurrentLift) {
				return model.Punishment{}, fmt.Errorf("failed to lift previous %s #%d: %w", typ, active.ID, err)
			}
		}

		builder := c.builder(typ, req, punisher).Duration(req.Duration)
		return c.service.CreatePunishment(ctx, builder).Await(ctx)
	})
}

func (c *Commands) builder(typ model.PunishmentType, req Request, punisher model.Identity) *model.PunishmentBuilder {
	return model.NewPunishmentBuilder().
		Type(typ).
		Target(req.Target).
		Punisher(punisher).
		Reason(req.Reason).
		Silent(req.Silent)
}

func (c *Commands) Kick(ctx context.Context, req Request) *async.Future[model.Punishment] {
	return c.record(ctx, model.PunishmentKick, req)
}

func (c *Commands) Warn(ctx context.Context, req Request) *async.Future[model.Punishment] {
	return c.record(ctx, model.PunishmentWarning, req)
}

func (c *Commands) Note(ctx context.Context, req Request) *async.Future[model.Punishment] {
	return c.record(ctx, model.PunishmentNote, req)
}

func (c *Commands) record(ctx context.Context, typ model.PunishmentType, req Request) *async.Future[model.Punishment] {
	return async.Go(func() (model.Punishment, error) {
		punisher, err := c.resolveActor(ctx, req.PunisherID)
		if err != nil {
			return model.Punishment{}, err
		}
		return c.service.CreatePunishment(ctx, c.builder(typ, req, punisher)).Await(ctx)
	})
}

func (c *Commands) Unban(ctx context.Context, target model.Identity, lifterID string) *async.Future[model.Punishment] {
	return c.lift(ctx, model.PunishmentBan, target, lifterID)
}

func (c *Commands) Unmute(ctx context.Context, target model.Identity, lifterID string) *async.Future[model.Punishment] {
	return c.lift(ctx, model.PunishmentMute, target, lifterID)
}

// lift lifts the active punishment of typ and announces the lifted record.
func (c *Commands) lift(ctx context.Context, typ model.PunishmentType, target model.Identity, lifterID string) *async.Future[model.Punishment] {
	return async.Go(func() (model.Punishment, error) {
		lifter, err := c.resolveActor(ctx, lifterID)
		if err != nil {
			return model.Punishment{}, err
		}

		unlock := c.locks.Lock(lockKey(target.ID, typ))
		defer unlock()

		active, err := c.service.GetActivePunishment(ctx, target, typ).Await(ctx)
		if err != nil {
			return model.Punishment{}, err
		}
		if active == nil {
			return model.Punishment{}, fmt.Errorf("%s of %s: %w", typ, target.ID, model.ErrNoActivePunishment)
		}

		lifted, err := c.service.LiftPunishment(ctx, *active, lifter).Await(ctx)
		if err != nil {
			return model.Punishment{}, err
		}

		c.service.watch("announce", lifted, c.service.AnnouncePunishment(context.WithoutCancel(ctx), lifted))
		return lifted, nil
	})
}

// History lists every punishment of target, oldest first, and renders it.
func (c *Commands) History(ctx context.Context, target model.Identity) *async.Future[HistoryResult] {
	return async.Go(func() (HistoryResult, error) {
		punishments, err := c.service.GetPunishments(ctx, target).Await(ctx)
		if err != nil {
			return HistoryResult{}, err
		}
		msg, err := c.service.Composer().History(ctx, target, punishments).Await(ctx)
		if err != nil {
			return HistoryResult{}, err
		}
		return HistoryResult{Target: target, Punishments: punishments, Message: msg}, nil
	})
}

// NameHistory returns the names target has been seen with, or nil if none were recorded.
func (c *Commands) NameHistory(ctx context.Context, target model.Identity) *async.Future[*model.NameHistory] {
	return c.resolver.History(ctx, target.ID)
}

func (c *Commands) IsActivelyMuted(ctx context.Context, target model.Identity) *async.Future[*model.Punishment] {
	return c.service.GetActiveMute(ctx, target)
}

func (c *Commands) IsActivelyBanned(ctx context.Context, target model.Identity) *async.Future[*model.Punishment] {
	return c.service.GetActiveBan(ctx, target)
}

// Expired reports a lapsed ban or mute to staff. The punishment stays unlifted in the store;
// lapsing is derived from its duration.
func (c *Commands) Expired(ctx context.Context, p model.Punishment) *async.Future[struct{}] {
	key, ok := message.ExpiredKey(p)
	if !ok {
		return async.Completed(struct{}{})
	}
	rendered := c.service.Composer().Punishment(ctx, key, p)
	return async.Go(func() (struct{}, error) {
		msg, err := rendered.Await(ctx)
		if err != nil {
			return struct{}{}, err
		}
		log.Printf("[Punishment] %s", msg.Text)
		return async.Submit(ctx, c.service.pool, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.service.platform.Broadcast(ctx, msg, true)
		}).Await(ctx)
	})
}
