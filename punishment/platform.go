package punishment

import (
	"context"

	"punish-bot/message"
	"punish-bot/model"
	"punish-bot/utils/async"
)

//go:generate mockgen -source=platform.go -destination=mocks/platform_mock.go -package=mocks

// Session is one live presence of a user on the platform.
type Session interface {
	ID() string
	// Disconnect removes the session, showing msg to the user.
	Disconnect(ctx context.Context, msg message.Message) error
	// Send delivers msg to the user without removing the session.
	Send(ctx context.Context, msg message.Message) error
}

// Platform is the host the engine enforces punishments on. Deciding who may see a
// broadcast is the platform's concern.
type Platform interface {
	Sessions(ctx context.Context, target model.Identity) ([]Session, error)
	Broadcast(ctx context.Context, msg message.Message, silent bool) error
}

// IdentityResolver turns user-supplied identifiers into durable identities.
type IdentityResolver interface {
	Resolve(ctx context.Context, identifier string) *async.Future[*model.Identity]
	History(ctx context.Context, id string) *async.Future[*model.NameHistory]
}

// Store is the persistence the engine relies on.
type Store interface {
	GetPunishments(ctx context.Context, targetID string) ([]model.Punishment, error)
	Save(ctx context.Context, builder *model.PunishmentBuilder) (model.Punishment, error)
	Lift(ctx context.Context, p model.Punishment, liftedBy model.Identity) (model.Punishment, error)
}
