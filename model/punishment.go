package model

import (
	"fmt"
	"strings"
	"time"
)

// PunishmentType identifies the kind of punishment. The numeric value is what
// the punishments table stores in punishment_type.
type PunishmentType int

const (
	PunishmentBan PunishmentType = iota
	PunishmentKick
	PunishmentMute
	PunishmentWarning
	PunishmentNote
)

var punishmentTypeNames = map[PunishmentType]string{
	PunishmentBan:     "ban",
	PunishmentKick:    "kick",
	PunishmentMute:    "mute",
	PunishmentWarning: "warning",
	PunishmentNote:    "note",
}

func (t PunishmentType) String() string {
	if name, ok := punishmentTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// Valid reports whether t is one of the known punishment types.
func (t PunishmentType) Valid() bool {
	_, ok := punishmentTypeNames[t]
	return ok
}

// Liftable reports whether punishments of this type are standing state that can be lifted.
func (t PunishmentType) Liftable() bool {
	return t == PunishmentBan || t == PunishmentMute
}

// Applicable reports whether creating a punishment of this type has an effect on the target.
func (t PunishmentType) Applicable() bool {
	return t != PunishmentNote
}

// Timed reports whether punishments of this type may carry a duration.
func (t PunishmentType) Timed() bool {
	return t.Liftable()
}

// ParsePunishmentType maps a type name (as used by commands and config keys) to its type.
func ParsePunishmentType(s string) (PunishmentType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warn" {
		return PunishmentWarning, nil
	}
	for t, name := range punishmentTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown punishment type %q", s)
}

// Punishment is a durable punishment record.
type Punishment struct {
	ID        int64
	Type      PunishmentType
	Target    Identity
	Punisher  Identity
	Reason    *string
	CreatedAt time.Time
	Duration  *time.Duration // nil = permanent
	Lifted    bool
	LiftedBy  *Identity
	LiftedAt  *time.Time
	Silent    bool
}

// HasReason reports whether the punishment carries a non-empty reason.
func (p Punishment) HasReason() bool {
	return p.Reason != nil && *p.Reason != ""
}

// ReasonText returns the reason or an empty string.
func (p Punishment) ReasonText() string {
	if p.Reason == nil {
		return ""
	}
	return *p.Reason
}

// ExpiresAt returns when the punishment stops being active on its own, or nil if permanent.
func (p Punishment) ExpiresAt() *time.Time {
	if p.Duration == nil {
		return nil
	}
	t := p.CreatedAt.Add(*p.Duration)
	return &t
}

// ActiveAt reports whether the punishment is in force at now. Only liftable types
// can be active; everything else is a point-in-time event.
func (p Punishment) ActiveAt(now time.Time) bool {
	if !p.Type.Liftable() || p.Lifted {
		return false
	}
	if p.Duration == nil {
		return true
	}
	return now.Before(p.CreatedAt.Add(*p.Duration))
}

// PunishmentBuilder collects the fields of a punishment before it is saved. ID and
// CreatedAt are assigned by the store.
type PunishmentBuilder struct {
	typ      *PunishmentType
	target   *Identity
	punisher *Identity
	reason   *string
	duration *time.Duration
	silent   bool
}

func NewPunishmentBuilder() *PunishmentBuilder {
	return &PunishmentBuilder{}
}

func (b *PunishmentBuilder) Type(t PunishmentType) *PunishmentBuilder {
	b.typ = &t
	return b
}

func (b *PunishmentBuilder) Target(target Identity) *PunishmentBuilder {
	b.target = &target
	return b
}

func (b *PunishmentBuilder) Punisher(punisher Identity) *PunishmentBuilder {
	b.punisher = &punisher
	return b
}

// Reason sets the reason; an empty string clears it.
func (b *PunishmentBuilder) Reason(reason string) *PunishmentBuilder {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		b.reason = nil
		return b
	}
	b.reason = &reason
	return b
}

// Duration sets the duration; zero means permanent. Durations are stored in whole
// milliseconds, so anything finer is truncated here.
func (b *PunishmentBuilder) Duration(d time.Duration) *PunishmentBuilder {
	if d == 0 {
		b.duration = nil
		return b
	}
	d = d.Truncate(time.Millisecond)
	b.duration = &d
	return b
}

func (b *PunishmentBuilder) Silent(silent bool) *PunishmentBuilder {
	b.silent = silent
	return b
}

// Validate checks the builder is complete enough to be persisted.
func (b *PunishmentBuilder) Validate() error {
	switch {
	case b.typ == nil:
		return fmt.Errorf("%w: type is required", ErrInvalidPunishment)
	case !b.typ.Valid():
		return fmt.Errorf("%w: unknown type %d", ErrInvalidPunishment, int(*b.typ))
	case b.target == nil || b.target.ID == "":
		return fmt.Errorf("%w: target is required", ErrInvalidPunishment)
	case b.punisher == nil || b.punisher.ID == "":
		return fmt.Errorf("%w: punisher is required", ErrInvalidPunishment)
	}
	if b.duration != nil {
		if !b.typ.Timed() {
			return fmt.Errorf("%w: %s cannot have a duration", ErrInvalidPunishment, *b.typ)
		}
		if *b.duration <= 0 {
			return fmt.Errorf("%w: duration must be positive", ErrInvalidPunishment)
		}
	}
	return nil
}

// Build produces the punishment the store will persist, stamped with id and createdAt.
func (b *PunishmentBuilder) Build(id int64, createdAt time.Time) Punishment {
	return Punishment{
		ID:        id,
		Type:      *b.typ,
		Target:    *b.target,
		Punisher:  *b.punisher,
		Reason:    b.reason,
		CreatedAt: createdAt,
		Duration:  b.duration,
		Silent:    b.silent,
	}
}
