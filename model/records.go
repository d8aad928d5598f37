package model

import (
	"database/sql"
	"time"
)

// PunishmentRecord represents a single row of the punishments table.
type PunishmentRecord struct {
	ID         int64          `db:"id"` // Primary Key, Auto-increment
	Type       int            `db:"punishment_type"`
	TargetID   string         `db:"target_id"`
	PunisherID string         `db:"punisher_id"`
	Reason     sql.NullString `db:"reason"`
	Lifted     bool           `db:"lifted"`
	LiftedByID sql.NullString `db:"lifted_by_id"`
	LiftedAt   sql.NullInt64  `db:"lifted_at"`  // unix millis
	CreatedAt  int64          `db:"created_at"` // unix millis
	Duration   sql.NullInt64  `db:"duration"`   // millis, NULL = permanent
	Silent     bool           `db:"silent"`
}

// UserRecord represents a row of the users table.
type UserRecord struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	UpdatedAt int64  `db:"updated_at"`
}

// UserNameRecord represents a row of the user_names table.
type UserNameRecord struct {
	UserID    string `db:"user_id"`
	Name      string `db:"name"`
	FirstSeen int64  `db:"first_seen"`
}

// ToPunishment converts the row into the domain value. Identity names are not stored
// on the row and are left empty.
func (r PunishmentRecord) ToPunishment() Punishment {
	p := Punishment{
		ID:        r.ID,
		Type:      PunishmentType(r.Type),
		Target:    Identity{ID: r.TargetID},
		Punisher:  Identity{ID: r.PunisherID},
		CreatedAt: time.UnixMilli(r.CreatedAt),
		Lifted:    r.Lifted,
		Silent:    r.Silent,
	}
	if r.Reason.Valid {
		reason := r.Reason.String
		p.Reason = &reason
	}
	if r.Duration.Valid {
		d := time.Duration(r.Duration.Int64) * time.Millisecond
		p.Duration = &d
	}
	if r.LiftedByID.Valid {
		by := Identity{ID: r.LiftedByID.String}
		p.LiftedBy = &by
	}
	if r.LiftedAt.Valid {
		at := time.UnixMilli(r.LiftedAt.Int64)
		p.LiftedAt = &at
	}
	return p
}

// NewPunishmentRecord converts a punishment into its row form.
func NewPunishmentRecord(p Punishment) PunishmentRecord {
	r := PunishmentRecord{
		ID:         p.ID,
		Type:       int(p.Type),
		TargetID:   p.Target.ID,
		PunisherID: p.Punisher.ID,
		Lifted:     p.Lifted,
		CreatedAt:  p.CreatedAt.UnixMilli(),
		Silent:     p.Silent,
	}
	if p.Reason != nil {
		r.Reason = sql.NullString{String: *p.Reason, Valid: true}
	}
	if p.Duration != nil {
		r.Duration = sql.NullInt64{Int64: p.Duration.Milliseconds(), Valid: true}
	}
	if p.LiftedBy != nil {
		r.LiftedByID = sql.NullString{String: p.LiftedBy.ID, Valid: true}
	}
	if p.LiftedAt != nil {
		r.LiftedAt = sql.NullInt64{Int64: p.LiftedAt.UnixMilli(), Valid: true}
	}
	return r
}
