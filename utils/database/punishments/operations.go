package punishments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"punish-bot/model"

	"github.com/jmoiron/sqlx"
)

const selectPunishments = `SELECT p.*,
		t.name AS target_name,
		pu.name AS punisher_name,
		lb.name AS lifted_by_name
	FROM punishments p
	LEFT JOIN users t ON t.id = p.target_id
	LEFT JOIN users pu ON pu.id = p.punisher_id
	LEFT JOIN users lb ON lb.id = p.lifted_by_id`

type punishmentRow struct {
	model.PunishmentRecord
	TargetName   sql.NullString `db:"target_name"`
	PunisherName sql.NullString `db:"punisher_name"`
	LiftedByName sql.NullString `db:"lifted_by_name"`
}

func (r punishmentRow) toPunishment() model.Punishment {
	p := r.PunishmentRecord.ToPunishment()
	p.Target.Name, p.Target.Resolved = r.TargetName.String, r.TargetName.Valid
	p.Punisher.Name, p.Punisher.Resolved = r.PunisherName.String, r.PunisherName.Valid
	if p.LiftedBy != nil {
		p.LiftedBy.Name, p.LiftedBy.Resolved = r.LiftedByName.String, r.LiftedByName.Valid
	}
	return p
}

// Store persists punishments and the identities they reference. Every call acquires a
// connection for its own duration only, bounded by Timeout.
type Store struct {
	db      *sqlx.DB
	Timeout time.Duration
	Now     func() time.Time
}

// NewStore wraps db. A zero timeout defaults to five seconds.
func NewStore(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{db: db, Timeout: timeout, Now: time.Now}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.Timeout)
}

func storageErr(op string, err error) error {
	return &model.StorageError{Op: op, Err: err}
}

// GetPunishments returns every punishment of targetID, oldest first. No punishments is
// an empty slice, not an error.
func (s *Store) GetPunishments(ctx context.Context, targetID string) ([]model.Punishment, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	var rows []punishmentRow
	query := selectPunishments + ` WHERE p.target_id = ? ORDER BY p.created_at ASC, p.id ASC`
	if err := s.db.SelectContext(ctx, &rows, query, targetID); err != nil {
		return nil, storageErr("get punishments", fmt.Errorf("failed to get punishment records for target %s: %w", targetID, err))
	}

	punishments := make([]model.Punishment, 0, len(rows))
	for _, row := range rows {
		punishments = append(punishments, row.toPunishment())
	}
	return punishments, nil
}

// GetPunishment retrieves a single punishment by its primary key.
func (s *Store) GetPunishment(ctx context.Context, id int64) (model.Punishment, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	var row punishmentRow
	if err := s.db.GetContext(ctx, &row, selectPunishments+` WHERE p.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = model.ErrNotFound
		}
		return model.Punishment{}, storageErr("get punishment", fmt.Errorf("failed to get punishment record by id %d: %w", id, err))
	}
	return row.toPunishment(), nil
}

// Save assigns an ID and creation time to the built punishment and persists it.
func (s *Store) Save(ctx context.Context, builder *model.PunishmentBuilder) (model.Punishment, error) {
	if err := builder.Validate(); err != nil {
		return model.Punishment{}, err
	}
	ctx, cancel := s.scope(ctx)
	defer cancel()

	p := builder.Build(0, s.Now().Truncate(time.Millisecond))
	record := model.NewPunishmentRecord(p)

	query := `INSERT INTO punishments (punishment_type, target_id, punisher_id, reason, lifted, lifted_by_id, lifted_at, created_at, duration, silent)
			  VALUES (:punishment_type, :target_id, :punisher_id, :reason, :lifted, :lifted_by_id, :lifted_at, :created_at, :duration, :silent)`
	result, err := s.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return model.Punishment{}, storageErr("save punishment", fmt.Errorf("failed to insert punishment record: %w", err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Punishment{}, storageErr("save punishment", fmt.Errorf("failed to get last insert ID: %w", err))
	}
	p.ID = id
	return p, nil
}

// Lift marks p as lifted by liftedBy. The update only matches rows that are not lifted
// yet, so a racing lift is detected through the affected row count.
func (s *Store) Lift(ctx context.Context, p model.Punishment, liftedBy model.Identity) (model.Punishment, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	liftedAt := s.Now().Truncate(time.Millisecond)
	result, err := s.db.ExecContext(ctx,
		`UPDATE punishments SET lifted = 1, lifted_by_id = ?, lifted_at = ? WHERE id = ? AND lifted = 0`,
		liftedBy.ID, liftedAt.UnixMilli(), p.ID)
	if err != nil {
		return p, storageErr("lift punishment", fmt.Errorf("failed to lift punishment ID %d: %w", p.ID, err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return p, storageErr("lift punishment", fmt.Errorf("failed to check rows affected for punishment ID %d: %w", p.ID, err))
	}
	if rowsAffected == 0 {
		var count int
		if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM punishments WHERE id = ?`, p.ID); err != nil {
			return p, storageErr("lift punishment", fmt.Errorf("failed to check punishment ID %d: %w", p.ID, err))
		}
		if count == 0 {
			return p, storageErr("lift punishment", fmt.Errorf("no punishment found with ID %d: %w", p.ID, model.ErrNotFound))
		}
		return p, model.ErrConcurrentLift
	}

	p.Lifted = true
	p.LiftedBy = &liftedBy
	p.LiftedAt = &liftedAt
	return p, nil
}

// GetExpiredBetween returns timed punishments that are not lifted and whose expiry falls
// in (from, to].
func (s *Store) GetExpiredBetween(ctx context.Context, from, to time.Time) ([]model.Punishment, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	var rows []punishmentRow
	query := selectPunishments + ` WHERE p.lifted = 0
			  AND p.duration IS NOT NULL
			  AND p.created_at + p.duration > ?
			  AND p.created_at + p.duration <= ?
			  ORDER BY p.created_at + p.duration ASC`
	if err := s.db.SelectContext(ctx, &rows, query, from.UnixMilli(), to.UnixMilli()); err != nil {
		return nil, storageErr("get expired punishments", fmt.Errorf("failed to get expired punishments: %w", err))
	}

	punishments := make([]model.Punishment, 0, len(rows))
	for _, row := range rows {
		punishments = append(punishments, row.toPunishment())
	}
	return punishments, nil
}

// CountActive returns the number of active punishments per liftable type at now.
func (s *Store) CountActive(ctx context.Context, now time.Time) (map[model.PunishmentType]int, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	query := `SELECT punishment_type, COUNT(*) AS count FROM punishments
			  WHERE lifted = 0
			  AND punishment_type IN (?, ?)
			  AND (duration IS NULL OR created_at + duration > ?)
			  GROUP BY punishment_type`
	rows, err := s.db.QueryContext(ctx, query, int(model.PunishmentBan), int(model.PunishmentMute), now.UnixMilli())
	if err != nil {
		return nil, storageErr("count active", fmt.Errorf("failed to count active punishments: %w", err))
	}
	defer rows.Close()

	counts := make(map[model.PunishmentType]int)
	for rows.Next() {
		var typ, count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, storageErr("count active", fmt.Errorf("failed to scan active punishment count row: %w", err))
		}
		counts[model.PunishmentType(typ)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("count active", err)
	}
	return counts, nil
}
