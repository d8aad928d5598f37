package punishments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"punish-bot/model"
)

// UpsertUser records the current name of a user and appends it to their name history.
func (s *Store) UpsertUser(ctx context.Context, id, name string) (model.Identity, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	now := s.Now().UnixMilli()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Identity{}, storageErr("upsert user", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, name, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		id, name, now); err != nil {
		return model.Identity{}, storageErr("upsert user", fmt.Errorf("failed to upsert user %s: %w", id, err))
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_names (user_id, name, first_seen) VALUES (?, ?, ?)`,
		id, name, now); err != nil {
		return model.Identity{}, storageErr("upsert user", fmt.Errorf("failed to record name of user %s: %w", id, err))
	}
	if err := tx.Commit(); err != nil {
		return model.Identity{}, storageErr("upsert user", fmt.Errorf("failed to commit user %s: %w", id, err))
	}
	return model.Identity{ID: id, Name: name, Resolved: true}, nil
}

// GetUser returns the stored identity for id, or nil if the user has never been recorded.
func (s *Store) GetUser(ctx context.Context, id string) (*model.Identity, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	var record model.UserRecord
	err := s.db.GetContext(ctx, &record, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get user", fmt.Errorf("failed to get user %s: %w", id, err))
	}
	return &model.Identity{ID: record.ID, Name: record.Name, Resolved: true}, nil
}

// FindUserByName looks a user up by current name first, then by any past name
// (most recently adopted wins). Matching is case-insensitive.
func (s *Store) FindUserByName(ctx context.Context, name string) (*model.Identity, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	var record model.UserRecord
	err := s.db.GetContext(ctx, &record,
		`SELECT * FROM users WHERE name = ? COLLATE NOCASE ORDER BY updated_at DESC LIMIT 1`, name)
	if err == nil {
		return &model.Identity{ID: record.ID, Name: record.Name, Resolved: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, storageErr("find user", fmt.Errorf("failed to find user named %s: %w", name, err))
	}

	err = s.db.GetContext(ctx, &record,
		`SELECT u.* FROM user_names n JOIN users u ON u.id = n.user_id
		 WHERE n.name = ? COLLATE NOCASE ORDER BY n.first_seen DESC LIMIT 1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find user", fmt.Errorf("failed to find user by past name %s: %w", name, err))
	}
	return &model.Identity{ID: record.ID, Name: record.Name, Resolved: true}, nil
}

// GetNameHistory returns every name recorded for id, oldest first, or nil when none.
func (s *Store) GetNameHistory(ctx context.Context, id string) (*model.NameHistory, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	var records []model.UserNameRecord
	if err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM user_names WHERE user_id = ? ORDER BY first_seen ASC, name ASC`, id); err != nil {
		return nil, storageErr("get name history", fmt.Errorf("failed to get name history for %s: %w", id, err))
	}
	if len(records) == 0 {
		return nil, nil
	}

	history := &model.NameHistory{UserID: id}
	for _, r := range records {
		history.Entries = append(history.Entries, model.NameEntry{Name: r.Name, FirstSeen: time.UnixMilli(r.FirstSeen)})
	}
	return history, nil
}
