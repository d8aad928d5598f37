package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"punish-bot/model"
	"punish-bot/utils/async"
)

// MaxExpiryAttempts bounds how often a failed expiry notice is retried.
const MaxExpiryAttempts = 5

// ExpiryStore lists timed punishments that lapsed inside a window.
type ExpiryStore interface {
	GetExpiredBetween(ctx context.Context, from, to time.Time) ([]model.Punishment, error)
}

// ExpiryNotifier reports a lapsed punishment.
type ExpiryNotifier interface {
	Expired(ctx context.Context, p model.Punishment) *async.Future[struct{}]
}

type pendingExpiry struct {
	punishment model.Punishment
	attempts   int
}

// PunishmentTimer remembers where the previous sweep stopped so every expiry is reported once.
// Notices that fail are kept aside and retried on later sweeps.
type PunishmentTimer struct {
	store    ExpiryStore
	notifier ExpiryNotifier
	last     time.Time
	retry    []pendingExpiry
}

// NewPunishmentTimer starts sweeping from since. Expiries before it are never reported.
func NewPunishmentTimer(store ExpiryStore, notifier ExpiryNotifier, since time.Time) *PunishmentTimer {
	return &PunishmentTimer{store: store, notifier: notifier, last: since}
}

// Sweep reports every punishment that expired since the previous sweep, up to now, along
// with the notices that failed before. The window advances once it has been fetched.
func (t *PunishmentTimer) Sweep(ctx context.Context, now time.Time) (int, error) {
	pending := t.retry
	var fetchErr error
	if now.After(t.last) {
		expired, err := t.store.GetExpiredBetween(ctx, t.last, now)
		if err != nil {
			fetchErr = expiredWindowError(t.last, now, err)
		} else {
			t.last = now
			for _, p := range expired {
				if !hasPending(pending, p.ID) {
					pending = append(pending, pendingExpiry{punishment: p})
				}
			}
		}
	}
	if len(pending) == 0 {
		return 0, fetchErr
	}

	ps := make([]model.Punishment, len(pending))
	for i, e := range pending {
		ps[i] = e.punishment
	}
	notified, failed, err := notifyAll(ctx, t.notifier, ps)

	t.retry = nil
	for _, i := range failed {
		e := pending[i]
		e.attempts++
		if e.attempts >= MaxExpiryAttempts {
			log.Printf("[Scanner] Giving up on expired %s #%d of %s after %d attempts", e.punishment.Type, e.punishment.ID, e.punishment.Target.ID, e.attempts)
			continue
		}
		t.retry = append(t.retry, e)
	}
	return notified, errors.Join(fetchErr, err)
}

// Pending reports how many failed notices wait for the next sweep.
func (t *PunishmentTimer) Pending() int {
	return len(t.retry)
}

// SweepExpired notifies every punishment whose expiry falls in (from, to] and returns how
// many notices were delivered.
func SweepExpired(ctx context.Context, store ExpiryStore, notifier ExpiryNotifier, from, to time.Time) (int, error) {
	expired, err := store.GetExpiredBetween(ctx, from, to)
	if err != nil {
		return 0, expiredWindowError(from, to, err)
	}
	notified, _, err := notifyAll(ctx, notifier, expired)
	return notified, err
}

// notifyAll sends every notice at once, then returns the delivered count and the
// indexes of the ones that failed.
func notifyAll(ctx context.Context, notifier ExpiryNotifier, expired []model.Punishment) (int, []int, error) {
	futures := make([]*async.Future[struct{}], len(expired))
	for i, p := range expired {
		futures[i] = notifier.Expired(ctx, p)
	}

	var errs []error
	var failed []int
	notified := 0
	for i, f := range futures {
		if _, err := f.Await(ctx); err != nil {
			p := expired[i]
			log.Printf("[Scanner] Failed to report expired %s #%d of %s: %v", p.Type, p.ID, p.Target.ID, err)
			errs = append(errs, err)
			failed = append(failed, i)
			continue
		}
		notified++
	}
	return notified, failed, errors.Join(errs...)
}

func expiredWindowError(from, to time.Time, err error) error {
	return fmt.Errorf("failed to get punishments expired between %s and %s: %w", from.Format(time.RFC3339), to.Format(time.RFC3339), err)
}

func hasPending(pending []pendingExpiry, id int64) bool {
	for _, e := range pending {
		if e.punishment.ID == id {
			return true
		}
	}
	return false
}
