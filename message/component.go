package message

import (
	"context"
	"errors"

	"punish-bot/utils/async"
)

var errNilPending = errors.New("pending placeholder has no future")

// Value is a placeholder value: either an immediate string or a pending one.
// Pending values are awaited exactly one level deep.
type Value struct {
	text    string
	pending *async.Future[string]
}

// Immediate wraps a value that is already known.
func Immediate(text string) Value {
	return Value{text: text}
}

// Pending wraps a value that becomes available once f completes.
func Pending(f *async.Future[string]) Value {
	if f == nil {
		return Value{pending: async.Failed[string](errNilPending)}
	}
	return Value{pending: f}
}

// IsPending reports whether the value still has to be awaited.
func (v Value) IsPending() bool {
	return v.pending != nil
}

// Component is a resolved-or-resolving set of placeholder values. Named components carry
// a single placeholder; bundles carry several and have no name.
type Component struct {
	name   string
	values *async.Future[map[string]string]
}

// Name returns the placeholder name, or "" for a bundle.
func (c Component) Name() string {
	return c.name
}

// Ready reports whether the component has settled.
func (c Component) Ready() bool {
	_, _, done := c.values.Result()
	return done
}

// Await waits for the component's values. Placeholder failures have already been replaced
// with fallbacks, so the only error is ctx expiring.
func (c Component) Await(ctx context.Context) (map[string]string, error) {
	return c.values.Await(ctx)
}
