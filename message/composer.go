// Package message renders message templates whose placeholders may only become known
// after an asynchronous lookup, such as turning a user ID into a display name.
package message

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"punish-bot/utils/async"

	"golang.org/x/sync/errgroup"
)

// Message is a fully rendered template.
type Message struct {
	Key  Key
	Text string
}

// NameLookup resolves a user ID to a display name.
type NameLookup interface {
	DisplayName(ctx context.Context, id string) *async.Future[string]
}

// Composer builds components and renders templates with them.
type Composer struct {
	templates *Templates
	names     NameLookup

	// ResolveTimeout bounds how long a pending placeholder is awaited before it falls back.
	ResolveTimeout time.Duration
	// OnFallback, if set, is called whenever a placeholder falls back to "".
	OnFallback func(placeholder string, err error)
	Now        func() time.Time
}

// NewComposer creates a composer. names may be nil, in which case identities render with
// whatever name they already carry.
func NewComposer(templates *Templates, names NameLookup, resolveTimeout time.Duration) *Composer {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if resolveTimeout <= 0 {
		resolveTimeout = 3 * time.Second
	}
	return &Composer{
		templates:      templates,
		names:          names,
		ResolveTimeout: resolveTimeout,
		Now:            time.Now,
	}
}

// Templates returns the template table used for rendering.
func (c *Composer) Templates() *Templates {
	return c.templates
}

func (c *Composer) fallback(placeholder string, err error) {
	log.Printf("[Composer] placeholder %q fell back to empty: %v", placeholder, err)
	if c.OnFallback != nil {
		c.OnFallback(placeholder, err)
	}
}

// await waits for a pending value for at most ResolveTimeout. Failure yields ok == false.
func (c *Composer) await(name string, f *async.Future[string]) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.ResolveTimeout)
	defer cancel()
	text, err := f.Await(ctx)
	if err != nil {
		c.fallback(name, err)
		return "", false
	}
	return text, true
}

// Component wraps a single named placeholder. Immediate values are ready at once; a
// pending value is awaited in the background and a failure becomes "".
func (c *Composer) Component(name string, v Value) Component {
	if !v.IsPending() {
		return Component{name: name, values: async.Completed(map[string]string{name: v.text})}
	}
	if text, err, done := v.pending.Result(); done {
		if err != nil {
			c.fallback(name, err)
			text = ""
		}
		return Component{name: name, values: async.Completed(map[string]string{name: text})}
	}
	return Component{name: name, values: async.Go(func() (map[string]string, error) {
		text, _ := c.await(name, v.pending)
		return map[string]string{name: text}, nil
	})}
}

// Text is shorthand for Component(name, Immediate(text)).
func (c *Composer) Text(name, text string) Component {
	return c.Component(name, Immediate(text))
}

// Lazy is shorthand for Component(name, Pending(f)).
func (c *Composer) Lazy(name string, f *async.Future[string]) Component {
	return c.Component(name, Pending(f))
}

// Multiple bundles several placeholders into one component that settles once every
// value has settled.
func (c *Composer) Multiple(values map[string]Value) Component {
	parts := make([]Component, 0, len(values))
	for _, name := range sortedKeys(values) {
		parts = append(parts, c.Component(name, values[name]))
	}
	if allReady(parts) {
		merged, _ := gather(context.Background(), parts)
		return Component{values: async.Completed(merged)}
	}
	return Component{values: async.Go(func() (map[string]string, error) {
		return gather(context.Background(), parts)
	})}
}

// MultipleLater bundles placeholders whose whole map is pending. A failure drops every
// placeholder of the bundle.
func (c *Composer) MultipleLater(f *async.Future[map[string]string]) Component {
	bounded := async.Go(func() (map[string]string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), c.ResolveTimeout)
		defer cancel()
		return f.Await(ctx)
	})
	return Component{values: async.Catch(bounded, func(err error) map[string]string {
		c.fallback("<bundle>", err)
		return map[string]string{}
	})}
}

// Render resolves the template for key with components. When every component is
// already settled the returned future is complete on return; otherwise only the returned
// future waits. Placeholder failures never fail the render.
func (c *Composer) Render(ctx context.Context, key Key, components ...Component) *async.Future[Message] {
	template := c.templates.Get(key)
	if allReady(components) {
		values, _ := gather(ctx, components)
		return async.Completed(Message{Key: key, Text: substitute(template, values)})
	}
	return async.Go(func() (Message, error) {
		values, err := gather(ctx, components)
		if err != nil {
			return Message{}, err
		}
		return Message{Key: key, Text: substitute(template, values)}, nil
	})
}

// RenderNow renders a template whose components are all immediate.
func (c *Composer) RenderNow(key Key, values map[string]string) Message {
	return Message{Key: key, Text: substitute(c.templates.Get(key), values)}
}

// gather waits for every component and merges their values. A name supplied by more
// than one component resolves independently of argument order: a named component wins
// over a bundle, and otherwise the lexically smallest value wins.
func gather(ctx context.Context, components []Component) (map[string]string, error) {
	results := make([]map[string]string, len(components))
	g, ctx := errgroup.WithContext(ctx)
	for i, comp := range components {
		g.Go(func() error {
			values, err := comp.Await(ctx)
			if err != nil {
				return err
			}
			results[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]string)
	named := make(map[string]bool)
	for i, values := range results {
		isNamed := components[i].name != ""
		for k, v := range values {
			old, seen := merged[k]
			switch {
			case !seen, isNamed && !named[k]:
				merged[k] = v
			case isNamed == named[k] && v < old:
				merged[k] = v
			}
			if isNamed {
				named[k] = true
			}
		}
	}
	return merged, nil
}

func allReady(components []Component) bool {
	for _, comp := range components {
		if !comp.Ready() {
			return false
		}
	}
	return true
}

// substitute replaces every {name} token in one pass, so substituted text is never
// scanned again. Tokens without a value are left as written.
func substitute(template string, values map[string]string) string {
	if len(values) == 0 {
		return template
	}
	pairs := make([]string, 0, len(values)*2)
	for _, name := range sortedKeys(values) {
		pairs = append(pairs, "{"+name+"}", values[name])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
