// Package identity resolves Discord mentions, IDs and names to durable identities and
// keeps the users table current.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"punish-bot/model"
	"punish-bot/utils/async"

	"github.com/bwmarrin/discordgo"
)

var (
	mentionPattern   = regexp.MustCompile(`^<@!?(\d+)>$`)
	snowflakePattern = regexp.MustCompile(`^\d{15,21}$`)
)

// UserStore is the part of the punishment store that tracks users.
type UserStore interface {
	UpsertUser(ctx context.Context, id, name string) (model.Identity, error)
	GetUser(ctx context.Context, id string) (*model.Identity, error)
	FindUserByName(ctx context.Context, name string) (*model.Identity, error)
	GetNameHistory(ctx context.Context, id string) (*model.NameHistory, error)
}

// Discord is the subset of *discordgo.Session the resolver queries.
type Discord interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	GuildMembersSearch(guildID, query string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

// Resolver resolves identifiers from the store first and falls back to Discord,
// recording every user it learns about.
type Resolver struct {
	store   UserStore
	discord Discord
	pool    *async.Pool
	// GuildIDs lists the guilds searched when resolving by name.
	GuildIDs func() []string
}

func NewResolver(store UserStore, discord Discord, pool *async.Pool) *Resolver {
	return &Resolver{
		store:    store,
		discord:  discord,
		pool:     pool,
		GuildIDs: func() []string { return nil },
	}
}

// Name returns the name a Discord user is shown with.
func Name(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// ParseID extracts a user ID from a mention or a raw snowflake.
func ParseID(identifier string) (string, bool) {
	identifier = strings.TrimSpace(identifier)
	if m := mentionPattern.FindStringSubmatch(identifier); m != nil {
		return m[1], true
	}
	if snowflakePattern.MatchString(identifier) {
		return identifier, true
	}
	return "", false
}

// Resolve looks identifier up as a mention, an ID or a name. Unknown users resolve to nil.
func (r *Resolver) Resolve(ctx context.Context, identifier string) *async.Future[*model.Identity] {
	return async.Submit(ctx, r.pool, func(ctx context.Context) (*model.Identity, error) {
		if id, ok := ParseID(identifier); ok {
			return r.resolveID(ctx, id)
		}
		return r.resolveName(ctx, strings.TrimSpace(identifier))
	})
}

func (r *Resolver) resolveID(ctx context.Context, id string) (*model.Identity, error) {
	known, err := r.store.GetUser(ctx, id)
	if err != nil || known != nil {
		return known, err
	}

	user, err := r.discord.User(id, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch user %s: %w", id, err)
	}
	identity, err := r.store.UpsertUser(ctx, user.ID, Name(user))
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *Resolver) resolveName(ctx context.Context, name string) (*model.Identity, error) {
	if name == "" {
		return nil, nil
	}
	known, err := r.store.FindUserByName(ctx, name)
	if err != nil || known != nil {
		return known, err
	}

	for _, guildID := range r.GuildIDs() {
		members, err := r.discord.GuildMembersSearch(guildID, name, 10, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to search members of guild %s: %w", guildID, err)
		}
		for _, member := range members {
			if member.User == nil || !matches(member, name) {
				continue
			}
			identity, err := r.store.UpsertUser(ctx, member.User.ID, Name(member.User))
			if err != nil {
				return nil, err
			}
			return &identity, nil
		}
	}
	return nil, nil
}

func matches(member *discordgo.Member, name string) bool {
	for _, candidate := range []string{member.User.Username, member.User.GlobalName, member.Nick} {
		if candidate != "" && strings.EqualFold(candidate, name) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// History returns every name the user has been seen with, or nil.
func (r *Resolver) History(ctx context.Context, id string) *async.Future[*model.NameHistory] {
	return async.Submit(ctx, r.pool, func(ctx context.Context) (*model.NameHistory, error) {
		return r.store.GetNameHistory(ctx, id)
	})
}

// DisplayName resolves the current name of id. Unknown users fail with ErrNotFound.
func (r *Resolver) DisplayName(ctx context.Context, id string) *async.Future[string] {
	return async.Submit(ctx, r.pool, func(ctx context.Context) (string, error) {
		identity, err := r.resolveID(ctx, id)
		if err != nil {
			return "", err
		}
		if identity == nil {
			return "", fmt.Errorf("user %s: %w", id, model.ErrNotFound)
		}
		return identity.DisplayName(), nil
	})
}

// Record stores the current name of a user seen on the platform.
func (r *Resolver) Record(ctx context.Context, user *discordgo.User) *async.Future[model.Identity] {
	return async.Submit(ctx, r.pool, func(ctx context.Context) (model.Identity, error) {
		return r.store.UpsertUser(ctx, user.ID, Name(user))
	})
}
