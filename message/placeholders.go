package message

import (
	"context"
	"strconv"
	"strings"
	"time"

	"punish-bot/model"
	"punish-bot/utils"
	"punish-bot/utils/async"

	"github.com/dustin/go-humanize"
)

// Identity renders an identity's display name. Identities without a cached name are
// looked up through the composer's NameLookup.
func (c *Composer) Identity(name string, id model.Identity) Component {
	return c.Component(name, c.identityValue(id))
}

func (c *Composer) identityValue(id model.Identity) Value {
	if id.Name != "" || c.names == nil {
		return Immediate(id.DisplayName())
	}
	return Pending(c.names.DisplayName(context.Background(), id.ID))
}

// PunishmentComponents returns the placeholders describing p:
// id, type, target, target_id, punisher, punisher_id, reason, duration, expires,
// created, lifted_by, silent and status.
func (c *Composer) PunishmentComponents(p model.Punishment) Component {
	now := c.Now()
	values := map[string]Value{
		"id":          Immediate(strconv.FormatInt(p.ID, 10)),
		"type":        Immediate(p.Type.String()),
		"target":      c.identityValue(p.Target),
		"target_id":   Immediate(p.Target.ID),
		"punisher":    c.identityValue(p.Punisher),
		"punisher_id": Immediate(p.Punisher.ID),
		"reason":      Immediate(p.ReasonText()),
		"duration":    Immediate(durationText(p)),
		"expires":     Immediate(expiresText(p, now)),
		"created":     Immediate(humanize.RelTime(p.CreatedAt, now, "ago", "from now")),
		"silent":      Immediate(strconv.FormatBool(p.Silent)),
		"status":      Immediate(statusText(p, now)),
	}
	if p.LiftedBy != nil {
		values["lifted_by"] = c.identityValue(*p.LiftedBy)
	} else {
		values["lifted_by"] = Immediate("")
	}
	return c.Multiple(values)
}

func durationText(p model.Punishment) string {
	if p.Duration == nil {
		if p.Type.Timed() {
			return "permanent"
		}
		return ""
	}
	return utils.FormatDuration(*p.Duration)
}

func expiresText(p model.Punishment, now time.Time) string {
	expiresAt := p.ExpiresAt()
	if expiresAt == nil {
		return "permanent"
	}
	if !now.Before(*expiresAt) {
		return "expired " + humanize.RelTime(*expiresAt, now, "ago", "from now")
	}
	return "expires " + humanize.RelTime(*expiresAt, now, "ago", "from now")
}

func statusText(p model.Punishment, now time.Time) string {
	switch {
	case !p.Type.Liftable():
		return "recorded"
	case p.Lifted:
		return "lifted"
	case p.ActiveAt(now):
		return "active"
	default:
		return "expired"
	}
}

// Punishment renders key with the placeholders of p plus any extra components.
func (c *Composer) Punishment(ctx context.Context, key Key, p model.Punishment, extra ...Component) *async.Future[Message] {
	components := append([]Component{c.PunishmentComponents(p)}, extra...)
	return c.Render(ctx, key, components...)
}

// History renders the punishment history of target, one entry per line, oldest first.
func (c *Composer) History(ctx context.Context, target model.Identity, punishments []model.Punishment) *async.Future[Message] {
	if len(punishments) == 0 {
		return c.Render(ctx, HistoryEmpty, c.Identity("target", target))
	}

	header := c.Render(ctx, HistoryHeader,
		c.Identity("target", target),
		c.Text("count", strconv.Itoa(len(punishments))))
	entries := make([]*async.Future[Message], 0, len(punishments))
	for _, p := range punishments {
		entries = append(entries, c.Punishment(ctx, HistoryEntry, p))
	}

	return async.Go(func() (Message, error) {
		head, err := header.Await(ctx)
		if err != nil {
			return Message{}, err
		}
		lines := []string{head.Text}
		for _, entry := range entries {
			msg, err := entry.Await(ctx)
			if err != nil {
				return Message{}, err
			}
			lines = append(lines, strings.TrimSpace(msg.Text))
		}
		return Message{Key: HistoryHeader, Text: strings.Join(lines, "\n")}, nil
	})
}
