package message

import (
	"sync"

	"punish-bot/model"
)

// Key names a message template.
type Key string

const (
	BroadcastBanReasoned    Key = "broadcast.ban.reasoned"
	BroadcastBanReasonless  Key = "broadcast.ban.reasonless"
	BroadcastUnban          Key = "broadcast.unban"
	BroadcastKickReasoned   Key = "broadcast.kick.reasoned"
	BroadcastKickReasonless Key = "broadcast.kick.reasonless"
	BroadcastMuteReasoned   Key = "broadcast.mute.reasoned"
	BroadcastMuteReasonless Key = "broadcast.mute.reasonless"
	BroadcastUnmute         Key = "broadcast.unmute"
	BroadcastWarnReasoned   Key = "broadcast.warn.reasoned"
	BroadcastWarnReasonless Key = "broadcast.warn.reasonless"

	ApplicationBanReasoned    Key = "application.ban.reasoned"
	ApplicationBanReasonless  Key = "application.ban.reasonless"
	ApplicationKickReasoned   Key = "application.kick.reasoned"
	ApplicationKickReasonless Key = "application.kick.reasonless"
	ApplicationMuteReasoned   Key = "application.mute.reasoned"
	ApplicationMuteReasonless Key = "application.mute.reasonless"
	ApplicationWarnReasoned   Key = "application.warn.reasoned"
	ApplicationWarnReasonless Key = "application.warn.reasonless"

	ExpiredBan  Key = "expired.ban"
	ExpiredMute Key = "expired.mute"

	FeedbackBan    Key = "feedback.ban"
	FeedbackMute   Key = "feedback.mute"
	FeedbackKick   Key = "feedback.kick"
	FeedbackWarn   Key = "feedback.warn"
	FeedbackNote   Key = "feedback.note"
	FeedbackUnban  Key = "feedback.unban"
	FeedbackUnmute Key = "feedback.unmute"

	ErrorNoBan          Key = "error.no-ban"
	ErrorNoMute         Key = "error.no-mute"
	ErrorUnresolved     Key = "error.unresolved"
	ErrorStorage        Key = "error.storage"
	ErrorConcurrentLift Key = "error.concurrent-lift"
	ErrorAlreadyLifted  Key = "error.already-lifted"
	ErrorNoPermission   Key = "error.no-permission"
	ErrorInvalid        Key = "error.invalid"

	HistoryHeader Key = "history.header"
	HistoryEntry  Key = "history.entry"
	HistoryEmpty  Key = "history.empty"
)

var defaultTemplates = map[Key]string{
	BroadcastBanReasoned:    "🔨 **{target}** was banned by **{punisher}** ({duration}): {reason}",
	BroadcastBanReasonless:  "🔨 **{target}** was banned by **{punisher}** ({duration}).",
	BroadcastUnban:          "🔓 **{target}** was unbanned by **{lifted_by}**.",
	BroadcastKickReasoned:   "👢 **{target}** was kicked by **{punisher}**: {reason}",
	BroadcastKickReasonless: "👢 **{target}** was kicked by **{punisher}**.",
	BroadcastMuteReasoned:   "🔇 **{target}** was muted by **{punisher}** ({duration}): {reason}",
	BroadcastMuteReasonless: "🔇 **{target}** was muted by **{punisher}** ({duration}).",
	BroadcastUnmute:         "🔊 **{target}** was unmuted by **{lifted_by}**.",
	BroadcastWarnReasoned:   "⚠️ **{target}** was warned by **{punisher}**: {reason}",
	BroadcastWarnReasonless: "⚠️ **{target}** was warned by **{punisher}**.",

	ApplicationBanReasoned:    "You are banned from this server ({expires}): {reason}",
	ApplicationBanReasonless:  "You are banned from this server ({expires}).",
	ApplicationKickReasoned:   "You were kicked from this server: {reason}",
	ApplicationKickReasonless: "You were kicked from this server.",
	ApplicationMuteReasoned:   "You are muted ({expires}): {reason}",
	ApplicationMuteReasonless: "You are muted ({expires}).",
	ApplicationWarnReasoned:   "You have been warned by {punisher}: {reason}",
	ApplicationWarnReasonless: "You have been warned by {punisher}.",

	ExpiredBan:  "⌛ The ban of **{target}** (#{id}) has expired.",
	ExpiredMute: "⌛ The mute of **{target}** (#{id}) has expired.",

	FeedbackBan:    "✅ Banned {target} (#{id}).",
	FeedbackMute:   "✅ Muted {target} (#{id}).",
	FeedbackKick:   "✅ Kicked {target} (#{id}).",
	FeedbackWarn:   "✅ Warned {target} (#{id}).",
	FeedbackNote:   "✅ Added a note to {target} (#{id}).",
	FeedbackUnban:  "✅ Unbanned {target}.",
	FeedbackUnmute: "✅ Unmuted {target}.",

	ErrorNoBan:          "❌ {target} is not banned.",
	ErrorNoMute:         "❌ {target} is not muted.",
	ErrorUnresolved:     "❌ Could not find a user called {identifier}.",
	ErrorStorage:        "❌ The punishment database is unavailable, try again later.",
	ErrorConcurrentLift: "❌ That punishment was lifted by someone else just now.",
	ErrorAlreadyLifted:  "❌ That punishment is already lifted.",
	ErrorNoPermission:   "❌ You do not have permission to use this command.",
	ErrorInvalid:        "❌ {error}",

	HistoryHeader: "📜 Punishment history of **{target}** ({count} entries)",
	HistoryEntry:  "`#{id}` **{type}** by {punisher} {created} [{status}] {reason}",
	HistoryEmpty:  "📜 **{target}** has no punishments.",
}

// Templates holds the template text for every key. Lookups of unknown keys return the
// key itself so a missing template is visible rather than silent.
type Templates struct {
	mu    sync.RWMutex
	texts map[Key]string
}

// DefaultTemplates returns a table holding the built-in templates.
func DefaultTemplates() *Templates {
	texts := make(map[Key]string, len(defaultTemplates))
	for k, v := range defaultTemplates {
		texts[k] = v
	}
	return &Templates{texts: texts}
}

// Get returns the template for key.
func (t *Templates) Get(key Key) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if text, ok := t.texts[key]; ok {
		return text
	}
	return string(key)
}

// Override replaces templates by key; empty values are ignored.
func (t *Templates) Override(texts map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range texts {
		if v == "" {
			continue
		}
		t.texts[Key(k)] = v
	}
}

type broadcastSelector struct {
	typ      model.PunishmentType
	reasoned bool
	lifted   bool
}

type applicationSelector struct {
	typ      model.PunishmentType
	reasoned bool
}

var broadcastKeys = map[broadcastSelector]Key{
	{model.PunishmentBan, true, false}:      BroadcastBanReasoned,
	{model.PunishmentBan, false, false}:     BroadcastBanReasonless,
	{model.PunishmentBan, true, true}:       BroadcastUnban,
	{model.PunishmentBan, false, true}:      BroadcastUnban,
	{model.PunishmentKick, true, false}:     BroadcastKickReasoned,
	{model.PunishmentKick, false, false}:    BroadcastKickReasonless,
	{model.PunishmentMute, true, false}:     BroadcastMuteReasoned,
	{model.PunishmentMute, false, false}:    BroadcastMuteReasonless,
	{model.PunishmentMute, true, true}:      BroadcastUnmute,
	{model.PunishmentMute, false, true}:     BroadcastUnmute,
	{model.PunishmentWarning, true, false}:  BroadcastWarnReasoned,
	{model.PunishmentWarning, false, false}: BroadcastWarnReasonless,
}

var applicationKeys = map[applicationSelector]Key{
	{model.PunishmentBan, true}:      ApplicationBanReasoned,
	{model.PunishmentBan, false}:     ApplicationBanReasonless,
	{model.PunishmentKick, true}:     ApplicationKickReasoned,
	{model.PunishmentKick, false}:    ApplicationKickReasonless,
	{model.PunishmentMute, true}:     ApplicationMuteReasoned,
	{model.PunishmentMute, false}:    ApplicationMuteReasonless,
	{model.PunishmentWarning, true}:  ApplicationWarnReasoned,
	{model.PunishmentWarning, false}: ApplicationWarnReasonless,
}

var expiredKeys = map[model.PunishmentType]Key{
	model.PunishmentBan:  ExpiredBan,
	model.PunishmentMute: ExpiredMute,
}

// BroadcastKey selects the announcement template for p. NOTE has none.
func BroadcastKey(p model.Punishment) (Key, bool) {
	key, ok := broadcastKeys[broadcastSelector{p.Type, p.HasReason(), p.Lifted}]
	return key, ok
}

// ApplicationKey selects the message shown to the target of p.
func ApplicationKey(p model.Punishment) (Key, bool) {
	key, ok := applicationKeys[applicationSelector{p.Type, p.HasReason()}]
	return key, ok
}

// ExpiredKey selects the expiry notice for p.
func ExpiredKey(p model.Punishment) (Key, bool) {
	key, ok := expiredKeys[p.Type]
	return key, ok
}
