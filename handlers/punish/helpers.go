package punish

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"punish-bot/message"
	"punish-bot/model"
	"punish-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// maxReplyLength is Discord's message content limit.
const maxReplyLength = 2000

// ParsedOptions holds the parsed options of a moderation command.
type ParsedOptions struct {
	Target   string
	Reason   string
	Duration time.Duration
	Silent   bool
}

// parseOptions extracts the command options from the interaction data.
func parseOptions(options []*discordgo.ApplicationCommandInteractionDataOption) (ParsedOptions, error) {
	optionMap := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		optionMap[opt.Name] = opt
	}

	var parsed ParsedOptions
	if opt, ok := optionMap["target"]; ok {
		parsed.Target = opt.StringValue()
	}
	if parsed.Target == "" {
		return ParsedOptions{}, fmt.Errorf("a target is required: %w", model.ErrInvalidPunishment)
	}
	if opt, ok := optionMap["reason"]; ok {
		parsed.Reason = opt.StringValue()
	}
	if opt, ok := optionMap["silent"]; ok {
		parsed.Silent = opt.BoolValue()
	}
	if opt, ok := optionMap["duration"]; ok {
		d, err := utils.ParseDuration(opt.StringValue())
		if err != nil {
			return ParsedOptions{}, fmt.Errorf("invalid duration %q: %w", opt.StringValue(), err)
		}
		parsed.Duration = d
	}
	return parsed, nil
}

// errorMessage renders the reply for a failed command. typ selects the "not punished"
// message when there was nothing to lift.
func errorMessage(c *message.Composer, err error, typ model.PunishmentType, target string) message.Message {
	var unresolved *model.IdentityUnresolvedError
	var storageErr *model.StorageError

	switch {
	case errors.As(err, &unresolved):
		return c.RenderNow(message.ErrorUnresolved, map[string]string{"identifier": unresolved.Identifier})
	case errors.Is(err, model.ErrNoActivePunishment):
		key := message.ErrorNoMute
		if typ == model.PunishmentBan {
			key = message.ErrorNoBan
		}
		return c.RenderNow(key, map[string]string{"target": target})
	case errors.As(err, &storageErr):
		return c.RenderNow(message.ErrorStorage, nil)
	case errors.Is(err, model.ErrConcurrentLift):
		return c.RenderNow(message.ErrorConcurrentLift, nil)
	case errors.Is(err, model.ErrAlreadyLifted):
		return c.RenderNow(message.ErrorAlreadyLifted, nil)
	default:
		return c.RenderNow(message.ErrorInvalid, map[string]string{"error": err.Error()})
	}
}

func truncateReply(s string) string {
	if utf8.RuneCountInString(s) <= maxReplyLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxReplyLength-1]) + "…"
}
