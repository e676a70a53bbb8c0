package moderation

import (
	"context"
	"strconv"
	"strings"

	errs "github.com/iamwavecut/ngmod/internal/errors"
)

// Intent is a command already resolved by the transport: who asked, about whom, in which chat.
// Params carries the raw argument text: a duration, a report reason or a report id.
type Intent struct {
	Command   Command  `json:"command"`
	ActorID   int64    `json:"actor_id"`
	ChatID    int64    `json:"chat_id"`
	Target    Target   `json:"target"`
	MessageID int64    `json:"message_id,omitempty"`
	Params    string   `json:"params,omitempty"`
	Members   []Target `json:"members,omitempty"`
}

// Execute dispatches intent to the matching operation.
func (e *Engine) Execute(ctx context.Context, intent Intent) (*Decision, error) {
	switch intent.Command {
	case CommandWarn:
		return e.Warn(ctx, intent.ChatID, intent.Target)
	case CommandRemoveWarn:
		return e.RemoveWarn(ctx, intent.ChatID, intent.Target)
	case CommandResetWarns:
		return e.ResetWarns(ctx, intent.ChatID, intent.Target)
	case CommandWarns:
		return e.Warns(ctx, intent.ChatID, intent.Target)
	case CommandMyWarns:
		self := intent.Target
		if self.ID == 0 {
			self.ID = intent.ActorID
		}
		return e.MyWarns(ctx, intent.ChatID, self)
	case CommandMute:
		return e.Mute(ctx, intent.ChatID, intent.Target, intent.Params)
	case CommandUnmute:
		return e.Unmute(ctx, intent.ChatID, intent.Target)
	case CommandBan:
		return e.Ban(ctx, intent.ChatID, intent.Target, intent.Params)
	case CommandUnban:
		return e.Unban(ctx, intent.ChatID, intent.Target)
	case CommandReport:
		return e.Report(ctx, intent.ChatID, intent.ActorID, intent.Target, intent.Params)
	case CommandReports:
		return e.ListReports(ctx, intent.ChatID)
	case CommandResolve:
		id, err := parseReportID(intent.Params)
		if err != nil {
			return nil, err
		}
		return e.ResolveReport(ctx, id)
	case CommandWelcome:
		return e.ToggleWelcome(ctx, intent.ChatID)
	case CommandIsMuted:
		return e.IsMuted(ctx, intent.ChatID, intent.Target)
	case CommandMessage:
		sender := intent.Target
		if sender.ID == 0 {
			sender.ID = intent.ActorID
		}
		return e.CheckMessage(ctx, intent.ChatID, sender, intent.MessageID)
	case CommandMemberJoined:
		return e.MemberJoined(ctx, intent.ChatID, intent.Members)
	default:
		return nil, errs.InvalidInput("unknown command %q", intent.Command)
	}
}

// parseReportID accepts "42", "#42" and "resolve_42".
func parseReportID(params string) (int64, error) {
	fields := strings.Fields(params)
	if len(fields) == 0 {
		return 0, errs.InvalidInput("report id is required")
	}
	raw := strings.TrimPrefix(strings.TrimPrefix(fields[0], "resolve_"), "#")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errs.InvalidInput("report id %q is not a number", fields[0])
	}
	return id, nil
}
