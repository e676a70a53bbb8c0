package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/iamwavecut/ngmod/internal/duration"
	errs "github.com/iamwavecut/ngmod/internal/errors"
)

// Warn records an infraction. Reaching the warn threshold bans the member, once.
func (e *Engine) Warn(ctx context.Context, chatID int64, target Target) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandWarn, chatID, target.ID)
	defer done(&err)

	if err := requireTarget(chatID, target); err != nil {
		return nil, err
	}
	if err := e.ensureChat(ctx, chatID); err != nil {
		return nil, err
	}
	outcome, err := e.store.WarnMember(ctx, target.key(chatID), target.name(), e.cfg.WarnThreshold)
	if err != nil {
		return nil, err
	}

	d := newDecision(CommandWarn)
	d.Payload.UserID = target.ID
	d.Payload.WarnCount = outcome.Count
	d.Payload.WarnThreshold = e.cfg.WarnThreshold
	d.Payload.Escalated = outcome.Escalated
	d.Payload.Banned = outcome.Banned
	if outcome.Escalated {
		e.metrics.Escalation()
		d.Payload.Permanent = true
		d.Payload.DurationText = duration.Format(duration.Forever, e.cfg.Language)
		d.add(Action{Kind: ActionBan, ChatID: chatID, UserID: target.ID, Permanent: true})
		e.log.WithField("chat_id", chatID).WithField("user_id", target.ID).WithField("warns", outcome.Count).Info("warns escalated to ban")
	}
	return d, nil
}

// RemoveWarn takes one warning back, never going below zero.
func (e *Engine) RemoveWarn(ctx context.Context, chatID int64, target Target) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandRemoveWarn, chatID, target.ID)
	defer done(&err)

	if err := requireTarget(chatID, target); err != nil {
		return nil, err
	}
	count, err := e.store.DecrementWarn(ctx, target.key(chatID))
	if err != nil {
		return nil, err
	}
	d := newDecision(CommandRemoveWarn)
	d.Payload.UserID = target.ID
	d.Payload.WarnCount = count
	d.Payload.WarnThreshold = e.cfg.WarnThreshold
	return d, nil
}

func (e *Engine) ResetWarns(ctx context.Context, chatID int64, target Target) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandResetWarns, chatID, target.ID)
	defer done(&err)

	if err := requireTarget(chatID, target); err != nil {
		return nil, err
	}
	if err := e.store.ResetWarns(ctx, target.key(chatID)); err != nil {
		return nil, err
	}
	d := newDecision(CommandResetWarns)
	d.Payload.UserID = target.ID
	d.Payload.WarnThreshold = e.cfg.WarnThreshold
	return d, nil
}

// Warns looks up another member's warnings. Unknown members are reported as not found.
func (e *Engine) Warns(ctx context.Context, chatID int64, target Target) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandWarns, chatID, target.ID)
	defer done(&err)

	if err := requireTarget(chatID, target); err != nil {
		return nil, err
	}
	member, err := e.store.GetMember(ctx, target.key(chatID))
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, errs.NotFound("member %d in chat %d", target.ID, chatID)
	}
	d := newDecision(CommandWarns)
	d.Payload.UserID = target.ID
	d.Payload.WarnCount = member.Warns
	d.Payload.WarnThreshold = e.cfg.WarnThreshold
	d.Payload.Banned = member.Banned
	d.Payload.Muted = member.MutedAt(e.now())
	return d, nil
}

// MyWarns is the self lookup; it registers the member on first use.
func (e *Engine) MyWarns(ctx context.Context, chatID int64, self Target) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandMyWarns, chatID, self.ID)
	defer done(&err)

	if err := requireTarget(chatID, self); err != nil {
		return nil, err
	}
	key := self.key(chatID)
	member, err := e.store.GetMember(ctx, key)
	if err != nil {
		return nil, err
	}
	d := newDecision(CommandMyWarns)
	d.Payload.UserID = self.ID
	d.Payload.WarnThreshold = e.cfg.WarnThreshold
	if member == nil {
		if err := e.ensureChat(ctx, chatID); err != nil {
			return nil, err
		}
		if err := e.store.UpsertMember(ctx, key, self.name()); err != nil {
			return nil, err
		}
		return d, nil
	}
	d.Payload.WarnCount = member.Warns
	return d, nil
}

// Mute restricts the member. Unrecognized duration text falls back to the configured default.
func (e *Engine) Mute(ctx context.Context, chatID int64, target Target, durationText string) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandMute, chatID, target.ID)
	defer done(&err)

	if err := requireTarget(chatID, target); err != nil {
		return nil, err
	}
	d := duration.ParseOr(durationText, e.cfg.MuteFallback)
	until := duration.Until(e.now(), d)

	if err := e.prepareMember(ctx, chatID, target); err != nil {
		return nil, err
	}
	if err := e.store.SetMute(ctx, target.key(chatID), until); err != nil {
		return nil, err
	}

	decision := newDecision(CommandMute)
	decision.Payload.UserID = target.ID
	decision.Payload.Muted = true
	e.fillDuration(&decision.Payload, d, until)
	decision.add(Action{Kind: ActionRestrict, ChatID: chatID, UserID: target.ID, Until: until, Permanent: until == nil})
	return decision, nil
}

// Unmute always succeeds, muted or not.
func (e *Engine) Unmute(ctx context.Context, chatID int64, target Target) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandUnmute, chatID, target.ID)
	defer done(&err)

	if err := requireTarget(chatID, target); err != nil {
		return nil, err
	}
	if err := e.store.ClearMute(ctx, target.key(chatID)); err != nil {
		return nil, err
	}
	d := newDecision(CommandUnmute)
	d.Payload.UserID = target.ID
	d.add(Action{Kind: ActionLiftRestriction, ChatID: chatID, UserID: target.ID})
	return d, nil
}

// Ban removes the member. Empty duration text means permanent; the expiry travels in the decision only.
func (e *Engine) Ban(ctx context.Context, chatID int64, target Target, durationText string) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandBan, chatID, target.ID)
	defer done(&err)

	if err := requireTarget(chatID, target); err != nil {
		return nil, err
	}
	d := duration.Forever
	if strings.TrimSpace(durationText) != "" {
		d = duration.ParseOr(durationText, e.cfg.BanFallback)
	}
	until := duration.Until(e.now(), d)

	if err := e.prepareMember(ctx, chatID, target); err != nil {
		return nil, err
	}
	if err := e.store.SetBanned(ctx, target.key(chatID), true, until); err != nil {
		return nil, err
	}

	decision := newDecision(CommandBan)
	decision.Payload.UserID = target.ID
	decision.Payload.Banned = true
	e.fillDuration(&decision.Payload, d, until)
	decision.add(Action{Kind: ActionBan, ChatID: chatID, UserID: target.ID, Until: until, Permanent: until == nil})
	return decision, nil
}

func (e *Engine) Unban(ctx context.Context, chatID int64, target Target) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandUnban, chatID, target.ID)
	defer done(&err)

	if err := requireTarget(chatID, target); err != nil {
		return nil, err
	}
	if err := e.store.SetBanned(ctx, target.key(chatID), false, nil); err != nil {
		return nil, err
	}
	d := newDecision(CommandUnban)
	d.Payload.UserID = target.ID
	d.add(Action{Kind: ActionUnban, ChatID: chatID, UserID: target.ID})
	return d, nil
}

// IsMuted is the authoritative mute check. An expired mute is cleared as a side effect.
func (e *Engine) IsMuted(ctx context.Context, chatID int64, target Target) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandIsMuted, chatID, target.ID)
	defer done(&err)

	if err := requireTarget(chatID, target); err != nil {
		return nil, err
	}
	muted, err := e.store.IsMuted(ctx, target.key(chatID), e.now())
	if err != nil {
		return nil, err
	}
	d := newDecision(CommandIsMuted)
	d.Payload.UserID = target.ID
	d.Payload.Muted = muted
	return d, nil
}

// CheckMessage enforces mutes on an inbound message: muted senders get their message deleted.
func (e *Engine) CheckMessage(ctx context.Context, chatID int64, sender Target, messageID int64) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandMessage, chatID, sender.ID)
	defer done(&err)

	if err := requireTarget(chatID, sender); err != nil {
		return nil, err
	}
	if err := e.ensureChat(ctx, chatID); err != nil {
		return nil, err
	}
	d := newDecision(CommandMessage)
	d.Payload.UserID = sender.ID
	if sender.IsBot {
		return d, nil
	}
	muted, err := e.store.IsMuted(ctx, sender.key(chatID), e.now())
	if err != nil {
		return nil, err
	}
	if !muted {
		return d, nil
	}
	e.metrics.EnforcedMute()
	d.Payload.Muted = true
	d.add(Action{Kind: ActionDeleteMessage, ChatID: chatID, UserID: sender.ID, MessageID: messageID})
	d.add(Action{Kind: ActionNotifyMuted, ChatID: chatID, UserID: sender.ID, MessageID: messageID})
	return d, nil
}

// MemberJoined registers new members and asks for a greeting when the chat has welcomes on. Bots are skipped.
func (e *Engine) MemberJoined(ctx context.Context, chatID int64, members []Target) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandMemberJoined, chatID, 0)
	defer done(&err)

	if err := requireChat(chatID); err != nil {
		return nil, err
	}
	if err := e.ensureChat(ctx, chatID); err != nil {
		return nil, err
	}
	chat, err := e.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, errs.NotFound("chat %d", chatID)
	}

	d := newDecision(CommandMemberJoined)
	d.Payload.WelcomeEnabled = chat.WelcomeEnabled
	if !chat.WelcomeEnabled {
		return d, nil
	}
	for _, member := range members {
		if member.IsBot || member.ID == 0 {
			continue
		}
		if err := e.store.UpsertMember(ctx, member.key(chatID), member.name()); err != nil {
			return nil, err
		}
		d.add(Action{Kind: ActionSendWelcome, ChatID: chatID, UserID: member.ID, Text: member.Display()})
	}
	return d, nil
}

func (e *Engine) prepareMember(ctx context.Context, chatID int64, target Target) error {
	if err := e.ensureChat(ctx, chatID); err != nil {
		return err
	}
	return e.store.UpsertMember(ctx, target.key(chatID), target.name())
}

func (e *Engine) fillDuration(p *Payload, d time.Duration, until *time.Time) {
	p.Duration = d
	p.DurationText = duration.Format(d, e.cfg.Language)
	p.Permanent = until == nil
	p.Until = until
}
