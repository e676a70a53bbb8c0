package moderation

import (
	"time"

	"github.com/iamwavecut/ngmod/internal/db"
)

type Command string

const (
	CommandWarn         Command = "warn"
	CommandRemoveWarn   Command = "remove_warn"
	CommandResetWarns   Command = "reset_warns"
	CommandWarns        Command = "warns"
	CommandMyWarns      Command = "mywarns"
	CommandMute         Command = "mute"
	CommandUnmute       Command = "unmute"
	CommandBan          Command = "ban"
	CommandUnban        Command = "unban"
	CommandReport       Command = "report"
	CommandReports      Command = "reports"
	CommandResolve      Command = "resolve"
	CommandWelcome      Command = "welcome"
	CommandIsMuted      Command = "is_muted"
	CommandMessage      Command = "message"
	CommandMemberJoined Command = "member_joined"
)

type ActionKind string

// Actions the caller has to carry out against the chat platform.
const (
	ActionRestrict        ActionKind = "restrict"
	ActionLiftRestriction ActionKind = "lift_restriction"
	ActionBan             ActionKind = "ban"
	ActionUnban           ActionKind = "unban"
	ActionNotifyAdmins    ActionKind = "notify_admins"
	ActionDeleteMessage   ActionKind = "delete_message"
	ActionNotifyMuted     ActionKind = "notify_muted"
	ActionSendWelcome     ActionKind = "send_welcome"
)

type (
	// Decision is the outcome of one command. The engine never applies Actions itself.
	Decision struct {
		Command Command  `json:"command"`
		OK      bool     `json:"ok"`
		Error   string   `json:"error,omitempty"`
		Payload Payload  `json:"payload"`
		Actions []Action `json:"actions,omitempty"`
	}

	Payload struct {
		UserID         int64         `json:"user_id,omitempty"`
		WarnCount      int           `json:"warn_count"`
		WarnThreshold  int           `json:"warn_threshold,omitempty"`
		Escalated      bool          `json:"escalated,omitempty"`
		Banned         bool          `json:"banned,omitempty"`
		Muted          bool          `json:"muted,omitempty"`
		Duration       time.Duration `json:"duration,omitempty"`
		DurationText   string        `json:"duration_text,omitempty"`
		Permanent      bool          `json:"permanent,omitempty"`
		Until          *time.Time    `json:"until,omitempty"`
		ReportID       int64         `json:"report_id,omitempty"`
		Reports        []ReportView  `json:"reports,omitempty"`
		WelcomeEnabled bool          `json:"welcome_enabled,omitempty"`
		Resolved       bool          `json:"resolved,omitempty"`
	}

	Action struct {
		Kind       ActionKind `json:"kind"`
		ChatID     int64      `json:"chat_id"`
		UserID     int64      `json:"user_id,omitempty"`
		MessageID  int64      `json:"message_id,omitempty"`
		Until      *time.Time `json:"until,omitempty"`
		Permanent  bool       `json:"permanent,omitempty"`
		Recipients []int64    `json:"recipients,omitempty"`
		ReportID   int64      `json:"report_id,omitempty"`
		// Text is the report reason or the greeted member's display name.
		Text string `json:"text,omitempty"`
	}

	// ReportView is a pending report prepared for display.
	ReportView struct {
		ID         int64     `json:"id"`
		ChatID     int64     `json:"chat_id"`
		ReporterID int64     `json:"reporter_id"`
		ReportedID int64     `json:"reported_id"`
		Reason     string    `json:"reason"`
		Truncated  bool      `json:"truncated,omitempty"`
		CreatedAt  time.Time `json:"created_at"`
	}

	// Target is the user a command is about.
	Target struct {
		ID        int64  `json:"id"`
		UserName  string `json:"username,omitempty"`
		FirstName string `json:"first_name,omitempty"`
		IsBot     bool   `json:"is_bot,omitempty"`
	}
)

func newDecision(command Command) *Decision {
	return &Decision{Command: command, OK: true}
}

func (d *Decision) add(action Action) {
	d.Actions = append(d.Actions, action)
}

// Failed renders err as an unsuccessful decision for callers that answer with a decision body.
func Failed(command Command, err error) *Decision {
	return &Decision{Command: command, Error: err.Error()}
}

func (t Target) name() db.DisplayName {
	return db.DisplayName{UserName: t.UserName, FirstName: t.FirstName}
}

func (t Target) key(chatID int64) db.MemberKey {
	return db.MemberKey{UserID: t.ID, ChatID: chatID}
}

// Display is the mention used in greetings: @username when known, else the first name.
func (t Target) Display() string {
	return t.name().String()
}
