package db

import "time"

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportResolved ReportStatus = "resolved"
)

type (
	ChatConfig struct {
		ChatID         int64     `db:"chat_id" json:"chat_id"`
		WelcomeEnabled bool      `db:"welcome_enabled" json:"welcome_enabled"`
		CreatedAt      time.Time `db:"created_at" json:"created_at"`
	}

	// Member is the moderation state of one user in one chat.
	// Muted is authoritative: Muted with a nil MuteUntil means muted indefinitely.
	// BannedUntil is kept for audit only; lifting a timed ban is up to the chat platform.
	Member struct {
		UserID      int64      `db:"user_id" json:"user_id"`
		ChatID      int64      `db:"chat_id" json:"chat_id"`
		UserName    string     `db:"username" json:"username,omitempty"`
		FirstName   string     `db:"first_name" json:"first_name,omitempty"`
		Warns       int        `db:"warns" json:"warns"`
		Muted       bool       `db:"is_muted" json:"muted"`
		MuteUntil   *time.Time `db:"mute_until" json:"mute_until,omitempty"`
		Banned      bool       `db:"is_banned" json:"banned"`
		BannedUntil *time.Time `db:"banned_until" json:"banned_until,omitempty"`
	}

	Report struct {
		ID         int64        `db:"id" json:"id"`
		ChatID     int64        `db:"chat_id" json:"chat_id"`
		ReporterID int64        `db:"reporter_id" json:"reporter_id"`
		ReportedID int64        `db:"reported_id" json:"reported_id"`
		Reason     string       `db:"reason" json:"reason"`
		Status     ReportStatus `db:"status" json:"status"`
		CreatedAt  time.Time    `db:"created_at" json:"created_at"`
		ResolvedAt *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
	}

	// MemberKey identifies a Member.
	MemberKey struct {
		UserID int64
		ChatID int64
	}

	// DisplayName is best-effort user info; empty fields do not overwrite stored ones.
	DisplayName struct {
		UserName  string
		FirstName string
	}

	WarnOutcome struct {
		Count     int
		Escalated bool
		Banned    bool
	}
)

func (m *Member) Key() MemberKey {
	return MemberKey{UserID: m.UserID, ChatID: m.ChatID}
}

// MutedAt reports whether the stored mute is still in effect at now.
func (m *Member) MutedAt(now time.Time) bool {
	if m == nil || !m.Muted {
		return false
	}
	return m.MuteUntil == nil || m.MuteUntil.After(now)
}

func (d DisplayName) String() string {
	if d.UserName != "" {
		return "@" + d.UserName
	}
	return d.FirstName
}

func (r *Report) IsPending() bool {
	return r != nil && r.Status == ReportPending
}
