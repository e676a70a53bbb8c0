package db

import (
	"context"
	"time"
)

// ModerationStore owns chat configuration and per-member moderation state.
// Mutations on the same MemberKey are serialized; different keys do not wait on each other.
type ModerationStore interface {
	EnsureChat(ctx context.Context, chatID int64, now time.Time) (bool, error)
	GetChat(ctx context.Context, chatID int64) (*ChatConfig, error)
	ToggleWelcome(ctx context.Context, chatID int64) (bool, error)

	UpsertMember(ctx context.Context, key MemberKey, name DisplayName) error
	GetMember(ctx context.Context, key MemberKey) (*Member, error)

	IncrementWarn(ctx context.Context, key MemberKey) (int, error)
	DecrementWarn(ctx context.Context, key MemberKey) (int, error)
	ResetWarns(ctx context.Context, key MemberKey) error
	// WarnMember upserts, increments and bans at threshold in one transaction.
	WarnMember(ctx context.Context, key MemberKey, name DisplayName, threshold int) (*WarnOutcome, error)

	SetMute(ctx context.Context, key MemberKey, until *time.Time) error
	ClearMute(ctx context.Context, key MemberKey) error
	IsMuted(ctx context.Context, key MemberKey, now time.Time) (bool, error)

	SetBanned(ctx context.Context, key MemberKey, banned bool, until *time.Time) error
}

// ReportLedger owns the append-only report queue.
type ReportLedger interface {
	SubmitReport(ctx context.Context, report *Report) (*Report, error)
	GetReport(ctx context.Context, id int64) (*Report, error)
	// ListPendingReports returns pending reports oldest first. chatID 0 lists every chat, limit <= 0 is unbounded.
	ListPendingReports(ctx context.Context, chatID int64, limit int) ([]*Report, error)
	ResolveReport(ctx context.Context, id int64, now time.Time) (bool, error)
}

type Client interface {
	ModerationStore
	ReportLedger
	Ping(ctx context.Context) error
	Close() error
}
