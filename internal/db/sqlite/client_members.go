package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/db"
	errs "github.com/iamwavecut/ngmod/internal/errors"
)

const memberColumns = `user_id, chat_id, username, first_name, warns, is_muted, mute_until, is_banned, banned_until`

type getter interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (c *sqliteClient) UpsertMember(ctx context.Context, key db.MemberKey, name db.DisplayName) error {
	unlock := c.locks.Lock(key)
	defer unlock()

	return errs.Storage("upsert member", upsertMember(ctx, c.db, key, name))
}

func upsertMember(ctx context.Context, q sqlx.ExecerContext, key db.MemberKey, name db.DisplayName) error {
	return tool.Err(q.ExecContext(ctx, `
		INSERT INTO members (user_id, chat_id, username, first_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, chat_id) DO UPDATE SET
		username = CASE WHEN excluded.username <> '' THEN excluded.username ELSE members.username END,
		first_name = CASE WHEN excluded.first_name <> '' THEN excluded.first_name ELSE members.first_name END
	`, key.UserID, key.ChatID, name.UserName, name.FirstName))
}

func (c *sqliteClient) GetMember(ctx context.Context, key db.MemberKey) (*db.Member, error) {
	member, err := getMember(ctx, c.db, key)
	return member, errs.Storage("get member", err)
}

func getMember(ctx context.Context, q getter, key db.MemberKey) (*db.Member, error) {
	member := &db.Member{}
	err := q.GetContext(ctx, member, `SELECT `+memberColumns+` FROM members WHERE user_id = ? AND chat_id = ?`, key.UserID, key.ChatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return member, nil
}

func (c *sqliteClient) IncrementWarn(ctx context.Context, key db.MemberKey) (int, error) {
	return c.shiftWarns(ctx, "increment warn", key, `warns + 1`)
}

func (c *sqliteClient) DecrementWarn(ctx context.Context, key db.MemberKey) (int, error) {
	return c.shiftWarns(ctx, "decrement warn", key, `MAX(warns - 1, 0)`)
}

// shiftWarns applies expr and reads the new count back in the same transaction.
func (c *sqliteClient) shiftWarns(ctx context.Context, op string, key db.MemberKey, expr string) (int, error) {
	unlock := c.locks.Lock(key)
	defer unlock()

	var count int
	err := c.withTx(ctx, op, func(tx *sqlx.Tx) error {
		var err error
		count, err = updateWarns(ctx, tx, key, expr)
		if errors.Is(err, sql.ErrNoRows) {
			return memberNotFound(key)
		}
		return errs.Storage(op, err)
	})
	return count, err
}

func updateWarns(ctx context.Context, tx *sqlx.Tx, key db.MemberKey, expr string) (int, error) {
	var count int
	err := tx.QueryRowxContext(ctx, `
		UPDATE members SET warns = `+expr+`
		WHERE user_id = ? AND chat_id = ?
		RETURNING warns
	`, key.UserID, key.ChatID).Scan(&count)
	return count, err
}

func (c *sqliteClient) ResetWarns(ctx context.Context, key db.MemberKey) error {
	unlock := c.locks.Lock(key)
	defer unlock()

	return errs.Storage("reset warns", tool.Err(c.db.ExecContext(ctx,
		`UPDATE members SET warns = 0 WHERE user_id = ? AND chat_id = ?`, key.UserID, key.ChatID)))
}

func (c *sqliteClient) WarnMember(ctx context.Context, key db.MemberKey, name db.DisplayName, threshold int) (*db.WarnOutcome, error) {
	unlock := c.locks.Lock(key)
	defer unlock()

	outcome := &db.WarnOutcome{}
	err := c.withTx(ctx, "warn member", func(tx *sqlx.Tx) error {
		if err := upsertMember(ctx, tx, key, name); err != nil {
			return errs.Storage("warn member: upsert", err)
		}
		var wasBanned bool
		if err := tx.GetContext(ctx, &wasBanned, `SELECT is_banned FROM members WHERE user_id = ? AND chat_id = ?`, key.UserID, key.ChatID); err != nil {
			return errs.Storage("warn member: read ban", err)
		}
		count, err := updateWarns(ctx, tx, key, `warns + 1`)
		if err != nil {
			return errs.Storage("warn member: increment", err)
		}
		outcome.Count = count
		outcome.Banned = wasBanned
		if count >= threshold && !wasBanned {
			if err := tool.Err(setBanned(ctx, tx, key, true, nil)); err != nil {
				return errs.Storage("warn member: ban", err)
			}
			outcome.Escalated = true
			outcome.Banned = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome.Escalated {
		log.WithField("user_id", key.UserID).WithField("chat_id", key.ChatID).WithField("warns", outcome.Count).Debug("warn threshold reached")
	}
	return outcome, nil
}

// SetMute mutes an existing member until the given time; nil means indefinitely.
func (c *sqliteClient) SetMute(ctx context.Context, key db.MemberKey, until *time.Time) error {
	unlock := c.locks.Lock(key)
	defer unlock()

	res, err := c.db.ExecContext(ctx, `
		UPDATE members SET is_muted = TRUE, mute_until = ?
		WHERE user_id = ? AND chat_id = ?
	`, nullTime(until), key.UserID, key.ChatID)
	return requireRow(res, err, "set mute", key)
}

func (c *sqliteClient) ClearMute(ctx context.Context, key db.MemberKey) error {
	unlock := c.locks.Lock(key)
	defer unlock()

	return errs.Storage("clear mute", clearMute(ctx, c.db, key))
}

func clearMute(ctx context.Context, q sqlx.ExecerContext, key db.MemberKey) error {
	return tool.Err(q.ExecContext(ctx, `
		UPDATE members SET is_muted = FALSE, mute_until = NULL
		WHERE user_id = ? AND chat_id = ?
	`, key.UserID, key.ChatID))
}

// IsMuted is the authoritative mute check. An expired mute is cleared as a side effect.
// Nothing else expires mutes, so an unqueried member may stay flagged past its expiry.
func (c *sqliteClient) IsMuted(ctx context.Context, key db.MemberKey, now time.Time) (bool, error) {
	unlock := c.locks.Lock(key)
	defer unlock()

	muted := false
	err := c.withTx(ctx, "is muted", func(tx *sqlx.Tx) error {
		member, err := getMember(ctx, tx, key)
		if err != nil {
			return errs.Storage("is muted: read", err)
		}
		if member == nil || !member.Muted {
			return nil
		}
		if member.MutedAt(now) {
			muted = true
			return nil
		}
		log.WithField("user_id", key.UserID).WithField("chat_id", key.ChatID).Trace("mute expired, clearing")
		return errs.Storage("is muted: clear", clearMute(ctx, tx, key))
	})
	return muted, err
}

// SetBanned records the ban flag. until is kept for audit and never lifts the ban by itself.
func (c *sqliteClient) SetBanned(ctx context.Context, key db.MemberKey, banned bool, until *time.Time) error {
	unlock := c.locks.Lock(key)
	defer unlock()

	res, err := setBanned(ctx, c.db, key, banned, until)
	if !banned {
		return errs.Storage("set banned", err)
	}
	return requireRow(res, err, "set banned", key)
}

func setBanned(ctx context.Context, q sqlx.ExecerContext, key db.MemberKey, banned bool, until *time.Time) (sql.Result, error) {
	if !banned {
		until = nil
	}
	return q.ExecContext(ctx, `
		UPDATE members SET is_banned = ?, banned_until = ?
		WHERE user_id = ? AND chat_id = ?
	`, banned, nullTime(until), key.UserID, key.ChatID)
}

func requireRow(res sql.Result, err error, op string, key db.MemberKey) error {
	if err != nil {
		return errs.Storage(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Storage(op, err)
	}
	if n == 0 {
		return memberNotFound(key)
	}
	return nil
}

// nullTime stores times in UTC so that text ordering of timestamps matches time ordering.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
