package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iamwavecut/ngmod/internal/db"
	errs "github.com/iamwavecut/ngmod/internal/errors"
)

func (c *sqliteClient) EnsureChat(ctx context.Context, chatID int64, now time.Time) (bool, error) {
	chat := db.DefaultChatConfig(chatID, now.UTC())
	res, err := c.db.NamedExecContext(ctx, `
		INSERT INTO chats (chat_id, welcome_enabled, created_at)
		VALUES (:chat_id, :welcome_enabled, :created_at)
		ON CONFLICT(chat_id) DO NOTHING
	`, chat)
	if err != nil {
		return false, errs.Storage("ensure chat", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.Storage("ensure chat", err)
	}
	return n > 0, nil
}

func (c *sqliteClient) GetChat(ctx context.Context, chatID int64) (*db.ChatConfig, error) {
	chat := &db.ChatConfig{}
	err := c.db.GetContext(ctx, chat, `SELECT chat_id, welcome_enabled, created_at FROM chats WHERE chat_id = ?`, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errs.Storage("get chat", err)
	}
	return chat, nil
}

// ToggleWelcome flips the welcome flag of an existing chat. It never creates the chat.
func (c *sqliteClient) ToggleWelcome(ctx context.Context, chatID int64) (bool, error) {
	var enabled bool
	err := c.withTx(ctx, "toggle welcome", func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			UPDATE chats SET welcome_enabled = NOT welcome_enabled
			WHERE chat_id = ?
			RETURNING welcome_enabled
		`, chatID).Scan(&enabled)
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound("chat %d", chatID)
		}
		return errs.Storage("toggle welcome", err)
	})
	return enabled, err
}
