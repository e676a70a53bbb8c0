package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iamwavecut/ngmod/internal/db"
	errs "github.com/iamwavecut/ngmod/internal/errors"
)

const reportColumns = `id, chat_id, reporter_id, reported_id, reason, status, created_at, resolved_at`

// SubmitReport appends a pending report. Report ids are unique across all chats.
func (c *sqliteClient) SubmitReport(ctx context.Context, report *db.Report) (*db.Report, error) {
	stored := *report
	stored.Reason = db.NormalizeReason(report.Reason)
	stored.Status = db.ReportPending
	stored.ResolvedAt = nil
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.CreatedAt = stored.CreatedAt.UTC()

	result, err := c.db.ExecContext(ctx, `
		INSERT INTO reports (chat_id, reporter_id, reported_id, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		stored.ChatID,
		stored.ReporterID,
		stored.ReportedID,
		stored.Reason,
		stored.Status,
		stored.CreatedAt,
	)
	if err != nil {
		return nil, errs.Storage("submit report", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errs.Storage("submit report", err)
	}
	stored.ID = id
	return &stored, nil
}

func (c *sqliteClient) GetReport(ctx context.Context, id int64) (*db.Report, error) {
	report := &db.Report{}
	err := c.db.GetContext(ctx, report, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errs.Storage("get report", err)
	}
	return report, nil
}

func (c *sqliteClient) ListPendingReports(ctx context.Context, chatID int64, limit int) ([]*db.Report, error) {
	if limit <= 0 {
		limit = -1
	}

	var (
		reports []*db.Report
		err     error
	)
	if chatID != 0 {
		err = c.db.SelectContext(ctx, &reports, `
			SELECT `+reportColumns+` FROM reports
			WHERE status = ? AND chat_id = ?
			ORDER BY created_at ASC, id ASC
			LIMIT ?
		`, db.ReportPending, chatID, limit)
	} else {
		err = c.db.SelectContext(ctx, &reports, `
			SELECT `+reportColumns+` FROM reports
			WHERE status = ?
			ORDER BY created_at ASC, id ASC
			LIMIT ?
		`, db.ReportPending, limit)
	}
	if err != nil {
		return nil, errs.Storage("list pending reports", err)
	}
	return reports, nil
}

// ResolveReport moves a pending report to resolved. Unknown and already resolved ids are a no-op.
func (c *sqliteClient) ResolveReport(ctx context.Context, id int64, now time.Time) (bool, error) {
	result, err := c.db.ExecContext(ctx, `
		UPDATE reports SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`, db.ReportResolved, now.UTC(), id, db.ReportPending)
	if err != nil {
		return false, errs.Storage("resolve report", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errs.Storage("resolve report", err)
	}
	return n > 0, nil
}
