package moderation

import (
	"context"
	"unicode/utf8"

	"github.com/iamwavecut/ngmod/internal/db"
	errs "github.com/iamwavecut/ngmod/internal/errors"
)

const ellipsis = "..."

// Report files a complaint against target and asks the caller to notify every configured admin.
func (e *Engine) Report(ctx context.Context, chatID, reporterID int64, target Target, reason string) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandReport, chatID, target.ID)
	defer done(&err)

	if err := requireTarget(chatID, target); err != nil {
		return nil, err
	}
	if err := e.ensureChat(ctx, chatID); err != nil {
		return nil, err
	}
	report, err := e.ledger.SubmitReport(ctx, &db.Report{
		ChatID:     chatID,
		ReporterID: reporterID,
		ReportedID: target.ID,
		Reason:     reason,
		CreatedAt:  e.now(),
	})
	if err != nil {
		return nil, err
	}

	d := newDecision(CommandReport)
	d.Payload.UserID = target.ID
	d.Payload.ReportID = report.ID
	d.add(Action{
		Kind:       ActionNotifyAdmins,
		ChatID:     chatID,
		UserID:     target.ID,
		ReportID:   report.ID,
		Recipients: append([]int64(nil), e.cfg.AdminIDs...),
		Text:       report.Reason,
	})
	e.log.WithField("chat_id", chatID).WithField("report_id", report.ID).Info("report submitted")
	return d, nil
}

// ListReports returns the first page of pending reports, oldest first. Chat id 0 lists every chat.
func (e *Engine) ListReports(ctx context.Context, chatID int64) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandReports, chatID, 0)
	defer done(&err)

	reports, err := e.ledger.ListPendingReports(ctx, chatID, e.cfg.ReportPageSize)
	if err != nil {
		return nil, err
	}
	d := newDecision(CommandReports)
	d.Payload.Reports = make([]ReportView, 0, len(reports))
	for _, report := range reports {
		d.Payload.Reports = append(d.Payload.Reports, e.view(report))
	}
	return d, nil
}

func (e *Engine) view(report *db.Report) ReportView {
	v := ReportView{
		ID:         report.ID,
		ChatID:     report.ChatID,
		ReporterID: report.ReporterID,
		ReportedID: report.ReportedID,
		Reason:     report.Reason,
		CreatedAt:  report.CreatedAt,
	}
	if utf8.RuneCountInString(report.Reason) > e.cfg.ReasonDisplayLimit {
		v.Reason = db.TruncateRunes(report.Reason, e.cfg.ReasonDisplayLimit) + ellipsis
		v.Truncated = true
	}
	return v
}

// ResolveReport closes a pending report. Unknown and already resolved ids succeed with Resolved unset.
func (e *Engine) ResolveReport(ctx context.Context, reportID int64) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandResolve, 0, 0)
	defer done(&err)

	if reportID <= 0 {
		return nil, errs.InvalidInput("report id must be positive, got %d", reportID)
	}
	resolved, err := e.ledger.ResolveReport(ctx, reportID, e.now())
	if err != nil {
		return nil, err
	}
	d := newDecision(CommandResolve)
	d.Payload.ReportID = reportID
	d.Payload.Resolved = resolved
	return d, nil
}

// ToggleWelcome flips the greeting of new members, registering the chat first.
func (e *Engine) ToggleWelcome(ctx context.Context, chatID int64) (_ *Decision, err error) {
	ctx, done := e.begin(ctx, CommandWelcome, chatID, 0)
	defer done(&err)

	if err := requireChat(chatID); err != nil {
		return nil, err
	}
	if err := e.ensureChat(ctx, chatID); err != nil {
		return nil, err
	}
	enabled, err := e.store.ToggleWelcome(ctx, chatID)
	if err != nil {
		return nil, err
	}
	d := newDecision(CommandWelcome)
	d.Payload.WelcomeEnabled = enabled
	return d, nil
}
