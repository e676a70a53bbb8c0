// Package moderation implements chat moderation commands on top of the moderation store and the report ledger.
// Every operation returns a Decision describing the resulting state and the actions the caller must apply.
package moderation

import (
	"context"
	stderrors "errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iamwavecut/ngmod/internal/db"
	errs "github.com/iamwavecut/ngmod/internal/errors"
)

const tracerName = "github.com/iamwavecut/ngmod/internal/moderation"

// Metrics receives engine counters.
type Metrics interface {
	Decision(command, outcome string)
	Escalation()
	EnforcedMute()
}

type noopMetrics struct{}

func (noopMetrics) Decision(string, string) {}
func (noopMetrics) Escalation()             {}
func (noopMetrics) EnforcedMute()           {}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithLogger(entry *log.Entry) Option {
	return func(e *Engine) {
		if entry != nil {
			e.log = entry
		}
	}
}

type Engine struct {
	store   db.ModerationStore
	ledger  db.ReportLedger
	cfg     Config
	now     func() time.Time
	metrics Metrics
	log     *log.Entry
	tracer  trace.Tracer
	// chats remembers chat ids already ensured by this process.
	chats *lru.Cache[int64, struct{}]
}

func New(store db.ModerationStore, ledger db.ReportLedger, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		ledger:  ledger,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		metrics: noopMetrics{},
		log:     log.WithField("component", "moderation"),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.ChatCacheSize > 0 {
		cache, err := lru.New[int64, struct{}](e.cfg.ChatCacheSize)
		if err != nil {
			e.log.WithError(err).Warn("chat cache disabled")
		} else {
			e.chats = cache
		}
	}
	return e
}

func (e *Engine) Config() Config {
	return e.cfg
}

// begin opens a span for command; the returned func must be deferred with the named error result.
func (e *Engine) begin(ctx context.Context, command Command, chatID, userID int64) (context.Context, func(*error)) {
	ctx, span := e.tracer.Start(ctx, string(command), trace.WithAttributes(
		attribute.Int64("chat_id", chatID),
		attribute.Int64("user_id", userID),
	))
	return ctx, func(errp *error) {
		defer span.End()
		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			*errp = errors.WithMessage(err, string(command))
			e.log.
				WithField("command", command).
				WithField("chat_id", chatID).
				WithField("user_id", userID).
				WithError(err).
				Debug("command failed")
		}
		e.metrics.Decision(string(command), Outcome(*errp))
	}
}

// Outcome names the error class of err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case stderrors.Is(err, errs.ErrInvalidInput):
		return "invalid_input"
	case stderrors.Is(err, errs.ErrNotFound):
		return "not_found"
	case stderrors.Is(err, errs.ErrConflict):
		return "conflict"
	case stderrors.Is(err, errs.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "error"
	}
}

func (e *Engine) ensureChat(ctx context.Context, chatID int64) error {
	if e.chats != nil && e.chats.Contains(chatID) {
		return nil
	}
	created, err := e.store.EnsureChat(ctx, chatID, e.now())
	if err != nil {
		return err
	}
	if created {
		e.log.WithField("chat_id", chatID).Info("new chat registered")
	}
	if e.chats != nil {
		e.chats.Add(chatID, struct{}{})
	}
	return nil
}

func requireChat(chatID int64) error {
	if chatID == 0 {
		return errs.InvalidInput("chat id is required")
	}
	return nil
}

func requireTarget(chatID int64, target Target) error {
	if err := requireChat(chatID); err != nil {
		return err
	}
	if target.ID == 0 {
		return errs.InvalidInput("target user id is required")
	}
	return nil
}
