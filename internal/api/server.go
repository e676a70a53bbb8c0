// Package api exposes the moderation engine over HTTP for transports that run out of process.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/db"
	errs "github.com/iamwavecut/ngmod/internal/errors"
	"github.com/iamwavecut/ngmod/internal/moderation"
)

const (
	headerRequestID = "X-Request-Id"
	ctxLogKey       = "log"
)

type Server struct {
	engine  *moderation.Engine
	client  db.Client
	echo    *echo.Echo
	listen  string
	errc    chan error
	metrics http.Handler
}

// New wires the routes. metrics may be nil, in which case /metrics is not served.
func New(engine *moderation.Engine, client db.Client, metrics http.Handler, listen string) *Server {
	s := &Server{
		engine:  engine,
		client:  client,
		echo:    echo.New(),
		listen:  listen,
		errc:    make(chan error, 1),
		metrics: metrics,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError
	s.echo.Use(requestLogger)

	s.echo.GET("/healthz", s.HandleHealth)
	if metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(metrics))
	}
	v1 := s.echo.Group("/v1")
	v1.POST("/intents", s.HandleIntent)
	v1.GET("/chats/:chat/members/:user", s.HandleMember)
	v1.GET("/chats/:chat/reports", s.HandleReports)
	return s
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) String() string {
	return "api"
}

// Start serves in the background; a listener failure is reported by Stop.
func (s *Server) Start(ctx context.Context) error {
	_ = ctx
	go func() {
		log.WithField("listen", s.listen).Info("api listening")
		if err := s.echo.Start(s.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("api server failed")
			s.errc <- err
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	select {
	case serveErr := <-s.errc:
		return errors.Join(serveErr, err)
	default:
		return err
	}
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(headerRequestID)
		if id == "" {
			id = uuid.New()
		}
		c.Response().Header().Set(headerRequestID, id)
		entry := log.WithField("request_id", id)
		c.Set(ctxLogKey, entry)

		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		entry.
			WithField("method", c.Request().Method).
			WithField("path", c.Path()).
			WithField("status", c.Response().Status).
			WithField("took", time.Since(start).String()).
			Debug("request served")
		return nil
	}
}

func logEntry(c echo.Context) *log.Entry {
	if entry, ok := c.Get(ctxLogKey).(*log.Entry); ok {
		return entry
	}
	return log.NewEntry(log.StandardLogger())
}

func (s *Server) HandleHealth(c echo.Context) error {
	if err := s.client.Ping(c.Request().Context()); err != nil {
		return errs.Storage("ping", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) HandleIntent(c echo.Context) error {
	var intent moderation.Intent
	if err := c.Bind(&intent); err != nil {
		return c.JSON(http.StatusBadRequest, moderation.Failed(intent.Command, errs.InvalidInput("malformed intent")))
	}
	decision, err := s.engine.Execute(c.Request().Context(), intent)
	if err != nil {
		status := StatusOf(err)
		if status >= http.StatusInternalServerError {
			logEntry(c).WithError(err).WithField("command", intent.Command).Error("intent failed")
		}
		return c.JSON(status, moderation.Failed(intent.Command, err))
	}
	return c.JSON(http.StatusOK, decision)
}

// HandleMember reports member state; reading it clears an expired mute.
func (s *Server) HandleMember(c echo.Context) error {
	chatID, err := int64Param(c, "chat")
	if err != nil {
		return err
	}
	userID, err := int64Param(c, "user")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.engine.IsMuted(ctx, chatID, moderation.Target{ID: userID}); err != nil {
		return err
	}
	member, err := s.client.GetMember(ctx, db.MemberKey{UserID: userID, ChatID: chatID})
	if err != nil {
		return err
	}
	if member == nil {
		return errs.NotFound("member %d in chat %d", userID, chatID)
	}
	return c.JSON(http.StatusOK, member)
}

// HandleReports lists pending reports of a chat oldest first; chat 0 lists all. ?limit bounds the page.
func (s *Server) HandleReports(c echo.Context) error {
	chatID, err := int64Param(c, "chat")
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return errs.InvalidInput("limit must be a non-negative integer")
		}
	}
	reports, err := s.client.ListPendingReports(c.Request().Context(), chatID, limit)
	if err != nil {
		return err
	}
	if reports == nil {
		reports = []*db.Report{}
	}
	return c.JSON(http.StatusOK, reports)
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var httpErr *echo.HTTPError
	status := StatusOf(err)
	message := err.Error()
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		message = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError {
		logEntry(c).WithError(err).Error("request failed")
	}
	if err := c.JSON(status, map[string]string{"error": message}); err != nil {
		logEntry(c).WithError(err).Warn("cant write error response")
	}
}

// StatusOf maps the moderation error kinds onto HTTP statuses.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func int64Param(c echo.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, errs.InvalidInput("%s must be an integer", name)
	}
	return v, nil
}
