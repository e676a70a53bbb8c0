package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Hooks adapts a pair of funcs to Component. Nil hooks are no-ops.
type Hooks struct {
	Name    string
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

func (h Hooks) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

func (h Hooks) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}

func (h Hooks) String() string {
	return h.Name
}

// Runtime starts components in registration order and stops them in reverse.
type Runtime struct {
	components  []Component
	stopTimeout time.Duration
}

func NewRuntime(stopTimeout time.Duration, components ...Component) *Runtime {
	r := &Runtime{stopTimeout: stopTimeout}
	for _, component := range components {
		r.Register(component)
	}
	return r
}

func (r *Runtime) Register(component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, component)
}

func (r *Runtime) Start(ctx context.Context) error {
	started := make([]Component, 0, len(r.components))
	for _, component := range r.components {
		log.WithField("component", name(component)).Debug("starting")
		if err := component.Start(ctx); err != nil {
			_ = stopComponents(ctx, started)
			return fmt.Errorf("start %s: %w", name(component), err)
		}
		started = append(started, component)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	return stopComponents(ctx, r.components)
}

// Run starts every component, blocks until ctx is done and stops them within the stop timeout.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx := context.Background()
	if r.stopTimeout > 0 {
		var cancel context.CancelFunc
		stopCtx, cancel = context.WithTimeout(stopCtx, r.stopTimeout)
		defer cancel()
	}
	return r.Stop(stopCtx)
}

func stopComponents(ctx context.Context, components []Component) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		component := components[i]
		log.WithField("component", name(component)).Debug("stopping")
		if err := component.Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", name(component), err))
		}
	}
	return stopErr
}

func name(component Component) string {
	if s, ok := component.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", component)
}
