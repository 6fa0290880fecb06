// Package server runs the game server's long-lived services and shuts them
// down in order when a signal arrives or one of them fails.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrShutdownOverrun is returned by Run when a service's Start has not
// returned within the grace period after its Stop.
var ErrShutdownOverrun = errors.New("services still running after shutdown grace")

// Service is a long-running component.
type Service interface {
	// Start runs the service and blocks until it is stopped or fails.
	Start() error
	// Stop asks a running Start to return. It must be safe before Start.
	Stop()
}

type unit struct {
	name string
	svc  Service
	done chan struct{}
}

// Lifecycle starts services concurrently and stops them in reverse order of
// registration, so a service may depend on anything added before it.
type Lifecycle struct {
	logger *zap.Logger
	grace  time.Duration
	units  []*unit
}

// NewLifecycle creates a Lifecycle that allows each service grace to stop.
//
// Precondition: logger must be non-nil; grace > 0.
func NewLifecycle(logger *zap.Logger, grace time.Duration) *Lifecycle {
	return &Lifecycle{logger: logger.Named("lifecycle"), grace: grace}
}

// Add registers svc under name. Add must not be called once Run has begun.
func (l *Lifecycle) Add(name string, svc Service) {
	l.units = append(l.units, &unit{name: name, svc: svc, done: make(chan struct{})})
}

// Run starts every service and blocks until SIGINT or SIGTERM arrives, ctx
// is cancelled, or a service's Start fails. Services are then stopped one
// at a time, newest first. Run may be called once.
//
// Postcondition: returns the first service failure, or ErrShutdownOverrun
// when a service outlived its grace. A nil return means every Start
// returned cleanly.
func (l *Lifecycle) Run(ctx context.Context) error {
	began := time.Now()
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	g, gctx := errgroup.WithContext(ctx)

	for _, u := range l.units {
		g.Go(func() error {
			defer close(u.done)
			l.logger.Info("service starting", zap.String("service", u.name))
			if err := u.svc.Start(); err != nil {
				l.logger.Error("service failed", zap.String("service", u.name), zap.Error(err))
				return fmt.Errorf("service %s: %w", u.name, err)
			}
			return nil
		})
	}

	<-gctx.Done()
	l.logger.Info("shutting down",
		zap.NamedError("cause", context.Cause(gctx)),
		zap.Duration("uptime", time.Since(began)),
	)

	overran := false
	for i := len(l.units) - 1; i >= 0; i-- {
		if !l.stop(l.units[i]) {
			overran = true
		}
	}
	if overran {
		return ErrShutdownOverrun
	}
	return g.Wait()
}

// stop calls Stop on u and waits up to the grace for its Start to return.
func (l *Lifecycle) stop(u *unit) bool {
	t0 := time.Now()
	u.svc.Stop()
	timer := time.NewTimer(l.grace)
	defer timer.Stop()
	select {
	case <-u.done:
		l.logger.Info("service stopped",
			zap.String("service", u.name),
			zap.Duration("elapsed", time.Since(t0)),
		)
		return true
	case <-timer.C:
		l.logger.Error("service did not stop",
			zap.String("service", u.name),
			zap.Duration("grace", l.grace),
		)
		return false
	}
}
