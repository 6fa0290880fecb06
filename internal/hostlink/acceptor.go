package hostlink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/config"
)

// SessionHandler serves one connected host until it disconnects or ctx is
// cancelled.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor accepts host connections and runs a SessionHandler for each, up
// to cfg.MaxSessions at once. It implements server.Service.
type Acceptor struct {
	cfg     config.HostLinkConfig
	handler SessionHandler
	logger  *zap.Logger

	// ctx is cancelled by Stop; the listener and every session close with it.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	ln       net.Listener
	live     int
	sessions sync.WaitGroup
}

// NewAcceptor creates an Acceptor.
//
// Precondition: handler and logger must be non-nil; cfg must pass validation.
func NewAcceptor(cfg config.HostLinkConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger.Named("hostlink"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start listens on cfg.Addr and serves hosts until Stop.
//
// Postcondition: returns nil after Stop, or the listen error.
func (a *Acceptor) Start() error {
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	a.mu.Lock()
	if a.ctx.Err() != nil {
		a.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	a.ln = ln
	a.mu.Unlock()
	defer context.AfterFunc(a.ctx, func() { _ = ln.Close() })()

	a.logger.Info("host link listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int("max_sessions", a.cfg.MaxSessions),
	)
	for {
		nc, err := ln.Accept()
		if err != nil {
			if a.ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("host link listener closed: %w", err)
			}
			a.logger.Warn("accepting host", zap.Error(err))
			continue
		}
		conn := NewConn(nc, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
		switch a.admit() {
		case admitted:
			go a.serve(conn)
		case full:
			a.logger.Warn("host refused: session limit reached",
				zap.String("remote_addr", nc.RemoteAddr().String()),
			)
			_ = conn.WriteLine("err session limit reached")
			_ = conn.Close()
		case stopping:
			_ = conn.Close()
			return nil
		}
	}
}

type admission int

const (
	admitted admission = iota
	full
	stopping
)

func (a *Acceptor) admit() admission {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.ctx.Err() != nil:
		return stopping
	case a.live >= a.cfg.MaxSessions:
		return full
	}
	a.live++
	a.sessions.Add(1)
	return admitted
}

func (a *Acceptor) serve(conn *Conn) {
	defer a.sessions.Done()
	defer func() {
		a.mu.Lock()
		a.live--
		a.mu.Unlock()
	}()
	defer conn.Close()
	defer context.AfterFunc(a.ctx, func() { _ = conn.Close() })()

	began := time.Now()
	addr := conn.RemoteAddr().String()
	a.logger.Info("host connected", zap.String("remote_addr", addr))

	err := a.handler.HandleSession(a.ctx, conn)
	a.logger.Info("host disconnected",
		zap.String("remote_addr", addr),
		zap.Duration("connected", time.Since(began)),
		zap.NamedError("reason", err),
	)
}

// Stop closes the listener and every session, then waits for the session
// handlers to return. It is safe to call before Start and more than once.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	a.cancel()
	a.mu.Unlock()
	a.sessions.Wait()
}

// Addr returns the bound listen address, or "" before Start has listened.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return ""
	}
	return a.ln.Addr().String()
}

// IsRunning reports whether the acceptor is listening and not stopped.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ln != nil && a.ctx.Err() == nil
}

// Sessions returns the number of connected hosts.
func (a *Acceptor) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}
