package gameserver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/game/session"
)

// Saver persists every cached record. *session.Cache implements it.
type Saver interface {
	SaveAll(ctx context.Context) session.SaveReport
}

// Autosaver runs a save pass over the session cache every interval and one
// final pass when stopped. It implements server.Service.
//
// Invariant: at most one save pass runs at a time.
type Autosaver struct {
	saver    Saver
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	passMu sync.Mutex

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewAutosaver returns an Autosaver that saves every interval. Each pass is
// bounded by a timeout of one interval.
//
// Precondition: interval must be > 0; saver and logger must be non-nil.
func NewAutosaver(saver Saver, interval time.Duration, logger *zap.Logger) *Autosaver {
	if interval <= 0 {
		panic("gameserver.NewAutosaver: interval must be > 0")
	}
	return &Autosaver{
		saver:    saver,
		interval: interval,
		timeout:  interval,
		logger:   logger.Named("autosave"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the save loop. It blocks until Stop is called, then runs the
// final pass and returns.
//
// Postcondition: a save pass was attempted after Stop was requested.
func (a *Autosaver) Start() error {
	a.started.Store(true)
	defer close(a.done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			a.Pass(context.Background())
			return nil
		case <-ticker.C:
			a.Pass(context.Background())
		}
	}
}

// Stop requests the final pass and, if Start is running, waits for it.
func (a *Autosaver) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	if a.started.Load() {
		<-a.done
	}
}

// Pass runs one save pass and returns its report.
func (a *Autosaver) Pass(ctx context.Context) session.SaveReport {
	a.passMu.Lock()
	defer a.passMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	start := time.Now()
	report := a.saver.SaveAll(ctx)
	a.logger.Debug("autosave pass",
		zap.Int("saved", report.Saved),
		zap.Int("clean", report.Clean),
		zap.Int("failed", report.Failed),
		zap.Int("evicted", report.Evicted),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report
}
