package hostlink

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skillforge/internal/messaging"
	"github.com/cory-johannsen/skillforge/internal/observability"
)

// Router is a messaging.Delivery that sends each rendered notice to the host
// session that joined the player, as a "notice <id> <text>" line. Notices for
// players no session has claimed go to the fallback delivery.
//
// Router is also the health.Host: projected health bars go to the same
// session as "health <id> <value>" lines.
type Router struct {
	mu       sync.RWMutex
	bound    map[uuid.UUID]*Conn
	fallback messaging.Delivery
	logger   *zap.Logger
}

// NewRouter creates a Router.
//
// Precondition: fallback and logger must be non-nil.
func NewRouter(fallback messaging.Delivery, logger *zap.Logger) *Router {
	return &Router{
		bound:    make(map[uuid.UUID]*Conn),
		fallback: fallback,
		logger:   logger.Named("router"),
	}
}

// Bind routes notices for id to conn, replacing any earlier session.
func (r *Router) Bind(id uuid.UUID, conn *Conn) {
	r.mu.Lock()
	r.bound[id] = conn
	r.mu.Unlock()
}

// Unbind drops the route for id if it still points at conn, and reports
// whether it did.
func (r *Router) Unbind(id uuid.UUID, conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bound[id] != conn {
		return false
	}
	delete(r.bound, id)
	return true
}

// Bound returns the number of routed players.
func (r *Router) Bound() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bound)
}

func (r *Router) lookup(id uuid.UUID) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bound[id]
}

// Deliver implements messaging.Delivery.
func (r *Router) Deliver(id uuid.UUID, text string) {
	conn := r.lookup(id)

	if conn == nil {
		r.fallback.Deliver(id, text)
		return
	}
	line := "notice " + id.String() + " " + strings.ReplaceAll(text, "\n", " ")
	if err := conn.WriteLine(line); err != nil {
		r.logger.Warn("delivering notice",
			observability.Player(id),
			zap.Error(err),
		)
		r.fallback.Deliver(id, text)
	}
}

// SetHealth implements health.Host. A bar for an unclaimed player is dropped.
func (r *Router) SetHealth(id uuid.UUID, v float64) {
	conn := r.lookup(id)
	if conn == nil {
		r.logger.Debug("no session for health bar", observability.Player(id), zap.Float64("health", v))
		return
	}
	if err := conn.WriteLine(fmt.Sprintf("health %s %.2f", id, v)); err != nil {
		r.logger.Warn("delivering health bar",
			observability.Player(id),
			zap.Error(err),
		)
	}
}
