package messaging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recipient addresses a notification to one player in their language.
type Recipient struct {
	ID       uuid.UUID
	Language string
}

// Sink receives fire-and-forget notifications. Implementations must not
// block the caller.
type Sink interface {
	Notify(to Recipient, key string, params Params)
}

// NopSink discards every notification.
type NopSink struct{}

// Notify does nothing.
func (NopSink) Notify(Recipient, string, Params) {}

// Delivery carries rendered text to a player's client.
type Delivery interface {
	Deliver(id uuid.UUID, text string)
}

// Dispatcher is the Sink that renders through a Catalog and hands the text to
// a Delivery.
type Dispatcher struct {
	catalog  *Catalog
	delivery Delivery
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher.
//
// Precondition: catalog, delivery and logger must be non-nil.
func NewDispatcher(catalog *Catalog, delivery Delivery, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{catalog: catalog, delivery: delivery, logger: logger.Named("messaging")}
}

// Notify renders key for the recipient's language and delivers it.
func (d *Dispatcher) Notify(to Recipient, key string, params Params) {
	text := d.catalog.Render(to.Language, key, params)
	d.logger.Debug("notify",
		zap.Stringer("player", to.ID),
		zap.String("key", key),
		zap.String("text", text),
	)
	d.delivery.Deliver(to.ID, text)
}

// LogDelivery writes rendered notifications to the log. It is the delivery
// used when no host client channel is attached.
type LogDelivery struct {
	Logger *zap.Logger
}

// Deliver logs text at info level.
func (l LogDelivery) Deliver(id uuid.UUID, text string) {
	l.Logger.Info("player message", zap.Stringer("player", id), zap.String("text", text))
}
