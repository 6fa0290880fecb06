package messaging_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skillforge/internal/messaging"
)

type captured struct {
	id   uuid.UUID
	text string
}

type captureDelivery struct{ got []captured }

func (c *captureDelivery) Deliver(id uuid.UUID, text string) {
	c.got = append(c.got, captured{id, text})
}

func TestDispatcher_Notify(t *testing.T) {
	c, err := messaging.LoadEmbedded()
	require.NoError(t, err)
	d := &captureDelivery{}
	disp := messaging.NewDispatcher(c, d, zaptest.NewLogger(t))

	id := uuid.New()
	disp.Notify(messaging.Recipient{ID: id, Language: "en-US"}, messaging.KeyWelcome, messaging.Params{"name": "Ada"})
	require.Len(t, d.got, 1)
	assert.Equal(t, id, d.got[0].id)
	assert.Equal(t, "Welcome, Ada! Your skills grow as you use them.", d.got[0].text)
}

func TestNopSink(t *testing.T) {
	var s messaging.Sink = messaging.NopSink{}
	assert.NotPanics(t, func() { s.Notify(messaging.Recipient{}, messaging.KeyMissed, nil) })
}

func TestLogDelivery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	messaging.LogDelivery{Logger: zap.New(core)}.Deliver(uuid.New(), "hello")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].ContextMap()["text"])
}
