package hostlink_test

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skillforge/internal/hostlink"
)

type recordingDelivery struct {
	mu    sync.Mutex
	texts map[uuid.UUID][]string
}

func (d *recordingDelivery) Deliver(id uuid.UUID, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.texts == nil {
		d.texts = make(map[uuid.UUID][]string)
	}
	d.texts[id] = append(d.texts[id], text)
}

func (d *recordingDelivery) get(id uuid.UUID) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.texts[id]
}

// routedConn returns a Conn whose output the test reads line by line.
func routedConn(t *testing.T) (*hostlink.Conn, func() string) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	r := bufio.NewReader(client)
	next := func() string {
		_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimRight(line, "\r\n")
	}
	return hostlink.NewConn(server, 0, 2*time.Second), next
}

func TestRouter_UnboundGoesToFallback(t *testing.T) {
	fallback := &recordingDelivery{}
	router := hostlink.NewRouter(fallback, zaptest.NewLogger(t))
	id := uuid.New()

	router.Deliver(id, "You feel more skilled.")
	router.SetHealth(id, 12)
	assert.Equal(t, []string{"You feel more skilled."}, fallback.get(id))
}

func TestRouter_BoundWritesToSession(t *testing.T) {
	fallback := &recordingDelivery{}
	router := hostlink.NewRouter(fallback, zaptest.NewLogger(t))
	conn, next := routedConn(t)
	id := uuid.New()
	router.Bind(id, conn)

	go router.Deliver(id, "line one\nline two")
	assert.Equal(t, "notice "+id.String()+" line one line two", next())
	go router.SetHealth(id, 17.5)
	assert.Equal(t, "health "+id.String()+" 17.50", next())
	assert.Empty(t, fallback.get(id))
}

func TestRouter_UnbindOnlyOwnSession(t *testing.T) {
	router := hostlink.NewRouter(&recordingDelivery{}, zaptest.NewLogger(t))
	first, _ := routedConn(t)
	second, _ := routedConn(t)
	id := uuid.New()

	router.Bind(id, first)
	router.Bind(id, second)
	assert.False(t, router.Unbind(id, first), "a replaced session no longer owns the player")
	assert.Equal(t, 1, router.Bound())
	assert.True(t, router.Unbind(id, second))
	assert.Zero(t, router.Bound())
}

func TestRouter_WriteFailureFallsBack(t *testing.T) {
	fallback := &recordingDelivery{}
	router := hostlink.NewRouter(fallback, zaptest.NewLogger(t))
	conn, _ := routedConn(t)
	require.NoError(t, conn.Close())
	id := uuid.New()
	router.Bind(id, conn)

	router.Deliver(id, "lost")
	assert.Equal(t, []string{"lost"}, fallback.get(id))
}
