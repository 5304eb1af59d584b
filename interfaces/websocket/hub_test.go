package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeleaver/pimble/application/ports"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/infrastructure/events"
)

func startHub(t *testing.T) (*Hub, *events.Bus, string) {
	t.Helper()
	bus := events.NewBus(nil)
	hub := NewHub(bus, nil)
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, bus, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsNodeChanges(t *testing.T) {
	hub, bus, url := startHub(t)
	conn := dial(t, url)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	event := ports.NodeChangedEvent{
		StoreID: valueobjects.NewStoreID(),
		NodeID:  valueobjects.NewNodeID(),
		Change:  ports.ChangeUpdated,
		At:      time.Now().UTC(),
	}
	bus.Publish(context.Background(), event)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg NodeChangedMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "node_changed", msg.Type)
	assert.Equal(t, event.StoreID.String(), msg.StoreID)
	assert.Equal(t, event.NodeID.String(), msg.NodeID)
	assert.Equal(t, string(ports.ChangeUpdated), msg.Change)
}

func TestHubServesMultipleClients(t *testing.T) {
	hub, bus, url := startHub(t)
	first := dial(t, url)
	second := dial(t, url)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	bus.Publish(context.Background(), ports.NodeChangedEvent{
		StoreID: valueobjects.NewStoreID(),
		NodeID:  valueobjects.NewNodeID(),
		Change:  ports.ChangeCreated,
		At:      time.Now().UTC(),
	})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(data), "node_changed")
	}
}

func TestShutdownClosesClients(t *testing.T) {
	hub, _, url := startHub(t)
	conn := dial(t, url)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Shutdown()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
