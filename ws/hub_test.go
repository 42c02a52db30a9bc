package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"options_venue/models"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(hub.Handler))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		require.Less(t, time.Now().UnixNano(), deadline.UnixNano(), "hub never reached %d clients", want)
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestBroadcastReachesConnectedClient(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestHub(t, hub)
	waitForClients(t, hub, 1)

	tick := models.Tick{Time: 1_700_000_000_000, Open: 100, High: 101, Low: 99, Close: 100.5}
	hub.BroadcastTick("BTC/USD", tick)

	frame := readFrame(t, conn)
	require.Equal(t, "tick", frame.Type)
	require.Equal(t, "BTC/USD", frame.Asset)
	require.NotNil(t, frame.Tick)
	require.Equal(t, tick, *frame.Tick)
}

func TestSubscriptionFiltersAssets(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestHub(t, hub)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteJSON(subscribeMsg{Type: "subscribe", Asset: "ETH/USD"}))

	// The subscribe races the broadcasts below; wait until it lands.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mtx.RLock()
		var subscribed bool
		for c := range hub.clients {
			subscribed = !c.subscribedTo("BTC/USD")
		}
		hub.mtx.RUnlock()
		if subscribed {
			break
		}
		require.Less(t, time.Now().UnixNano(), deadline.UnixNano(), "subscription never registered")
		time.Sleep(5 * time.Millisecond)
	}

	hub.BroadcastTick("BTC/USD", models.Tick{Close: 1})
	hub.BroadcastTick("ETH/USD", models.Tick{Close: 2})

	frame := readFrame(t, conn)
	require.Equal(t, "ETH/USD", frame.Asset, "only the subscribed asset comes through")
	require.Equal(t, 2.0, frame.Tick.Close)
}

func TestDisconnectedClientIsDropped(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestHub(t, hub)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting into an empty hub must not panic.
	hub.BroadcastTick("BTC/USD", models.Tick{Close: 1})
}
