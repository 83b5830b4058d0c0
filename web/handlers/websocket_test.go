package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketHub_BroadcastReachesClients(t *testing.T) {
	hub := NewWebSocketHub([]string{"localhost:7171"})
	go hub.Run()
	defer hub.Stop()

	client := &MockClient{SendChan: make(chan []byte, 8)}
	hub.Register(client)

	hub.Broadcast(map[string]string{"type": "audit", "status": "completed"})

	select {
	case data := <-client.SendChan:
		var msg map[string]string
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "audit", msg["type"])
		assert.Equal(t, "completed", msg["status"])
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached the client")
	}
}

func TestWebSocketHub_UnregisterClosesSendChannel(t *testing.T) {
	hub := NewWebSocketHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := &MockClient{SendChan: make(chan []byte, 1)}
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, open := <-client.SendChan:
		assert.False(t, open, "send channel should be closed after unregister")
	case <-time.After(time.Second):
		t.Fatal("send channel never closed")
	}
}

func TestWebSocketHub_SlowClientDropped(t *testing.T) {
	hub := NewWebSocketHub(nil)
	go hub.Run()
	defer hub.Stop()

	// Unbuffered channel with no reader: the first broadcast cannot be
	// delivered and the hub drops the client.
	slow := &MockClient{SendChan: make(chan []byte)}
	hub.Register(slow)

	hub.Broadcast("first")

	assert.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 0
	}, time.Second, 10*time.Millisecond, "slow client should be evicted")
}
