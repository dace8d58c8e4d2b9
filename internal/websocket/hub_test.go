package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHub_NotifiesOnlyTheOwner(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := &Client{Hub: hub, OwnerRef: "alice", Send: make(chan []byte, 4)}
	bob := &Client{Hub: hub, OwnerRef: "bob", Send: make(chan []byte, 4)}
	hub.register <- alice
	hub.register <- bob

	hub.NotifyUnreadCount("alice", 3)

	var event UnreadCountEvent
	require.NoError(t, json.Unmarshal(receive(t, alice.Send), &event))
	assert.Equal(t, "reminders.unread_count", event.Type)
	assert.Equal(t, int64(3), event.UnreadCount)

	select {
	case msg := <-bob.Send:
		t.Fatalf("bob received %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := &Client{Hub: hub, OwnerRef: "alice", Send: make(chan []byte, 1)}
	hub.register <- c
	hub.unregister <- c

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}
