package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestClient(hub *Hub, session string) *Client {
	c := &Client{hub: hub, send: make(chan []byte, 8), sessionID: session}
	hub.register <- c
	return c
}

func expectMessage(t *testing.T, c *Client, want []byte) {
	t.Helper()
	select {
	case got := <-c.send:
		assert.Equal(t, want, got)
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("client %s did not receive %q", c.sessionID, want)
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if ok {
			t.Fatalf("client %s received unexpected %q", c.sessionID, msg)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a := newTestClient(hub, "s1")
	b := newTestClient(hub, "s1")

	hub.SendTo("s1", []byte("hello"))
	expectMessage(t, a, []byte("hello"))
	expectMessage(t, b, []byte("hello"))

	hub.unregister <- a
	hub.SendTo("s1", []byte("second"))
	expectNothing(t, a)
	expectMessage(t, b, []byte("second"))
}

func TestHub_SendTo(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	tab1 := newTestClient(hub, "alice")
	tab2 := newTestClient(hub, "alice")
	other := newTestClient(hub, "bob")

	hub.SendTo("alice", []byte(`{"type":"progress"}`))
	expectMessage(t, tab1, []byte(`{"type":"progress"}`))
	expectMessage(t, tab2, []byte(`{"type":"progress"}`))
	expectNothing(t, other)

	hub.SendTo("nobody", []byte("lost"))
	expectNothing(t, other)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	slow := &Client{hub: hub, send: make(chan []byte, 1), sessionID: "slow"}
	hub.register <- slow

	hub.SendTo("slow", []byte("1"))
	hub.SendTo("slow", []byte("2"))

	assert.Eventually(t, func() bool {
		// first message is buffered, then the channel is closed
		<-slow.send
		_, ok := <-slow.send
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestHub_StopUnblocksSenders(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer+10; i++ {
			hub.SendTo("x", []byte("m"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendTo blocked after Stop")
	}
}
