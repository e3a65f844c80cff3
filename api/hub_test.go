package api

import (
	"testing"
	"time"

	"github.com/amonks/tareas/core"
)

func TestBroadcastDropsStalledSubscriber(t *testing.T) {
	hub := NewHub(nil)
	stalled := &subscriber{send: make(chan []byte, 1)}
	if !hub.add(stalled) {
		t.Fatal("expected subscriber to register")
	}

	done := make(chan struct{})
	go func() {
		hub.Broadcast(core.Event{Kind: core.EventTaskCreated, Task: "Deploy"})
		hub.Broadcast(core.Event{Kind: core.EventTaskFinished, Task: "Deploy"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Broadcast to return with a stalled subscriber")
	}

	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("expected stalled subscriber to be dropped, got %d", n)
	}
	if _, ok := <-stalled.send; !ok {
		t.Fatal("expected the queued event before the channel closed")
	}
	if _, ok := <-stalled.send; ok {
		t.Fatal("expected send channel to be closed")
	}
}

func TestClosedHubRejectsSubscribers(t *testing.T) {
	hub := NewHub(nil)
	hub.Close()
	if hub.add(&subscriber{send: make(chan []byte, 1)}) {
		t.Fatal("expected closed hub to refuse new subscribers")
	}
}
