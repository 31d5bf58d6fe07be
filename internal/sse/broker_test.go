package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishNoteEvent_Kinds(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for kind, want := range map[string]string{
		"created": TypeNoteCreated,
		"updated": TypeNoteUpdated,
		"deleted": TypeNoteDeleted,
	} {
		b.PublishNoteEvent(kind, "dir/a.md")
		select {
		case msg := <-ch:
			s := string(msg)
			if !strings.Contains(s, "event: "+want+"\n") {
				t.Errorf("%s: missing event type in %q", kind, s)
			}
			if !strings.Contains(s, `"path":"dir/a.md"`) {
				t.Errorf("%s: missing data in %q", kind, s)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: timeout waiting for message", kind)
		}
		// Drain the tags.updated that follows the first change.
		select {
		case <-ch:
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestChangeEvents_TagsThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First change should trigger tags.updated.
	b.PublishNoteEvent("created", "a.md")
	// Changes right after should NOT trigger another tags.updated.
	b.PublishTagged("op-1", TaggedData{Operation: "add", Tags: []string{"x"}, Files: []string{"a.md"}})
	b.PublishNoteEvent("bogus", "c.md")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	tagsCount := 0
	noteCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, TypeTagsUpdated) {
				tagsCount++
			} else {
				noteCount++
			}
		default:
			break loop
		}
	}

	if noteCount != 2 {
		t.Errorf("note events = %d, want 2", noteCount)
	}
	if tagsCount != 1 {
		t.Errorf("tags events = %d, want 1 (throttled)", tagsCount)
	}
}

func TestPublishTagged_WireFormat(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishTagged("1b4e28ba", TaggedData{Operation: "remove", Tags: []string{"old"}, Files: []string{"n.md"}})

	select {
	case msg := <-ch:
		want := "id: 1b4e28ba\nevent: note.tagged\ndata: {\"operation\":\"remove\",\"tags\":[\"old\"],\"files\":[\"n.md\"]}\n\n"
		if string(msg) != want {
			t.Errorf("got = %q, want %q", msg, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "x.md"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.PublishTagged("op", TaggedData{Operation: "add", Tags: []string{"t"}, Files: []string{"a.md"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "x.md"}})
	b.PublishNoteEvent("updated", "x.md")
	b.PublishTagged("x", TaggedData{})
}
