package events

import (
	"testing"
	"time"
)

// TestPublishSubscribe verifies basic publish/subscribe functionality.
func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicStep, 10)

	event := StepStartedEvent{
		Index:     0,
		Label:     "Chipset",
		Path:      "/intake/chipset.run",
		Timestamp: time.Now(),
	}

	bus.Publish(TopicStep, event)

	select {
	case received := <-ch:
		if received.Step() != "Chipset" {
			t.Errorf("expected step 'Chipset', got %q", received.Step())
		}
		if received.EventType() != EventTypeStepStarted {
			t.Errorf("expected event type %q, got %q", EventTypeStepStarted, received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

// TestMultipleSubscribers verifies multiple subscribers receive the same event.
func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch1 := bus.Subscribe(TopicStep, 10)
	ch2 := bus.Subscribe(TopicStep, 10)

	bus.Publish(TopicStep, StepCompletedEvent{Index: 1, Label: "Serial-IO", Attempts: 1, Timestamp: time.Now()})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Step() != "Serial-IO" {
				t.Errorf("subscriber %d: expected step 'Serial-IO', got %q", i+1, received.Step())
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d: timeout waiting for event", i+1)
		}
	}
}

// TestSubscribeAllReceivesEveryTopic verifies cross-topic consumption.
func TestSubscribeAllReceivesEveryTopic(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	all := bus.SubscribeAll(10)

	bus.Publish(TopicRun, RunStartedEvent{ResumeIndex: -1, Timestamp: time.Now()})
	bus.Publish(TopicStep, StepMissingEvent{Index: 1, Label: "Serial-IO", Timestamp: time.Now()})

	got := make(map[string]bool)
	for n := 0; n < 2; n++ {
		select {
		case e := <-all:
			got[e.EventType()] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for events")
		}
	}

	if !got[EventTypeRunStarted] || !got[EventTypeStepMissing] {
		t.Errorf("missing events, got %v", got)
	}
}

// TestTopicIsolation verifies subscribers only see their topic.
func TestTopicIsolation(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	runCh := bus.Subscribe(TopicRun, 10)

	bus.Publish(TopicStep, StepStartedEvent{Index: 0, Label: "Chipset", Timestamp: time.Now()})

	select {
	case e := <-runCh:
		t.Errorf("run subscriber received step event: %v", e.EventType())
	case <-time.After(50 * time.Millisecond):
		// Expected: nothing delivered
	}
}

// TestPublishNonBlockingWhenFull verifies a full subscriber never stalls Publish.
func TestPublishNonBlockingWhenFull(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	bus.Subscribe(TopicRun, 1) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(TopicRun, RunStartedEvent{ResumeIndex: i, Timestamp: time.Now()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}
}

// TestCloseIdempotent verifies Close can be called repeatedly and closes
// subscriber channels.
func TestCloseIdempotent(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TopicRun, 10)

	bus.Close()
	bus.Close()

	if _, open := <-ch; open {
		t.Error("subscriber channel should be closed")
	}

	// Publishing after close is a no-op
	bus.Publish(TopicRun, RunStartedEvent{Timestamp: time.Now()})

	// Subscribing after close returns a closed channel
	late := bus.Subscribe(TopicRun, 10)
	if _, open := <-late; open {
		t.Error("post-close subscription should yield a closed channel")
	}
}
