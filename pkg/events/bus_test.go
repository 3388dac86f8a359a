package events

import (
	"sync"
	"testing"
)

// mockSubscriber implements Subscriber for testing.
type mockSubscriber struct {
	mu       sync.Mutex
	events   []Event
	isClosed bool
}

func (m *mockSubscriber) Receive(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosed
}

func (m *mockSubscriber) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Event, len(m.events))
	copy(cp, m.events)
	return cp
}

func TestBusEmitByType(t *testing.T) {
	bus := NewBus()
	objects := &mockSubscriber{}
	accounts := &mockSubscriber{}
	bus.Subscribe(EvObject, objects)
	bus.Subscribe(EvAccount, accounts)

	bus.Emit(Event{Type: EvObject, Legacy: 12, Text: "created #12"})

	events := objects.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Text != "created #12" {
		t.Errorf("expected text %q, got %q", "created #12", events[0].Text)
	}
	if len(accounts.Events()) != 0 {
		t.Errorf("account subscriber got %d object events", len(accounts.Events()))
	}
}

func TestBusGlobalSubscriber(t *testing.T) {
	bus := NewBus()
	global := &mockSubscriber{}
	bus.SubscribeGlobal(global)

	bus.Emit(Event{Type: EvPhaseStart, Phase: "skeleton"})
	bus.Emit(Event{Type: EvRunDone})

	events := global.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 global events, got %d", len(events))
	}
	if events[0].Phase != "skeleton" {
		t.Errorf("expected phase %q, got %q", "skeleton", events[0].Phase)
	}
}

func TestBusSubscriberFunc(t *testing.T) {
	bus := NewBus()
	var got []EventType
	fn := SubscriberFunc(func(ev Event) { got = append(got, ev.Type) })
	bus.SubscribeGlobal(fn)
	bus.Subscribe(EvRelation, fn)

	bus.Unsubscribe(EvRelation, fn) // ignored, must not panic
	bus.Emit(Event{Type: EvRelation})

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}

	bus.Subscribe(EvObject, sub)
	bus.Unsubscribe(EvObject, sub)

	bus.Emit(Event{Type: EvObject, Text: "should not arrive"})

	if len(sub.Events()) != 0 {
		t.Error("expected no events after unsubscribe")
	}
	if bus.Subscribers(EvObject) != 0 {
		t.Errorf("expected no subscribers, got %d", bus.Subscribers(EvObject))
	}
}

func TestBusClosedSubscriberSkipped(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{isClosed: true}

	bus.Subscribe(EvObject, sub)
	bus.Emit(Event{Type: EvObject, Text: "no delivery"})

	if len(sub.Events()) != 0 {
		t.Error("closed subscriber should not receive events")
	}
}

func TestNilBusDropsEvents(t *testing.T) {
	var bus *Bus
	bus.Emit(Event{Type: EvRunFailed})
}

func TestBusCleanup(t *testing.T) {
	bus := NewBus()
	active := &mockSubscriber{}
	closed := &mockSubscriber{isClosed: true}

	bus.Subscribe(EvObject, active)
	bus.Subscribe(EvObject, closed)
	bus.Subscribe(EvAccount, &mockSubscriber{isClosed: true})
	bus.SubscribeGlobal(&mockSubscriber{isClosed: true})

	bus.Cleanup()

	if bus.Subscribers(EvObject) != 1 {
		t.Errorf("expected 1 active subscriber, got %d", bus.Subscribers(EvObject))
	}
	if bus.Subscribers(EvAccount) != 0 {
		t.Errorf("expected closed account subscriber removed, got %d", bus.Subscribers(EvAccount))
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EvPhaseStart, "phase_start"},
		{EvObject, "object"},
		{EvExitRenamed, "exit_renamed"},
		{EvRunFailed, "run_failed"},
		{EventType(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
