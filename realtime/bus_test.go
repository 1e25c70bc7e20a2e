package realtime

import (
	"encoding/json"
	"fmt"
	"testing"

	"sahayak/broadcast"
	"sahayak/grievance"
)

func TestBus_PublishAndFilter(t *testing.T) {
	bus := NewBus()

	all := bus.Subscribe(Filter{})
	inserts := bus.Subscribe(Filter{Type: EventInsert})
	complaints := bus.Subscribe(Filter{Table: "complaints"})
	escalations := bus.Subscribe(Filter{Topics: []string{grievance.TopicEscalated}})
	defer all.Close()
	defer inserts.Close()
	defer complaints.Close()
	defer escalations.Close()

	bus.Publish(Event{Type: EventInsert, Table: "complaints", Topic: grievance.TopicCreated})
	bus.Publish(Event{Type: EventUpdate, Table: "complaints", Topic: grievance.TopicEscalated})
	bus.Publish(Event{Type: EventInsert, Table: "calls", Topic: grievance.TopicCallRecorded})

	drain := func(sub *Subscription) []Event {
		var got []Event
		for {
			select {
			case ev := <-sub.Events():
				got = append(got, ev)
			default:
				return got
			}
		}
	}

	if got := drain(all); len(got) != 3 {
		t.Fatalf("unfiltered subscriber: expected 3 events, got %d", len(got))
	}
	if got := drain(inserts); len(got) != 2 {
		t.Fatalf("insert subscriber: expected 2 events, got %d", len(got))
	}
	if got := drain(complaints); len(got) != 2 {
		t.Fatalf("complaints subscriber: expected 2 events, got %d", len(got))
	}
	got := drain(escalations)
	if len(got) != 1 || got[0].Topic != grievance.TopicEscalated {
		t.Fatalf("escalation subscriber: expected one escalation event, got %+v", got)
	}
}

func TestBus_PublishPreservesOrderPerSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(Filter{})
	defer sub.Close()

	for i := 0; i < 10; i++ {
		payload, _ := json.Marshal(map[string]int{"seq": i})
		bus.Publish(Event{Type: EventUpdate, Table: "complaints", Topic: grievance.TopicStatusChanged, Record: payload})
	}

	for i := 0; i < 10; i++ {
		ev := <-sub.Events()
		var rec map[string]int
		if err := json.Unmarshal(ev.Record, &rec); err != nil {
			t.Fatalf("unmarshal record: %v", err)
		}
		if rec["seq"] != i {
			t.Fatalf("expected seq %d, got %d", i, rec["seq"])
		}
	}
}

func TestBus_SlowSubscriberDropsNotBlocks(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(Filter{})
	defer sub.Close()

	// Nobody reads: publishing must never block, overflow is dropped.
	total := subscriptionBuffer + 25
	for i := 0; i < total; i++ {
		bus.Publish(Event{Type: EventInsert, Table: "complaints", Topic: fmt.Sprintf("t-%d", i)})
	}

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
		default:
			if received != subscriptionBuffer {
				t.Fatalf("expected %d buffered events, got %d", subscriptionBuffer, received)
			}
			return
		}
	}
}

func TestBus_CloseDetaches(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(Filter{})
	if bus.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", bus.Subscribers())
	}

	sub.Close()
	sub.Close() // idempotent

	if bus.Subscribers() != 0 {
		t.Fatalf("expected 0 subscribers after close, got %d", bus.Subscribers())
	}

	// Closed channel yields the zero value immediately.
	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed events channel")
	}

	// Publishing after close must not panic.
	bus.Publish(Event{Type: EventInsert, Table: "complaints", Topic: grievance.TopicCreated})
}

func TestEventFor(t *testing.T) {
	cases := []struct {
		topic     string
		wantType  EventType
		wantTable string
	}{
		{grievance.TopicCreated, EventInsert, "complaints"},
		{grievance.TopicStatusChanged, EventUpdate, "complaints"},
		{grievance.TopicEscalated, EventUpdate, "complaints"},
		{grievance.TopicReclassified, EventUpdate, "complaints"},
		{grievance.TopicCallRecorded, EventInsert, "calls"},
		{broadcast.TopicSent, EventInsert, "broadcasts"},
	}

	for _, tc := range cases {
		ev := eventFor(tc.topic, []byte(`{}`))
		if ev.Type != tc.wantType || ev.Table != tc.wantTable {
			t.Errorf("eventFor(%s) = %s/%s, want %s/%s", tc.topic, ev.Type, ev.Table, tc.wantType, tc.wantTable)
		}
	}
}
