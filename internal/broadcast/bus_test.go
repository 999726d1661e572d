package broadcast

import (
	"testing"
	"time"

	"github.com/TattooNOW/tattoonow-show/internal/models"
)

func receive(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func TestPublishOrderPerOrigin(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	sub := bus.Subscribe(TopicState)
	defer sub.Close()

	for i := 0; i < 100; i++ {
		bus.Publish(StateMessage{Origin: "a", Kind: StateSlide, Index: i})
	}
	for i := 0; i < 100; i++ {
		msg := receive(t, sub).(StateMessage)
		if msg.Index != i {
			t.Fatalf("got index %d, want %d", msg.Index, i)
		}
	}
}

func TestTopicsAreIndependent(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	state := bus.Subscribe(TopicState)
	notes := bus.Subscribe(TopicNotes)
	defer state.Close()
	defer notes.Close()

	bus.Publish(ContextMessage{Origin: "p", Kind: ContextReady})
	bus.Publish(StateMessage{Origin: "p", Kind: StateShowQR, Value: true})

	if msg := receive(t, notes); msg.Topic() != TopicNotes {
		t.Errorf("notes subscription got %s message", msg.Topic())
	}
	if msg := receive(t, state); msg.Topic() != TopicState {
		t.Errorf("state subscription got %s message", msg.Topic())
	}
}

func TestSubscriptionCloseTearsDown(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	sub := bus.Subscribe(TopicState)
	if n := bus.Subscribers(TopicState); n != 1 {
		t.Fatalf("got %d subscribers, want 1", n)
	}
	sub.Close()
	sub.Close()
	if n := bus.Subscribers(TopicState); n != 0 {
		t.Fatalf("got %d subscribers after close, want 0", n)
	}
	bus.Publish(StateMessage{Origin: "a", Kind: StateAutoMode, Value: true})

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("closed subscription delivered a message")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delivery channel not closed")
	}
}

func TestBusCloseClosesSubscriptions(t *testing.T) {
	bus := NewMemoryBus()
	sub := bus.Subscribe(TopicNotes)
	bus.Close()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed with bus")
	}

	late := bus.Subscribe(TopicNotes)
	if _, ok := <-late.C(); ok {
		t.Fatal("subscription on closed bus should be closed")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	img := 2
	data, err := Encode(StateMessage{Origin: "w1", Kind: StateSelectedImage, Image: &img})
	if err != nil {
		t.Fatal(err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	state, ok := msg.(StateMessage)
	if !ok {
		t.Fatalf("got %T, want StateMessage", msg)
	}
	if state.Image == nil || *state.Image != 2 || state.Origin != "w1" {
		t.Errorf("unexpected message %+v", state)
	}

	data, err = Encode(ContextMessage{Origin: "p", Kind: ContextUpdate, Context: &NotesContext{Title: "Intro", Episode: models.Episode{Number: 4}}})
	if err != nil {
		t.Fatal(err)
	}
	msg, err = Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if ctx := msg.(ContextMessage).Context; ctx == nil || ctx.Title != "Intro" || ctx.Episode.Number != 4 {
		t.Errorf("unexpected context %+v", ctx)
	}
}

func TestDecodeRejectsUnknown(t *testing.T) {
	inputs := []string{
		`{"channel":"video","payload":{}}`,
		`{"channel":"state","payload":{"type":"teleport"}}`,
		`{"channel":"state","payload":{"type":"portfolioLayout","layout":"carousel"}}`,
		`{"channel":"notes","payload":{"type":"shout"}}`,
		`not json`,
	}
	for _, in := range inputs {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("Decode(%s) succeeded, want error", in)
		}
	}
}
