package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan CameraRestartedEvent, 1)

	unsub := bus.Subscribe(func(e CameraRestartedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(CameraRestartedEvent{CameraID: "3", At: 1700000000000})

	select {
	case got := <-received:
		if got.CameraID != "3" || got.At != 1700000000000 {
			t.Errorf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan StreamStateChangedEvent, 1)
	received2 := make(chan StreamStateChangedEvent, 1)

	unsub1 := bus.Subscribe(func(e StreamStateChangedEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e StreamStateChangedEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(StreamStateChangedEvent{CameraID: "1", State: "streaming"})

	for _, ch := range []chan StreamStateChangedEvent{received1, received2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan StreamFPSEvent, 1)

	unsub := bus.Subscribe(func(e StreamFPSEvent) { received <- e })

	bus.Publish(StreamFPSEvent{CameraID: "1", FPS: 10})
	<-received

	unsub()

	bus.Publish(StreamFPSEvent{CameraID: "1", FPS: 11})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()
	restartReceived := make(chan bool, 1)
	frameReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ CameraRestartedEvent) { restartReceived <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ StreamFrameEvent) { frameReceived <- true })
	defer unsub2()

	bus.Publish(CameraRestartedEvent{CameraID: "1"})
	<-restartReceived

	select {
	case <-frameReceived:
		t.Fatal("frame subscriber should NOT have received CameraRestartedEvent")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_UnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)
	unsub := bus.Subscribe(func(_ StreamFrameEvent) { receivedCh <- true })
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range eventsPerGoroutine {
				bus.Publish(StreamFrameEvent{CameraID: "1", Seq: uint64(i)})
			}
		}()
	}
	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestCameraRestartedEvent_AppliesTo(t *testing.T) {
	tests := []struct {
		name   string
		event  CameraRestartedEvent
		camera string
		want   bool
	}{
		{"empty id applies to all", CameraRestartedEvent{}, "5", true},
		{"all sentinel", CameraRestartedEvent{CameraID: AllCameras}, "5", true},
		{"same camera", CameraRestartedEvent{CameraID: "5"}, "5", true},
		{"other camera", CameraRestartedEvent{CameraID: "7"}, "5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.AppliesTo(tt.camera); got != tt.want {
				t.Errorf("AppliesTo(%q) = %v, want %v", tt.camera, got, tt.want)
			}
		})
	}
}

func TestSubscribeToChannel_DropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	unsub := SubscribeToChannel[StreamFPSEvent](bus, ch)
	defer unsub()

	for i := range 5 {
		bus.Publish(StreamFPSEvent{CameraID: "1", FPS: i})
	}

	select {
	case ev := <-ch:
		if _, ok := ev.(StreamFPSEvent); !ok {
			t.Fatalf("unexpected event type %T", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestSubscribeTyped(t *testing.T) {
	bus := New()
	ch := make(chan CameraRestartedEvent, 4)
	unsub := SubscribeTyped(bus, ch)
	defer unsub()

	bus.Publish(CameraRestartedEvent{CameraID: "2", At: 5})

	select {
	case ev := <-ch:
		if ev.At != 5 {
			t.Errorf("At = %d, want 5", ev.At)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}
