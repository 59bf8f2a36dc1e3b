package watch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func pullEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case v, ok := <-sub.Pull():
		if !ok {
			t.Fatalf("the subscription was closed before the event arrived")
		}
		return v.(Event)
	case <-time.After(5 * time.Second):
		t.Fatalf("the event was not delivered")
	}
	return Event{}
}

func TestFlushCoalesces(t *testing.T) {
	h, err := New(make(chan error, 1))
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	sceneID := uuid.New()
	sub := h.Subscribe(sceneID)
	defer sub.Close()

	base := time.Now()
	h.Publish(Event{SceneID: sceneID, Kind: KindObservations, At: base})
	h.Publish(Event{SceneID: sceneID, Kind: KindObservations, At: base.Add(time.Second)})
	h.Publish(Event{SceneID: sceneID, Kind: KindParams, At: base.Add(2 * time.Second)})
	h.Publish(Event{SceneID: sceneID, Kind: KindObservations, At: base.Add(3 * time.Second)})
	h.flush()

	first := pullEvent(t, sub)
	if first.Kind != KindObservations {
		t.Fatalf("the first delivered kind got: %v, expected: %v", first.Kind, KindObservations)
	}
	if !first.At.Equal(base.Add(3 * time.Second)) {
		t.Errorf(
			"the coalesced event timestamp got: %v, expected the newest one: %v",
			first.At, base.Add(3*time.Second),
		)
	}
	second := pullEvent(t, sub)
	if second.Kind != KindParams {
		t.Errorf("the second delivered kind got: %v, expected: %v", second.Kind, KindParams)
	}
}

func TestSceneSubscriberFiltering(t *testing.T) {
	h, err := New(make(chan error, 1))
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	mine, other := uuid.New(), uuid.New()
	sub := h.Subscribe(mine)
	defer sub.Close()

	h.Publish(Event{SceneID: other, Kind: KindObservations})
	h.Publish(Event{SceneID: mine, Kind: KindSamples})
	h.flush()

	evt := pullEvent(t, sub)
	if evt.SceneID != mine || evt.Kind != KindSamples {
		t.Errorf(
			"the delivered event got: %v %v, expected only the subscribed scene: %v %v",
			evt.SceneID, evt.Kind, mine, KindSamples,
		)
	}
}

func TestGlobalSubscriber(t *testing.T) {
	h, err := New(make(chan error, 1))
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	all := h.Subscribe(uuid.Nil)
	defer all.Close()

	first, second := uuid.New(), uuid.New()
	h.Publish(Event{SceneID: first, Kind: KindParams})
	h.Publish(Event{SceneID: second, Kind: KindEvicted})
	h.flush()

	got := []Event{pullEvent(t, all), pullEvent(t, all)}
	if got[0].SceneID != first || got[0].Kind != KindParams {
		t.Errorf("the first global event got: %v %v, expected: %v %v", got[0].SceneID, got[0].Kind, first, KindParams)
	}
	if got[1].SceneID != second || got[1].Kind != KindEvicted {
		t.Errorf("the second global event got: %v %v, expected: %v %v", got[1].SceneID, got[1].Kind, second, KindEvicted)
	}
}

func TestPublishFillsTimestamp(t *testing.T) {
	h, err := New(make(chan error, 1))
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	sceneID := uuid.New()
	sub := h.Subscribe(sceneID)
	defer sub.Close()

	h.Publish(Event{SceneID: sceneID, Kind: KindCleared})
	h.flush()

	if evt := pullEvent(t, sub); evt.At.IsZero() {
		t.Errorf("the delivered event timestamp is zero, expected it to be filled on publish")
	}
}

func TestShutdownDeliversBacklog(t *testing.T) {
	shutdownCh := make(chan error, 1)
	h, err := New(shutdownCh, WithFlushInterval(time.Hour))
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	sceneID := uuid.New()
	sub := h.Subscribe(sceneID)
	h.Publish(Event{SceneID: sceneID, Kind: KindObservations})
	h.Publish(Event{SceneID: sceneID, Kind: KindSamples})
	h.Stop()

	var kinds []Kind
	timeout := time.After(5 * time.Second)
	for {
		select {
		case v, ok := <-sub.Pull():
			if !ok {
				if len(kinds) != 2 {
					t.Fatalf("the backlog delivered on shutdown got: %v, expected 2 events", kinds)
				}
				if kinds[0] != KindObservations || kinds[1] != KindSamples {
					t.Errorf(
						"the backlog order got: %v, expected: [%v %v]",
						kinds, KindObservations, KindSamples,
					)
				}
				if err := <-shutdownCh; err != nil {
					t.Errorf("the error should not be returned: %v", err)
				}
				return
			}
			kinds = append(kinds, v.(Event).Kind)
		case <-timeout:
			t.Fatalf("the subscription was not closed, delivered so far: %v", kinds)
		}
	}
}

func TestSubscribeAfterShutdown(t *testing.T) {
	shutdownCh := make(chan error, 1)
	h, err := New(shutdownCh, WithFlushInterval(time.Hour))
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	h.Stop()
	if err := <-shutdownCh; err != nil {
		t.Errorf("the error should not be returned: %v", err)
	}

	h.Publish(Event{SceneID: uuid.New(), Kind: KindParams})

	sub := h.Subscribe(uuid.New())
	select {
	case _, ok := <-sub.Pull():
		if ok {
			t.Errorf("no events are expected from a subscription opened after shutdown")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("the subscription opened after shutdown was not closed")
	}
}
