package shared

import "testing"

func TestBroadcaster(t *testing.T) {
	t.Run("Delivers To Every Subscriber", func(t *testing.T) {
		b := NewBroadcaster[int](4)
		a, unsubA := b.Subscribe()
		c, unsubC := b.Subscribe()
		defer unsubA()
		defer unsubC()

		b.Publish(1)

		if got := <-a; got != 1 {
			t.Errorf("expected 1, got %d", got)
		}
		if got := <-c; got != 1 {
			t.Errorf("expected 1, got %d", got)
		}
	})

	t.Run("Full Subscribers Drop Values", func(t *testing.T) {
		b := NewBroadcaster[int](1)
		ch, unsub := b.Subscribe()
		defer unsub()

		b.Publish(1)
		b.Publish(2)

		if got := <-ch; got != 1 {
			t.Errorf("expected first value to be kept, got %d", got)
		}
		select {
		case v := <-ch:
			t.Errorf("expected dropped value, got %d", v)
		default:
		}
	})

	t.Run("Unsubscribe Closes Channel", func(t *testing.T) {
		b := NewBroadcaster[string](1)
		ch, unsub := b.Subscribe()
		unsub()
		unsub()

		if _, ok := <-ch; ok {
			t.Error("expected closed channel")
		}
		if b.Len() != 0 {
			t.Errorf("expected no subscribers, got %d", b.Len())
		}
		b.Publish("ignored")
	})
}
