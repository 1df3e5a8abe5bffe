package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := New()
	id1, ch1 := bus.Subscribe(4)
	id2, ch2 := bus.Subscribe(4)
	defer bus.Unsubscribe(id1)
	defer bus.Unsubscribe(id2)

	bus.PublishNew(TypeTaskCreated, "t1", map[string]string{"name": "deploy"})

	e1 := <-ch1
	e2 := <-ch2
	assert.Equal(t, TypeTaskCreated, e1.Type)
	assert.Equal(t, "t1", e1.ResourceID)
	assert.Equal(t, "deploy", e1.Metadata["name"])
	assert.Equal(t, e1.ID, e2.ID)
	assert.False(t, e1.CreatedAt.IsZero())
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TypeUserCreated, "u1", nil)
	bus.PublishNew(TypeUserCreated, "u2", nil)

	e := <-ch
	assert.Equal(t, "u1", e.ResourceID)
	select {
	case e := <-ch:
		t.Fatalf("unexpected second event: %+v", e)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)

	bus.Unsubscribe(id)
	_, ok := <-ch
	require.False(t, ok)

	// Publishing after unsubscribe must not panic.
	bus.PublishNew(TypeTaskStateChanged, "t1", nil)
	// Idempotent.
	bus.Unsubscribe(id)
}
