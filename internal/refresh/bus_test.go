package refresh

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCovers(t *testing.T) {
	all := Event{Reason: ReasonImport}
	assert.True(t, all.Covers(42), "empty id list covers everything")

	some := Event{Reason: ReasonBulk, IssueIDs: []int{3, 7}}
	assert.True(t, some.Covers(7))
	assert.False(t, some.Covers(5))
}

func TestPublishDeliversInOrder(t *testing.T) {
	bus := New()
	var got []string
	bus.Subscribe(func(ctx context.Context, e Event) error {
		got = append(got, "first:"+string(e.Reason))
		return nil
	})
	bus.Subscribe(func(ctx context.Context, e Event) error {
		got = append(got, "second:"+string(e.Reason))
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), Event{Reason: ReasonUpdated}))
	assert.Equal(t, []string{"first:updated", "second:updated"}, got)
}

func TestPublishJoinsHandlerErrors(t *testing.T) {
	bus := New()
	boom := errors.New("boom")
	ran := false
	bus.Subscribe(func(context.Context, Event) error { return boom })
	bus.Subscribe(func(context.Context, Event) error { ran = true; return nil })

	err := bus.Publish(context.Background(), Event{Reason: ReasonBulk})
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, ErrRefreshFailed)
	assert.True(t, ran, "a failing handler must not stop delivery")
}

func TestUnsubscribe(t *testing.T) {
	bus := New()
	calls := 0
	unsub := bus.Subscribe(func(context.Context, Event) error { calls++; return nil })
	bus.Subscribe(func(context.Context, Event) error { return nil })
	require.Equal(t, 2, bus.Len())

	unsub()
	unsub()
	assert.Equal(t, 1, bus.Len())

	require.NoError(t, bus.Publish(context.Background(), Event{}))
	assert.Zero(t, calls)
}

func TestPublishOnNilBus(t *testing.T) {
	var bus *Bus
	assert.NoError(t, bus.Publish(context.Background(), Event{}))
}
