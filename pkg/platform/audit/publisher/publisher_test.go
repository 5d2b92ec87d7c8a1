package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "lookout/pkg/platform/audit"
	"lookout/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		UserID: "user-1",
		Action: string(audit.EventBalanceDebited),
	})
	require.NoError(t, err)

	events, err := store.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryBilling, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			UserID: "user-1",
			Action: string(audit.EventLookupCompleted),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	pub := NewPublisher(store, WithAsyncBuffer(1))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "x"}))
		}()
	}
	wg.Wait()

	assert.Positive(t, pub.Dropped())
	close(store.release)
	pub.Close()
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	assert.Error(t, pub.Emit(context.Background(), audit.Event{Action: "x"}))
}

func TestPublisher_SyncErrorReturned(t *testing.T) {
	pub := NewPublisher(failingStore{})

	err := pub.Emit(context.Background(), audit.Event{Action: "x"})
	assert.Error(t, err)
}

func TestLog_SwallowsEmitErrors(t *testing.T) {
	assert.NotPanics(t, func() {
		Log(context.Background(), nil, NewPublisher(failingStore{}), audit.Event{Action: "x"})
		Log(context.Background(), nil, nil, audit.Event{Action: "x"})
	})
}

func TestHashSubject(t *testing.T) {
	assert.Empty(t, audit.HashSubject(""))
	assert.Len(t, audit.HashSubject("+14155550000"), 64)
	assert.NotContains(t, audit.HashSubject("+14155550000"), "4155550000")
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("store down")
}

// blockingStore holds every Append until release is closed.
type blockingStore struct {
	release chan struct{}
}

func (b *blockingStore) Append(context.Context, audit.Event) error {
	<-b.release
	return nil
}
