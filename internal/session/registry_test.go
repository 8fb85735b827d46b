package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (f *fakeChannel) Send(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func sendAll(r *Registry) (int, error) {
	return r.ForEach(func(_ uuid.UUID, ch Channel) error {
		return ch.Send(nil)
	})
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)
	assert.Equal(t, 0, r.Len())

	n, err := sendAll(r)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestRegisterReceivesBroadcast(t *testing.T) {
	r := NewRegistry()
	a, b := &fakeChannel{}, &fakeChannel{}
	r.Register(NewID(), a)
	r.Register(NewID(), b)

	n, err := sendAll(r)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestUnregisterStopsDelivery(t *testing.T) {
	r := NewRegistry()
	id := NewID()
	ch := &fakeChannel{}
	r.Register(id, ch)
	r.Unregister(id)

	n, err := sendAll(r)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, ch.count())
}

func TestUnregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	id := NewID()
	r.Register(id, &fakeChannel{})

	r.Unregister(id)
	r.Unregister(id)
	r.Unregister(NewID())

	assert.Equal(t, 0, r.Len())
}

func TestForEachSkipsFailingChannel(t *testing.T) {
	r := NewRegistry()
	deadID := NewID()
	dead := &fakeChannel{err: ErrClosed}
	live1, live2 := &fakeChannel{}, &fakeChannel{}
	r.Register(deadID, dead)
	r.Register(NewID(), live1)
	r.Register(NewID(), live2)

	n, err := sendAll(r)
	assert.Equal(t, 2, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClosed)

	var sendErr *SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Equal(t, deadID, sendErr.ID)

	assert.Equal(t, 1, live1.count())
	assert.Equal(t, 1, live2.count())
	// The registry does not evict on failure.
	assert.Equal(t, 3, r.Len())
}

func TestEveryBroadcastReachesRegisteredSessions(t *testing.T) {
	r := NewRegistry()
	chans := make(map[uuid.UUID]*fakeChannel)
	want := make(map[uuid.UUID]int)

	// Interleave registrations, removals and broadcasts.
	for round := 0; round < 10; round++ {
		id := NewID()
		ch := &fakeChannel{}
		chans[id] = ch
		want[id] = 0
		r.Register(id, ch)

		if round%3 == 2 {
			for victim := range want {
				r.Unregister(victim)
				delete(want, victim)
				break
			}
		}

		_, err := sendAll(r)
		require.NoError(t, err)
		for live := range want {
			want[live]++
		}
	}

	for id, n := range want {
		assert.Equal(t, n, chans[id].count(), "session %s", id)
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := NewID()
			r.Register(id, &fakeChannel{})
			r.Unregister(id)
		}()
		go func() {
			defer wg.Done()
			_, _ = sendAll(r)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
