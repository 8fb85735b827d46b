package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrClosed is returned by a Channel that has already been shut down.
	ErrClosed = errors.New("session: channel closed")
	// ErrBackpressure is returned when a Channel cannot accept another message
	// without blocking.
	ErrBackpressure = errors.New("session: channel send queue full")
)

// Channel is the server side of one browser notification channel.
// Send must not block.
type Channel interface {
	Send(msg []byte) error
}

// NewID returns a random session identifier.
func NewID() uuid.UUID {
	return uuid.New()
}

// Registry is the set of open notification channels. Register, Unregister
// and ForEach all take the same lock, so iteration never observes a
// concurrent mutation.
type Registry struct {
	mu       sync.Mutex
	channels map[uuid.UUID]Channel
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[uuid.UUID]Channel),
	}
}

func (r *Registry) Register(id uuid.UUID, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[id] = ch
}

// Unregister removes id. Removing an unknown id is a no-op.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, id)
}

// SendError records a failed delivery to one session.
type SendError struct {
	ID  uuid.UUID
	Err error
}

func (e *SendError) Error() string {
	return "session " + e.ID.String() + ": " + e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// ForEach calls fn for every registered channel. A failing channel is
// skipped and iteration continues; the failures are returned joined, each
// as a *SendError. The number of channels fn succeeded on is returned too.
func (r *Registry) ForEach(fn func(id uuid.UUID, ch Channel) error) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok := 0
	var errs []error
	for id, ch := range r.channels {
		if err := fn(id, ch); err != nil {
			errs = append(errs, &SendError{ID: id, Err: err})
			continue
		}
		ok++
	}
	return ok, errors.Join(errs...)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}
