package ws

import (
	"context"

	"github.com/google/uuid"
	"github.com/live-server/backend/internal/session"
	"github.com/live-server/backend/internal/watcher"
	"go.uber.org/zap"
)

// Broadcaster turns settled file changes into reload messages for every
// registered session.
type Broadcaster struct {
	registry *session.Registry
	logger   *zap.Logger
}

func NewBroadcaster(registry *session.Registry, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger,
	}
}

// Run performs one broadcast pass per event until ctx is done.
func (b *Broadcaster) Run(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			b.Reload(ev)
		}
	}
}

// Reload logs ev and sends a reload message to every session. A failed send
// is logged and skipped; the session's own read loop unregisters it. It
// returns the number of sessions the message was queued for.
func (b *Broadcaster) Reload(ev watcher.Event) int {
	b.logger.Info(ev.String())

	sent, _ := b.registry.ForEach(func(id uuid.UUID, ch session.Channel) error {
		if err := ch.Send(reloadMessage); err != nil {
			b.logger.Warn("Failed to send reload", zap.Stringer("session", id), zap.Error(err))
			return err
		}
		return nil
	})

	b.logger.Debug("Reload broadcast", zap.Int("sessions", sent))
	return sent
}
