// Package notification fans out player status updates to watch streams.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ytlounge/internal/app/entity"
)

// DefaultSendTimeout bounds a single stream send during a broadcast.
const DefaultSendTimeout = 500 * time.Millisecond

// Update is a status update delivered to a watcher.
type Update struct {
	SequenceNo uint64
	Player     entity.Status
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Update) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id       string
	playerID string // empty for all players
	stream   Stream
}

func (s *subscription) wants(playerID string) bool {
	return s.playerID == "" || s.playerID == playerID
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   DefaultSendTimeout,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
// playerID limits the subscription to one player; empty means all players.
func (m *Manager) Subscribe(stream Stream, playerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:       id,
		playerID: playerID,
		stream:   stream,
	}
	zlog.Debug().Msgf("notification: subscribed: id=%s player=%s", id, playerID)
	return id
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast sends status to every subscriber watching its player.
// Each stream send is done in a goroutine with a timeout to prevent blocking.
func (m *Manager) Broadcast(status entity.Status) {
	update := &Update{
		SequenceNo: m.NextSequenceNo(),
		Player:     status,
	}

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if sub.wants(status.UniqueID) {
			subs = append(subs, sub)
		}
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(update)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Err(err).Msgf("notification: send failed: id=%s", s.id)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send timed out: id=%s", s.id)
			}
		}(sub)
	}

	wg.Wait()
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
