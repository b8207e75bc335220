package bus

import (
	"context"
	"sync"

	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Subscriber is one live connection joined to a room. Deliver must be
// best-effort: a dead subscriber just misses the event, the bus never
// retries and never surfaces the failure to the publisher.
type Subscriber interface {
	ID() string
	Deliver(ev domain.RoomEvent)
}

// Backplane fans events out across processes. The in-memory registry
// below covers one process; a multi-process deployment plugs a shared
// pub/sub (redis) in here and the room logic stays unchanged.
type Backplane interface {
	Publish(ctx context.Context, ev domain.RoomEvent) error
	Subscribe(ctx context.Context, handler func(ev domain.RoomEvent)) error
}

// RoomBus is the per-room fan-out relay. It holds no durable state, only
// ephemeral subscription membership, and is fully reconstructible on
// restart: subscribers simply rejoin.
type RoomBus struct {
	origin string

	mu     sync.RWMutex
	rooms  map[string]map[string]Subscriber // roomID -> connID -> subscriber
	joined map[string]map[string]struct{}   // connID -> roomIDs

	backplane Backplane
}

// NewRoomBus creates the bus. backplane may be nil for single-process runs.
// When a backplane is set, events published by other processes are relayed
// to local subscribers; the Origin marker keeps this process's own events
// from being delivered twice.
func NewRoomBus(ctx context.Context, backplane Backplane) *RoomBus {
	b := &RoomBus{
		origin:    uuid.New().String(),
		rooms:     make(map[string]map[string]Subscriber),
		joined:    make(map[string]map[string]struct{}),
		backplane: backplane,
	}

	if backplane != nil {
		if err := backplane.Subscribe(ctx, func(ev domain.RoomEvent) {
			if ev.Origin == b.origin {
				return
			}
			b.deliverLocal(ev)
		}); err != nil {
			logger.Log.Errorf("room bus backplane subscribe failed:", err)
		}
	}

	return b
}

// Join subscribes sub to the room's push channel. A connection may be
// joined to any number of rooms concurrently; re-joining is a no-op.
func (b *RoomBus) Join(roomID string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.rooms[roomID]
	if !ok {
		subs = make(map[string]Subscriber)
		b.rooms[roomID] = subs
	}
	subs[sub.ID()] = sub

	rooms, ok := b.joined[sub.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		b.joined[sub.ID()] = rooms
	}
	rooms[roomID] = struct{}{}
}

// Leave unsubscribes the connection from one room.
func (b *RoomBus) Leave(connID, roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveLocked(connID, roomID)
}

// Disconnect unsubscribes the connection from every room it joined.
func (b *RoomBus) Disconnect(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for roomID := range b.joined[connID] {
		b.leaveLocked(connID, roomID)
	}
	delete(b.joined, connID)
}

func (b *RoomBus) leaveLocked(connID, roomID string) {
	if subs, ok := b.rooms[roomID]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(b.rooms, roomID)
		}
	}
	if rooms, ok := b.joined[connID]; ok {
		delete(rooms, roomID)
	}
}

// Publish delivers the stored message to every connection currently
// joined to the room, the sender's own other sessions included. A room
// with zero subscribers is not an error.
func (b *RoomBus) Publish(ctx context.Context, roomID string, msg *domain.Message) {
	ev := domain.RoomEvent{
		Type:    domain.EventMessage,
		RoomID:  roomID,
		Message: msg,
		Origin:  b.origin,
	}
	b.deliverLocal(ev)
	b.relay(ctx, ev)
}

// PublishTyping delivers an ephemeral typing notification, best-effort.
func (b *RoomBus) PublishTyping(ctx context.Context, roomID string, notice *domain.TypingNotice) {
	ev := domain.RoomEvent{
		Type:   domain.EventTyping,
		RoomID: roomID,
		Typing: notice,
		Origin: b.origin,
	}
	b.deliverLocal(ev)
	b.relay(ctx, ev)
}

// SubscriberCount returns how many connections are joined to the room.
func (b *RoomBus) SubscriberCount(roomID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[roomID])
}

func (b *RoomBus) deliverLocal(ev domain.RoomEvent) {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.rooms[ev.RoomID]))
	for _, sub := range b.rooms[ev.RoomID] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.Deliver(ev)
	}
}

func (b *RoomBus) relay(ctx context.Context, ev domain.RoomEvent) {
	if b.backplane == nil {
		return
	}
	if err := b.backplane.Publish(ctx, ev); err != nil {
		// durability comes from the message store, not the bus
		logger.Log.Error("room bus backplane publish failed",
			zap.String("room_id", ev.RoomID), zap.Error(err))
	}
}
