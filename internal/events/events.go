package events

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"eyeshield/config"
	"eyeshield/internal/database"
	"eyeshield/internal/logger"

	"github.com/google/uuid"
)

const (
	ChannelRecords = "records"

	TypeRecordAdded = "record.added"

	cachePrefix    = "eyeshield:"
	publishTimeout = 5 * time.Second
)

type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// EventBus delivers events to in-process subscribers synchronously, in
// subscription order, and mirrors them onto the cache's pub/sub when one is
// configured.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscription
	nextID      uint64
	cache       database.CacheClient
	log         logger.Logger
}

func New(cache database.CacheClient, config config.Config) *EventBus {
	log := logger.New("events")
	if cache != nil {
		log.Function("New").Info("Mirroring events to cache", "environment", config.GeneralEnvironment)
	}

	return &EventBus{
		subscribers: make(map[string][]subscription),
		cache:       cache,
		log:         log,
	}
}

// Subscribe registers handler on channel. The returned func removes it and
// is safe to call more than once.
func (b *EventBus) Subscribe(channel string, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[channel] = append(b.subscribers[channel], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[channel]
		for i, sub := range subs {
			if sub.id == id {
				b.subscribers[channel] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (b *EventBus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channel])
}

// Publish fills in ID, channel and timestamp when missing, runs every local
// handler, then mirrors to the cache. Local delivery happens even when the
// mirror fails; the mirror error is returned.
func (b *EventBus) Publish(channel string, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Channel = channel

	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers[channel]))
	copy(subs, b.subscribers[channel])
	b.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	for _, sub := range subs {
		sub.handler(event)
	}

	if b.cache == nil {
		return nil
	}

	return b.mirror(channel, event)
}

func (b *EventBus) mirror(channel string, event Event) error {
	log := b.log.Function("mirror")

	payload, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "eventID", event.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	cmd := b.cache.B().Publish().Channel(cachePrefix + channel).Message(string(payload)).Build()
	if err := b.cache.Do(ctx, cmd).Error(); err != nil {
		return log.Err("failed to publish event to cache", err, "channel", channel, "eventID", event.ID)
	}

	return nil
}

func (b *EventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string][]subscription)
	return nil
}
