package chathub

import (
	"strconv"
	"strings"
	"sync"

	"linku/backend/internal/models"
	"linku/backend/internal/platform/logger"
)

// Event is a message published on a room topic.
type Event struct {
	Topic   string             `json:"topic"`
	Message models.MessageView `json:"message"`
}

// Publisher delivers events to whoever is subscribed to a topic. Publish
// never blocks on slow subscribers and never fails the caller.
type Publisher interface {
	Publish(topic string, ev Event)
}

// RoomTopic is the topic carrying events of room id.
func RoomTopic(id uint) string {
	return "room." + strconv.FormatUint(uint64(id), 10)
}

// ParseRoomTopic is the inverse of RoomTopic.
func ParseRoomTopic(topic string) (uint, bool) {
	raw, ok := strings.CutPrefix(topic, "room.")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Handle identifies one subscription. The zero Handle is inert, and a handle
// stops working once its subscription ends, even if sub subscribes again.
type Handle struct {
	topic string
	sub   *Subscriber
	gen   uint64
}

func (h Handle) Topic() string { return h.topic }

// Bus is the per-process topic registry.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscriber]struct{}
	gen    uint64
	log    *logger.Logger
}

func NewBus(log *logger.Logger) *Bus {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bus{
		topics: make(map[string]map[*Subscriber]struct{}),
		log:    log.With("component", "livebus"),
	}
}

// Subscribe registers sub on topic. Subscribing a closed subscriber returns
// the zero Handle.
func (b *Bus) Subscribe(topic string, sub *Subscriber) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.Closed() {
		return Handle{}
	}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	b.gen++
	sub.topics[topic] = b.gen
	return Handle{topic: topic, sub: sub, gen: b.gen}
}

func (b *Bus) Unsubscribe(h Handle) {
	if h.sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen, ok := h.sub.topics[h.topic]; !ok || gen != h.gen {
		return
	}
	b.detach(h.topic, h.sub)
}

// Remove drops every subscription of sub and closes it.
func (b *Bus) Remove(sub *Subscriber) {
	b.mu.Lock()
	for topic := range sub.topics {
		b.detach(topic, sub)
	}
	b.mu.Unlock()
	sub.Close()
}

func (b *Bus) detach(topic string, sub *Subscriber) {
	delete(sub.topics, topic)
	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// Publish hands ev to every current subscriber of topic in call order.
func (b *Bus) Publish(topic string, ev Event) {
	ev.Topic = topic
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.topics[topic] {
		if sub.Offer(ev) {
			b.log.Warn("subscriber queue full, dropped oldest event",
				"topic", topic, "subscriber", sub.ID, "dropped_total", sub.Dropped())
		}
	}
}

// Subscribers reports how many subscribers topic has.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
