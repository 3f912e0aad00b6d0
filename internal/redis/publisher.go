package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pinball/internal/pinball"
)

const (
	publishTimeout = 2 * time.Second

	// DefaultQueueSize is how many events may wait for the publish worker.
	DefaultQueueSize = 256
)

// EventPublisher publishes game events as JSON on a pub/sub channel. It
// implements pinball.Notifier. Notify only queues the event; a worker
// started with Start does the network round trip, so a slow or unreachable
// redis never holds up the session's step loop.
type EventPublisher struct {
	client  *redis.Client
	channel string
	queue   chan pinball.GameEvent
	dropped atomic.Uint64
}

func NewEventPublisher(client *redis.Client, channel string, queueSize int) *EventPublisher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &EventPublisher{
		client:  client,
		channel: channel,
		queue:   make(chan pinball.GameEvent, queueSize),
	}
}

// Channel returns the pub/sub channel events go to.
func (p *EventPublisher) Channel() string {
	return p.channel
}

// Dropped reports how many events were discarded because the queue was full.
func (p *EventPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Notify queues ev for publishing. It never blocks; when the queue is full
// the event is dropped and counted.
func (p *EventPublisher) Notify(ev pinball.GameEvent) {
	select {
	case p.queue <- ev:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Printf("[REDIS] Event queue full; dropped %d event(s) so far (latest %s)", n, ev.Type)
		}
	}
}

// Start runs the publish worker until ctx is done.
func (p *EventPublisher) Start(ctx context.Context) {
	log.Printf("[REDIS] Event publisher started on %s", p.channel)
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Println("[REDIS] Event publisher stopping")
				return
			case ev := <-p.queue:
				p.publish(ctx, ev)
			}
		}
	}()
}

func (p *EventPublisher) publish(ctx context.Context, ev pinball.GameEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[REDIS] Failed to marshal %s event: %v", ev.Type, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		log.Printf("[REDIS] Failed to publish %s event to %s: %v", ev.Type, p.channel, err)
	}
}
