package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pinball/internal/pinball"
)

// StartEventRelay subscribes to the game-event channel and relays each
// event to the hub's clients until ctx is done.
func StartEventRelay(ctx context.Context, rdb *redis.Client, channel string, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event relay not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, channel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", channel)
		for {
			select {
			case <-ctx.Done():
				log.Printf("[WS] %s subscriber stopping", channel)
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := decodeEvent(msg.Payload)
				if err != nil {
					log.Printf("[WS] invalid event payload: %v", err)
					continue
				}
				hub.Notify(ev)
			}
		}
	}()
}

func decodeEvent(payload string) (pinball.GameEvent, error) {
	var ev pinball.GameEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if ev.Type == "" {
		return ev, fmt.Errorf("event without type")
	}
	return ev, nil
}
