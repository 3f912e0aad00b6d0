package pinball

import (
	"log"
	"time"
)

// EventType names a game event sent to notifiers.
type EventType string

const (
	EventScoreAward    EventType = "score_award"
	EventLifeLost      EventType = "life_lost"
	EventSessionReset  EventType = "session_reset"
	EventRespawnFailed EventType = "respawn_failed"
	EventSessionFailed EventType = "session_failed"
)

// GameEvent is a notable change in a session, published after the tick that
// caused it.
type GameEvent struct {
	Type      EventType `json:"type"`
	Tick      uint64    `json:"tick"`
	Score     int       `json:"score"`
	Lives     int       `json:"lives"`
	Zone      string    `json:"zone,omitempty"`
	Points    int       `json:"points,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier receives game events. Implementations are called outside the
// session lock but on the stepping goroutine, so they should not block long.
type Notifier interface {
	Notify(ev GameEvent)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(GameEvent)

func (f NotifierFunc) Notify(ev GameEvent) { f(ev) }

// LogNotifier writes events to the standard logger. Plunger lane awards are
// only logged when Verbose is set.
type LogNotifier struct {
	Verbose bool
}

func (n LogNotifier) Notify(ev GameEvent) {
	switch ev.Type {
	case EventScoreAward:
		if ev.Zone == ZonePlungerPulled.Name() && !n.Verbose {
			return
		}
		log.Printf("[PINBALL] +%d from %s (score=%d tick=%d)", ev.Points, ev.Zone, ev.Score, ev.Tick)
	case EventLifeLost:
		log.Printf("[PINBALL] Life lost (lives=%d score=%d tick=%d)", ev.Lives, ev.Score, ev.Tick)
	case EventSessionReset:
		log.Printf("[PINBALL] Session reset (lives=%d score=%d tick=%d)", ev.Lives, ev.Score, ev.Tick)
	case EventRespawnFailed, EventSessionFailed:
		log.Printf("[PINBALL] %s at tick %d: %s", ev.Type, ev.Tick, ev.Message)
	}
}

// MultiNotifier fans an event out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ev GameEvent) {
	for _, n := range m {
		if n != nil {
			n.Notify(ev)
		}
	}
}

// eventsFor turns a tick result into the events it implies. A plunger lane
// run produces one score_award on its first tick; the points it keeps
// accruing reach clients through snapshots.
func eventsFor(res TickResult, tick uint64, state *GameState, now time.Time) []GameEvent {
	var out []GameEvent
	base := GameEvent{Tick: tick, Score: state.Score, Lives: state.Lives, Timestamp: now}

	if res.LifeLost {
		ev := base
		ev.Type = EventLifeLost
		out = append(out, ev)
	}
	if res.SessionReset {
		ev := base
		ev.Type = EventSessionReset
		out = append(out, ev)
	}
	for _, a := range res.Awards {
		if a.Repeat {
			continue
		}
		ev := base
		ev.Type = EventScoreAward
		ev.Zone = a.Zone.Name()
		ev.Points = a.Points
		out = append(out, ev)
	}
	return out
}
