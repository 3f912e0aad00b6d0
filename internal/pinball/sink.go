package pinball

import (
	"log"

	"github.com/yohamta/donburi"

	"github.com/playmatatu/pinball/internal/physics"
)

// BallName is the identity string every ball instance carries.
const BallName = "Pinball"

// TriggerSink turns engine trigger pairs into zone events. It is the
// session's physics.EventCallback and runs inside engine.Step.
type TriggerSink struct {
	world donburi.World
	ball  *BallHandle
	debug bool
}

var _ physics.EventCallback = (*TriggerSink)(nil)

func NewTriggerSink(world donburi.World, ball *BallHandle, debug bool) *TriggerSink {
	return &TriggerSink{world: world, ball: ball, debug: debug}
}

// OnTrigger filters the pairs down to the current ball touching a known
// zone. Everything else is dropped.
func (s *TriggerSink) OnTrigger(pairs []physics.TriggerPair) {
	for _, p := range pairs {
		if p.OtherGeometry == physics.GeometryPlane {
			continue
		}
		zone, ok := ZoneFromName(p.TriggerName)
		if !ok {
			if s.debug {
				log.Printf("[PINBALL] dropped trigger %q: unknown zone", p.TriggerName)
			}
			continue
		}
		if p.OtherName != BallName || !s.ball.Is(p.OtherActor) {
			if s.debug {
				log.Printf("[PINBALL] dropped trigger %s: other actor %d (%q) is not the ball", zone, p.OtherActor, p.OtherName)
			}
			continue
		}

		switch p.Status {
		case physics.TouchFound:
			s.OnTriggerEvent(zone, p.OtherActor, Entered)
		case physics.TouchLost:
			s.OnTriggerEvent(zone, p.OtherActor, Left)
		}
	}
}

// OnTriggerEvent queues a single zone transition for the next tick.
func (s *TriggerSink) OnTriggerEvent(zone Zone, actor physics.ActorID, kind EventKind) {
	ZoneEventType.Publish(s.world, ZoneEvent{Zone: zone, Actor: actor, Kind: kind})
}

// OnContact only logs; contacts never change game state.
func (s *TriggerSink) OnContact(pairs []physics.ContactPair) {
	if !s.debug {
		return
	}
	for _, p := range pairs {
		log.Printf("[PINBALL] contact %s between %q and %q", p.Status, p.Names[0], p.Names[1])
	}
}
