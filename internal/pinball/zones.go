package pinball

import (
	"github.com/yohamta/donburi/features/events"

	"github.com/playmatatu/pinball/internal/physics"
)

// Zone is a named trigger volume on the board.
type Zone int

const (
	ZoneOutOfBounds Zone = iota + 1
	ZonePlungerPulled
	ZoneScoreA // "Score"
	ZoneScoreB // "Score1"
	ZoneScoreC // "Score2"
)

var zoneNames = map[Zone]string{
	ZoneOutOfBounds:   "OutOfBounds",
	ZonePlungerPulled: "PlungerPulled",
	ZoneScoreA:        "Score",
	ZoneScoreB:        "Score1",
	ZoneScoreC:        "Score2",
}

var zonesByName = map[string]Zone{
	"OutOfBounds":   ZoneOutOfBounds,
	"PlungerPulled": ZonePlungerPulled,
	"plungerPulled": ZonePlungerPulled,
	"Score":         ZoneScoreA,
	"Score1":        ZoneScoreB,
	"Score2":        ZoneScoreC,
}

// Name is the actor name the zone's trigger volume carries.
func (z Zone) Name() string {
	if n, ok := zoneNames[z]; ok {
		return n
	}
	return "unknown"
}

func (z Zone) String() string { return z.Name() }

// ZoneFromName resolves a trigger actor name to its zone.
func ZoneFromName(name string) (Zone, bool) {
	z, ok := zonesByName[name]
	return z, ok
}

// EventKind says whether the ball entered or left a zone.
type EventKind uint8

const (
	Entered EventKind = iota + 1
	Left
)

func (k EventKind) String() string {
	switch k {
	case Entered:
		return "entered"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// ZoneEvent is one ball/zone transition reported by the engine.
type ZoneEvent struct {
	Zone  Zone
	Actor physics.ActorID
	Kind  EventKind
}

// ZoneEventType queues zone events on a session's world until the next tick
// drains them.
var ZoneEventType = events.NewEventType[ZoneEvent]()
