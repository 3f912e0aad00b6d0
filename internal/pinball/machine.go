package pinball

import (
	"fmt"

	"github.com/yohamta/donburi"
)

// PlungerPolicy decides how long the plunger-lane flag keeps scoring.
type PlungerPolicy string

const (
	// PlungerContinuous scores every tick until the ball goes out of bounds.
	PlungerContinuous PlungerPolicy = "continuous"
	// PlungerDwell scores every tick until the ball leaves the zone.
	PlungerDwell PlungerPolicy = "dwell"
	// PlungerOneShot scores once per entry.
	PlungerOneShot PlungerPolicy = "oneshot"
)

// ParsePlungerPolicy validates a policy name.
func ParsePlungerPolicy(s string) (PlungerPolicy, error) {
	switch p := PlungerPolicy(s); p {
	case PlungerContinuous, PlungerDwell, PlungerOneShot:
		return p, nil
	default:
		return "", fmt.Errorf("unknown plunger policy %q (want continuous, dwell or oneshot)", s)
	}
}

// Points are the awards per zone.
type Points struct {
	ScoreA  int `json:"score_a" yaml:"scoreA"`
	ScoreB  int `json:"score_b" yaml:"scoreB"`
	ScoreC  int `json:"score_c" yaml:"scoreC"`
	Plunger int `json:"plunger" yaml:"plunger"` // per tick while the lane flag is up
}

// DefaultPoints are the board's stock award values.
var DefaultPoints = Points{ScoreA: 1000, ScoreB: 250, ScoreC: 100, Plunger: 1}

// Award is one score increment made during a tick. Repeat marks a plunger
// lane award that continues a run already reported on an earlier tick.
type Award struct {
	Zone   Zone `json:"zone"`
	Points int  `json:"points"`
	Repeat bool `json:"repeat,omitempty"`
}

// TickResult summarises what a tick changed.
type TickResult struct {
	Awards       []Award
	LifeLost     bool
	SessionReset bool
}

// BallRespawner replaces the ball and charges a life for it.
type BallRespawner interface {
	Respawn() error
}

// Machine is the per-tick scoring and lives reducer.
type Machine struct {
	world     donburi.World
	state     *GameState
	respawner BallRespawner
	policy    PlungerPolicy
	points    Points

	plungerLeft bool
	plungerRun  bool // the lane flag survived the previous tick
}

// NewMachine subscribes the machine to the world's zone events.
func NewMachine(world donburi.World, state *GameState, respawner BallRespawner, policy PlungerPolicy, points Points) *Machine {
	m := &Machine{
		world:     world,
		state:     state,
		respawner: respawner,
		policy:    policy,
		points:    points,
	}
	ZoneEventType.Subscribe(world, m.onZoneEvent)
	return m
}

func (m *Machine) onZoneEvent(_ donburi.World, ev ZoneEvent) {
	p := &m.state.Pending
	if ev.Kind == Left {
		if ev.Zone == ZonePlungerPulled && m.policy == PlungerDwell {
			m.plungerLeft = true
		}
		return
	}

	switch ev.Zone {
	case ZoneOutOfBounds:
		p.OutOfBounds = true
	case ZonePlungerPulled:
		// A re-entry after a leave in the same batch keeps the ball in the lane.
		p.PlungerPulled = true
		m.plungerLeft = false
	case ZoneScoreA:
		p.ScoreA = true
	case ZoneScoreB:
		p.ScoreB = true
	case ZoneScoreC:
		p.ScoreC = true
	}
}

// Tick drains queued zone events into the pending flags, then applies them
// in fixed order: out-of-bounds, plunger, A, B, C. Every flag is processed
// even when the respawn fails; the respawn error is returned at the end.
func (m *Machine) Tick() (TickResult, error) {
	ZoneEventType.ProcessEvents(m.world)

	var res TickResult
	var respawnErr error
	p := &m.state.Pending

	if p.OutOfBounds {
		p.OutOfBounds = false
		p.PlungerPulled = false
		m.plungerLeft = false

		resets := m.state.Resets
		if err := m.respawner.Respawn(); err != nil {
			respawnErr = err
		} else {
			res.LifeLost = true
			res.SessionReset = m.state.Resets != resets
		}
	}

	if p.PlungerPulled {
		m.award(&res, Award{Zone: ZonePlungerPulled, Points: m.points.Plunger, Repeat: m.plungerRun})
		switch m.policy {
		case PlungerOneShot:
			p.PlungerPulled = false
		case PlungerDwell:
			if m.plungerLeft {
				p.PlungerPulled = false
			}
		}
	}
	m.plungerLeft = false
	m.plungerRun = p.PlungerPulled

	if p.ScoreA {
		m.award(&res, Award{Zone: ZoneScoreA, Points: m.points.ScoreA})
		p.ScoreA = false
	}
	if p.ScoreB {
		m.award(&res, Award{Zone: ZoneScoreB, Points: m.points.ScoreB})
		p.ScoreB = false
	}
	if p.ScoreC {
		m.award(&res, Award{Zone: ZoneScoreC, Points: m.points.ScoreC})
		p.ScoreC = false
	}

	return res, respawnErr
}

func (m *Machine) award(res *TickResult, a Award) {
	m.state.AddPoints(a.Points)
	res.Awards = append(res.Awards, a)
}

// Policy returns the plunger policy in force.
func (m *Machine) Policy() PlungerPolicy {
	return m.policy
}
