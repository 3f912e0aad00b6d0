package pinball

import (
	"fmt"

	"github.com/playmatatu/pinball/internal/physics"
)

// LaunchForce is the plunger force for a given magnitude: up the lane, with
// a lift component half as strong as the push.
func LaunchForce(magnitude float64) physics.Vec3 {
	return physics.Vec3{Y: magnitude * 200 / 2, Z: -magnitude * 200}
}

// Plunger drives the spring plate. The commanded force is either zero or the
// launch force; Sustain re-applies it before each engine step.
type Plunger struct {
	engine    physics.Engine
	plate     physics.ActorID
	launch    physics.Vec3
	commanded physics.Vec3
}

func NewPlunger(engine physics.Engine, plate physics.ActorID, magnitude float64) *Plunger {
	return &Plunger{engine: engine, plate: plate, launch: LaunchForce(magnitude)}
}

// Engage commands the launch force. Engaging again changes nothing.
func (p *Plunger) Engage() {
	p.commanded = p.launch
}

// Disengage drops the commanded force to zero.
func (p *Plunger) Disengage() {
	p.commanded = physics.Vec3{}
}

func (p *Plunger) Engaged() bool {
	return !p.commanded.IsZero()
}

// Commanded returns the force applied on every step while engaged.
func (p *Plunger) Commanded() physics.Vec3 {
	return p.commanded
}

// Sustain feeds the commanded force to the engine for the coming step.
func (p *Plunger) Sustain() error {
	if p.commanded.IsZero() {
		return nil
	}
	return p.engine.AddForce(p.plate, p.commanded)
}

// Side selects a flipper.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Flippers commands the two flipper joints. A flipper's drive is always
// either the strike or the rest velocity; the joint limits bound the angle.
type Flippers struct {
	engine    physics.Engine
	joints    [2]physics.JointID
	strike    float64
	rest      float64
	commanded [2]float64
}

func NewFlippers(engine physics.Engine, left, right physics.JointID, strike, rest float64) *Flippers {
	return &Flippers{
		engine: engine,
		joints: [2]physics.JointID{left, right},
		strike: strike,
		rest:   rest,
	}
}

// Activate swings the flipper toward its strike position.
func (f *Flippers) Activate(side Side) error {
	return f.drive(side, f.strike)
}

// Release returns the flipper toward rest.
func (f *Flippers) Release(side Side) error {
	return f.drive(side, f.rest)
}

// Velocity is the last commanded drive velocity for side.
func (f *Flippers) Velocity(side Side) float64 {
	if side != SideLeft && side != SideRight {
		return 0
	}
	return f.commanded[side]
}

func (f *Flippers) drive(side Side, velocity float64) error {
	if side != SideLeft && side != SideRight {
		return fmt.Errorf("flipper %s: %w", side, ErrInvalidInput)
	}
	if err := f.engine.SetDriveVelocity(f.joints[side], velocity); err != nil {
		return fmt.Errorf("flipper %s: %w", side, err)
	}
	f.commanded[side] = velocity
	return nil
}
