// Package sim is a small deterministic implementation of physics.Engine.
//
// It simulates what the pinball board needs and nothing more: dynamic
// spheres under gravity and applied forces, damped distance springs, driven
// hinge joints clamped to their limits, sliders that hold a body to one axis,
// sphere-versus-solid contacts with
// restitution, and trigger-volume enter/lost tracking. Iteration order is the
// actor creation order, so identical inputs give identical results.
package sim

import (
	"fmt"
	"log"
	"math"

	"github.com/playmatatu/pinball/internal/physics"
)

// Options tunes the simulation.
type Options struct {
	Gravity       physics.Vec3
	LinearDamping float64 // fraction of velocity removed per second
	MaxSubsteps   int     // CCD sub-step cap per step
	Debug         bool
}

// DefaultOptions returns earth gravity along -Y.
func DefaultOptions() Options {
	return Options{
		Gravity:       physics.Vec3{Y: -9.81},
		LinearDamping: 0.05,
		MaxSubsteps:   16,
	}
}

type body struct {
	id       physics.ActorID
	name     string
	pose     physics.Transform
	prev     physics.Transform // pose at the start of the current sub-step
	vel      physics.Vec3
	dynamic  bool
	trigger  bool
	geom     physics.Geometry
	material physics.Material
	filter   physics.FilterData
	ccd      bool
	invMass  float64
	force    physics.Vec3
	hinge    *hinge  // non-nil when a revolute joint owns the pose
	slider   *slider // non-nil when a prismatic joint owns the pose
}

type hinge struct {
	id    physics.JointID
	desc  physics.RevoluteJointDesc
	angle float64
	drive float64
}

type slider struct {
	id    physics.JointID
	desc  physics.PrismaticJointDesc
	rel   physics.Transform // actor pose in the joint frame at offset 0
	pos   float64
	speed float64
}

type spring struct {
	id   physics.JointID
	desc physics.DistanceJointDesc
	rest float64
}

// Engine is the in-process simulation.
type Engine struct {
	opts Options

	bodies    map[physics.ActorID]*body
	order     []physics.ActorID
	nextActor physics.ActorID

	hinges    map[physics.JointID]*hinge
	springs   map[physics.JointID]*spring
	sliders   map[physics.JointID]*slider
	jointSeq  []physics.JointID
	nextJoint physics.JointID

	callback physics.EventCallback
	triggers *pairTracker
	contacts *pairTracker
}

var _ physics.Engine = (*Engine)(nil)

// New creates an empty simulation.
func New(opts Options) *Engine {
	if opts.MaxSubsteps <= 0 {
		opts.MaxSubsteps = 1
	}
	return &Engine{
		opts:     opts,
		bodies:   make(map[physics.ActorID]*body),
		hinges:   make(map[physics.JointID]*hinge),
		springs:  make(map[physics.JointID]*spring),
		sliders:  make(map[physics.JointID]*slider),
		triggers: newPairTracker(),
		contacts: newPairTracker(),
	}
}

func (e *Engine) CreateActor(desc physics.ActorDesc) (physics.ActorID, error) {
	if desc.Pose.Q == (physics.Quat{}) {
		desc.Pose.Q = physics.QuatIdentity
	}
	if desc.Dynamic && desc.Geometry.Type == physics.GeometryPlane {
		return 0, fmt.Errorf("actor %q: planes cannot be dynamic", desc.Name)
	}

	e.nextActor++
	b := &body{
		id:       e.nextActor,
		name:     desc.Name,
		pose:     desc.Pose,
		prev:     desc.Pose,
		dynamic:  desc.Dynamic,
		trigger:  desc.Trigger,
		geom:     desc.Geometry,
		material: desc.Material,
		filter:   desc.Filter,
		ccd:      desc.CCD,
	}
	if desc.Dynamic {
		density := desc.Density
		if density <= 0 {
			density = 1
		}
		if m := density * volume(desc.Geometry); m > 0 {
			b.invMass = 1 / m
		}
	}

	e.bodies[b.id] = b
	e.order = append(e.order, b.id)
	if e.opts.Debug {
		log.Printf("[SIM] created actor %d name=%q geom=%s dynamic=%v", b.id, b.name, b.geom.Type, b.dynamic)
	}
	return b.id, nil
}

func (e *Engine) RemoveActor(id physics.ActorID) error {
	if _, ok := e.bodies[id]; !ok {
		return fmt.Errorf("remove actor %d: %w", id, physics.ErrUnknownActor)
	}
	delete(e.bodies, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}

	// Joints die with either end.
	kept := e.jointSeq[:0]
	for _, jid := range e.jointSeq {
		if h, ok := e.hinges[jid]; ok && (h.desc.Actor == id || h.desc.Parent == id) {
			if b, ok := e.bodies[h.desc.Actor]; ok {
				b.hinge = nil
			}
			delete(e.hinges, jid)
			continue
		}
		if sl, ok := e.sliders[jid]; ok && (sl.desc.Actor == id || sl.desc.Parent == id) {
			if b, ok := e.bodies[sl.desc.Actor]; ok {
				b.slider = nil
			}
			delete(e.sliders, jid)
			continue
		}
		if s, ok := e.springs[jid]; ok && (s.desc.ActorA == id || s.desc.ActorB == id) {
			delete(e.springs, jid)
			continue
		}
		kept = append(kept, jid)
	}
	e.jointSeq = kept

	e.triggers.forget(id)
	e.contacts.forget(id)
	return nil
}

func (e *Engine) Actor(id physics.ActorID) (physics.ActorInfo, bool) {
	b, ok := e.bodies[id]
	if !ok {
		return physics.ActorInfo{}, false
	}
	return physics.ActorInfo{
		ID:       b.id,
		Name:     b.name,
		Pose:     b.pose,
		Velocity: b.vel,
		Dynamic:  b.dynamic,
		Trigger:  b.trigger,
		Geometry: b.geom.Type,
		Filter:   b.filter,
		CCD:      b.ccd,
	}, true
}

func (e *Engine) ActorsNamed(name string) []physics.ActorID {
	var ids []physics.ActorID
	for _, id := range e.order {
		if e.bodies[id].name == name {
			ids = append(ids, id)
		}
	}
	return ids
}

func (e *Engine) SetTrigger(id physics.ActorID, trigger bool) error {
	b, ok := e.bodies[id]
	if !ok {
		return fmt.Errorf("set trigger on %d: %w", id, physics.ErrUnknownActor)
	}
	b.trigger = trigger
	return nil
}

func (e *Engine) SetFilter(id physics.ActorID, filter physics.FilterData) error {
	b, ok := e.bodies[id]
	if !ok {
		return fmt.Errorf("set filter on %d: %w", id, physics.ErrUnknownActor)
	}
	b.filter = filter
	return nil
}

func (e *Engine) AddForce(id physics.ActorID, force physics.Vec3) error {
	b, ok := e.bodies[id]
	if !ok {
		return fmt.Errorf("add force on %d: %w", id, physics.ErrUnknownActor)
	}
	if !b.dynamic {
		return fmt.Errorf("add force on %d: %w", id, physics.ErrNotDynamic)
	}
	b.force = b.force.Plus(force)
	return nil
}

func (e *Engine) CreateRevoluteJoint(desc physics.RevoluteJointDesc) (physics.JointID, error) {
	b, ok := e.bodies[desc.Actor]
	if !ok {
		return 0, fmt.Errorf("revolute joint: %w", physics.ErrUnknownActor)
	}
	if desc.Parent != 0 {
		if _, ok := e.bodies[desc.Parent]; !ok {
			return 0, fmt.Errorf("revolute joint parent: %w", physics.ErrUnknownActor)
		}
	}
	if desc.ParentFrame.Q == (physics.Quat{}) {
		desc.ParentFrame.Q = physics.QuatIdentity
	}
	if desc.ActorFrame.Q == (physics.Quat{}) {
		desc.ActorFrame.Q = physics.QuatIdentity
	}

	e.nextJoint++
	h := &hinge{id: e.nextJoint, desc: desc}
	if desc.LimitsOn {
		h.angle = clampAngle(0, desc.LowerLimit, desc.UpperLimit)
	}
	b.hinge = h
	e.hinges[h.id] = h
	e.jointSeq = append(e.jointSeq, h.id)
	e.placeHinged(b, 0)
	return h.id, nil
}

func (e *Engine) SetDriveVelocity(id physics.JointID, velocity float64) error {
	h, ok := e.hinges[id]
	if !ok {
		return fmt.Errorf("drive velocity on %d: %w", id, physics.ErrUnknownJoint)
	}
	h.desc.DriveOn = true
	h.drive = velocity
	return nil
}

func (e *Engine) JointState(id physics.JointID) (physics.JointState, error) {
	if sl, ok := e.sliders[id]; ok {
		return physics.JointState{Position: sl.pos}, nil
	}
	h, ok := e.hinges[id]
	if !ok {
		return physics.JointState{}, fmt.Errorf("joint state of %d: %w", id, physics.ErrUnknownJoint)
	}
	return physics.JointState{DriveVelocity: h.drive, Angle: h.angle}, nil
}

func (e *Engine) CreateDistanceJoint(desc physics.DistanceJointDesc) (physics.JointID, error) {
	a, okA := e.bodies[desc.ActorA]
	b, okB := e.bodies[desc.ActorB]
	if !okA || !okB {
		return 0, fmt.Errorf("distance joint: %w", physics.ErrUnknownActor)
	}
	e.nextJoint++
	s := &spring{
		id:   e.nextJoint,
		desc: desc,
		rest: a.pose.Apply(desc.FrameA.P).Minus(b.pose.Apply(desc.FrameB.P)).Magnitude(),
	}
	e.springs[s.id] = s
	e.jointSeq = append(e.jointSeq, s.id)
	return s.id, nil
}

// CreatePrismaticJoint holds a dynamic actor to a line through its current
// pose. Forces, gravity and springs move it along the axis only; at a limit
// the motion into the limit stops.
func (e *Engine) CreatePrismaticJoint(desc physics.PrismaticJointDesc) (physics.JointID, error) {
	b, ok := e.bodies[desc.Actor]
	if !ok {
		return 0, fmt.Errorf("prismatic joint: %w", physics.ErrUnknownActor)
	}
	if !b.dynamic {
		return 0, fmt.Errorf("prismatic joint %q: %w", b.name, physics.ErrNotDynamic)
	}
	if b.hinge != nil || b.slider != nil {
		return 0, fmt.Errorf("prismatic joint %q: actor already jointed", b.name)
	}
	if desc.Parent != 0 {
		if _, ok := e.bodies[desc.Parent]; !ok {
			return 0, fmt.Errorf("prismatic joint parent: %w", physics.ErrUnknownActor)
		}
	}
	if desc.Axis.IsZero() {
		return 0, fmt.Errorf("prismatic joint %q: zero axis", b.name)
	}
	if desc.LimitsOn && desc.LowerLimit > desc.UpperLimit {
		return 0, fmt.Errorf("prismatic joint %q: lower limit %v above upper %v", b.name, desc.LowerLimit, desc.UpperLimit)
	}
	if desc.ParentFrame.Q == (physics.Quat{}) {
		desc.ParentFrame.Q = physics.QuatIdentity
	}
	desc.Axis = desc.Axis.Normalize()

	e.nextJoint++
	sl := &slider{id: e.nextJoint, desc: desc}
	sl.rel = e.sliderFrame(sl).Inverse().Compose(b.pose)
	if desc.LimitsOn {
		sl.pos = clampAngle(0, desc.LowerLimit, desc.UpperLimit)
	}
	b.slider = sl
	b.vel = physics.Vec3{}
	e.sliders[sl.id] = sl
	e.jointSeq = append(e.jointSeq, sl.id)
	e.placeSlider(b, 0)
	return sl.id, nil
}

func (e *Engine) SetEventCallback(cb physics.EventCallback) {
	e.callback = cb
}

func clampAngle(a, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, a))
}
