package sim

import (
	"fmt"
	"log"
	"math"

	"github.com/playmatatu/pinball/internal/physics"
)

// maxInternalStep bounds the integration step; a Step(dt) is split into
// equal sub-steps no longer than this.
const maxInternalStep = 1.0 / 240

// restingSpeed is the approach speed below which contacts do not bounce.
const restingSpeed = 0.2

// Step advances the simulation by dt seconds, then reports trigger and
// contact transitions to the event callback. Accumulated forces are cleared.
func (e *Engine) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("step: invalid dt %v", dt)
	}

	n := int(math.Ceil(dt / maxInternalStep))
	h := dt / float64(n)
	for i := 0; i < n; i++ {
		e.substep(h, i == n-1)
	}

	for _, id := range e.order {
		e.bodies[id].force = physics.Vec3{}
	}
	e.dispatch()
	return nil
}

func (e *Engine) substep(h float64, last bool) {
	for _, id := range e.order {
		b := e.bodies[id]
		b.prev = b.pose
	}

	e.driveHinges(h)
	springs := e.springForces()
	e.driveSliders(h, springs, last)

	for _, id := range e.order {
		b := e.bodies[id]
		if !b.dynamic || b.hinge != nil || b.slider != nil {
			continue
		}
		acc := e.opts.Gravity.Plus(b.force.Plus(springs[id]).Times(b.invMass))
		b.vel = b.vel.Plus(acc.Times(h)).Times(math.Max(0, 1-e.opts.LinearDamping*h))

		if b.geom.Type == physics.GeometrySphere && !b.trigger {
			e.moveSphere(b, h, last)
			continue
		}
		b.pose.P = b.pose.P.Plus(b.vel.Times(h))
		if !b.trigger {
			e.overlapTriggers(b, boundingRadius(b.geom), last)
		}
	}
}

func (e *Engine) driveHinges(h float64) {
	for _, jid := range e.jointSeq {
		hg, ok := e.hinges[jid]
		if !ok {
			continue
		}
		if hg.desc.DriveOn {
			hg.angle += hg.drive * h
		}
		if hg.desc.LimitsOn {
			hg.angle = clampAngle(hg.angle, hg.desc.LowerLimit, hg.desc.UpperLimit)
		}
		e.placeHinged(e.bodies[hg.desc.Actor], h)
	}
}

// placeHinged derives a hinged actor's pose from its parent and the joint
// angle. With h == 0 the actor is teleported without gaining velocity.
func (e *Engine) placeHinged(b *body, h float64) {
	hg := b.hinge
	parent := physics.At(physics.Vec3{})
	if hg.desc.Parent != 0 {
		if p, ok := e.bodies[hg.desc.Parent]; ok {
			parent = p.pose
		}
	}

	spin := physics.Transform{Q: physics.QuatFromAxisAngle(hg.angle, physics.Vec3{X: 1})}
	pose := parent.Compose(hg.desc.ParentFrame).Compose(spin).Compose(hg.desc.ActorFrame.Inverse())

	if h > 0 {
		b.vel = pose.P.Minus(b.pose.P).Times(1 / h)
	} else {
		b.prev = pose
		b.vel = physics.Vec3{}
	}
	b.pose = pose
}

// driveSliders integrates every prismatic joint along its axis. Only the
// axial part of gravity, applied force and spring force acts.
func (e *Engine) driveSliders(h float64, springs map[physics.ActorID]physics.Vec3, last bool) {
	for _, jid := range e.jointSeq {
		sl, ok := e.sliders[jid]
		if !ok {
			continue
		}
		b := e.bodies[sl.desc.Actor]
		axis := e.sliderFrame(sl).Q.Rotate(sl.desc.Axis)

		acc := e.opts.Gravity.Plus(b.force.Plus(springs[b.id]).Times(b.invMass)).Dot(axis)
		sl.speed = (sl.speed + acc*h) * math.Max(0, 1-e.opts.LinearDamping*h)
		sl.pos += sl.speed * h
		if sl.desc.LimitsOn {
			if sl.pos < sl.desc.LowerLimit {
				sl.pos, sl.speed = sl.desc.LowerLimit, math.Max(0, sl.speed)
			}
			if sl.pos > sl.desc.UpperLimit {
				sl.pos, sl.speed = sl.desc.UpperLimit, math.Min(0, sl.speed)
			}
		}
		e.placeSlider(b, h)
		if !b.trigger {
			e.overlapTriggers(b, boundingRadius(b.geom), last)
		}
	}
}

// sliderFrame is the world pose of a prismatic joint's frame at offset 0.
func (e *Engine) sliderFrame(sl *slider) physics.Transform {
	parent := physics.At(physics.Vec3{})
	if sl.desc.Parent != 0 {
		if p, ok := e.bodies[sl.desc.Parent]; ok {
			parent = p.pose
		}
	}
	return parent.Compose(sl.desc.ParentFrame)
}

// placeSlider derives a slider's pose from its joint frame and offset. With
// h == 0 the actor is teleported without gaining velocity.
func (e *Engine) placeSlider(b *body, h float64) {
	sl := b.slider
	pose := e.sliderFrame(sl).Compose(physics.At(sl.desc.Axis.Times(sl.pos))).Compose(sl.rel)
	if h > 0 {
		b.vel = pose.P.Minus(b.pose.P).Times(1 / h)
	} else {
		b.prev = pose
		b.vel = physics.Vec3{}
	}
	b.pose = pose
}

func (e *Engine) springForces() map[physics.ActorID]physics.Vec3 {
	out := make(map[physics.ActorID]physics.Vec3)
	for _, jid := range e.jointSeq {
		s, ok := e.springs[jid]
		if !ok {
			continue
		}
		a, b := e.bodies[s.desc.ActorA], e.bodies[s.desc.ActorB]
		pa := a.pose.Apply(s.desc.FrameA.P)
		pb := b.pose.Apply(s.desc.FrameB.P)

		d := pb.Minus(pa)
		l := d.Magnitude()
		if l == 0 {
			continue
		}
		dir := d.Times(1 / l)
		closing := b.vel.Minus(a.vel).Dot(dir)
		f := s.desc.Stiffness*(l-s.rest) + s.desc.Damping*closing

		out[a.id] = out[a.id].Plus(dir.Times(f))
		out[b.id] = out[b.id].Minus(dir.Times(f))
	}
	return out
}

// moveSphere advances a dynamic sphere by h, splitting the motion so that no
// sub-step travels more than half a radius when CCD is on.
func (e *Engine) moveSphere(b *body, h float64, last bool) {
	r := b.geom.Radius
	steps := 1
	if b.ccd && r > 0 {
		travel := b.vel.Magnitude() * h
		steps = max(1, min(int(math.Ceil(travel/(0.5*r))), e.opts.MaxSubsteps))
	}

	sh := h / float64(steps)
	for s := 0; s < steps; s++ {
		final := last && s == steps-1
		b.pose.P = b.pose.P.Plus(b.vel.Times(sh))
		e.resolveContacts(b, h, final)
		e.overlapTriggers(b, r, final)
	}
}

// resolveContacts pushes sphere b out of every solid it penetrates and
// reflects the approaching part of its velocity. h is the obstacle motion
// window used to estimate obstacle velocity.
func (e *Engine) resolveContacts(b *body, h float64, final bool) {
	r := b.geom.Radius
	for _, id := range e.order {
		o := e.bodies[id]
		if o == b || o.trigger {
			continue
		}
		if rb := boundingRadius(o.geom); rb > 0 && o.pose.P.Minus(b.pose.P).Magnitude() > rb+r {
			continue
		}
		n, depth, hit := sphereContact(o.pose, o.geom, b.pose.P, r)
		if !hit {
			continue
		}

		b.pose.P = b.pose.P.Plus(n.Times(depth))
		vo := e.pointVelocity(o, b.pose.P.Minus(n.Times(r)), h)
		rel := b.vel.Minus(vo)
		if vn := rel.Dot(n); vn < 0 {
			bounce := (b.material.Restitution + o.material.Restitution) / 2
			if -vn < restingSpeed {
				bounce = 0
			}
			tangent := rel.Minus(n.Times(vn))
			jn := -(1 + bounce) * vn
			rel = rel.Plus(n.Times(jn))

			mu := (b.material.DynamicFriction + o.material.DynamicFriction) / 2
			if t := tangent.Magnitude(); t > 0 {
				rel = rel.Minus(tangent.Times(math.Min(t, mu*jn) / t))
			}
			b.vel = rel.Plus(vo)
		}

		if _, notify := physics.DefaultFilter(b.filter, o.filter, b.trigger, o.trigger); notify {
			k := contactKey(b.id, o.id)
			if final {
				e.contacts.settle(k)
			} else {
				e.contacts.touch(k)
			}
		}
	}
}

// pointVelocity is the velocity of the world point p as carried by o.
func (e *Engine) pointVelocity(o *body, p physics.Vec3, h float64) physics.Vec3 {
	if !o.dynamic && o.hinge == nil {
		return physics.Vec3{}
	}
	before := o.prev.Apply(o.pose.ApplyInv(p))
	return p.Minus(before).Times(1 / h)
}

// overlapTriggers records every trigger volume the moving body, bounded by a
// sphere of radius r, currently overlaps.
func (e *Engine) overlapTriggers(b *body, r float64, final bool) {
	for _, id := range e.order {
		t := e.bodies[id]
		if t == b || !t.trigger {
			continue
		}
		if !sphereOverlaps(t.pose, t.geom, b.pose.P, r) {
			continue
		}
		k := pairKey{A: t.id, B: b.id}
		if final {
			e.triggers.settle(k)
		} else {
			e.triggers.touch(k)
		}
	}
}

func (e *Engine) dispatch() {
	found, lost := e.triggers.commit()
	cfound, clost := e.contacts.commit()
	if e.callback == nil {
		return
	}

	var tp []physics.TriggerPair
	for _, k := range found {
		if p, ok := e.triggerPair(k, physics.TouchFound); ok {
			tp = append(tp, p)
		}
	}
	for _, k := range lost {
		if p, ok := e.triggerPair(k, physics.TouchLost); ok {
			tp = append(tp, p)
		}
	}
	if len(tp) > 0 {
		if e.opts.Debug {
			log.Printf("[SIM] %d trigger pair(s)", len(tp))
		}
		e.callback.OnTrigger(tp)
	}

	var cp []physics.ContactPair
	for _, k := range cfound {
		if p, ok := e.contactPair(k, physics.TouchFound); ok {
			cp = append(cp, p)
		}
	}
	for _, k := range clost {
		if p, ok := e.contactPair(k, physics.TouchLost); ok {
			cp = append(cp, p)
		}
	}
	if len(cp) > 0 {
		e.callback.OnContact(cp)
	}
}

func (e *Engine) triggerPair(k pairKey, status physics.PairStatus) (physics.TriggerPair, bool) {
	t, okT := e.bodies[k.A]
	o, okO := e.bodies[k.B]
	if !okT || !okO {
		return physics.TriggerPair{}, false
	}
	return physics.TriggerPair{
		TriggerActor:  t.id,
		TriggerName:   t.name,
		OtherActor:    o.id,
		OtherName:     o.name,
		OtherGeometry: o.geom.Type,
		Status:        status,
	}, true
}

func (e *Engine) contactPair(k pairKey, status physics.PairStatus) (physics.ContactPair, bool) {
	a, okA := e.bodies[k.A]
	b, okB := e.bodies[k.B]
	if !okA || !okB {
		return physics.ContactPair{}, false
	}
	return physics.ContactPair{
		Actors:  [2]physics.ActorID{a.id, b.id},
		Names:   [2]string{a.name, b.name},
		Filters: [2]physics.FilterData{a.filter, b.filter},
		Status:  status,
	}, true
}
