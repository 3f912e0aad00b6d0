package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/playmatatu/pinball/internal/physics"
)

const testDT = 1.0 / 60

type recorder struct {
	triggers []physics.TriggerPair
	contacts []physics.ContactPair
}

func (r *recorder) OnTrigger(pairs []physics.TriggerPair) { r.triggers = append(r.triggers, pairs...) }
func (r *recorder) OnContact(pairs []physics.ContactPair) { r.contacts = append(r.contacts, pairs...) }

func sphereDesc(name string, at physics.Vec3, r float64) physics.ActorDesc {
	return physics.ActorDesc{
		Name:     name,
		Pose:     physics.At(at),
		Dynamic:  true,
		Geometry: physics.Geometry{Type: physics.GeometrySphere, Radius: r},
		Density:  1,
		CCD:      true,
	}
}

func boxDesc(name string, at, half physics.Vec3) physics.ActorDesc {
	return physics.ActorDesc{
		Name:     name,
		Pose:     physics.At(at),
		Geometry: physics.Geometry{Type: physics.GeometryBox, HalfExtents: half},
	}
}

func mustCreate(t *testing.T, e *Engine, d physics.ActorDesc) physics.ActorID {
	t.Helper()
	id, err := e.CreateActor(d)
	if err != nil {
		t.Fatalf("create %q: %v", d.Name, err)
	}
	return id
}

func run(t *testing.T, e *Engine, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		if err := e.Step(testDT); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestGravityPullsBallDown(t *testing.T) {
	e := New(DefaultOptions())
	id := mustCreate(t, e, sphereDesc("ball", physics.NewVec3(0, 10, 0), 0.5))

	run(t, e, 60)

	info, _ := e.Actor(id)
	if info.Pose.P.Y >= 10 {
		t.Errorf("ball did not fall: y=%.3f", info.Pose.P.Y)
	}
	if info.Velocity.Y >= 0 {
		t.Errorf("expected downward velocity, got %.3f", info.Velocity.Y)
	}
}

func TestBallSettlesOnGroundPlane(t *testing.T) {
	e := New(DefaultOptions())
	mustCreate(t, e, physics.ActorDesc{Name: "ground", Geometry: physics.Geometry{Type: physics.GeometryPlane}})
	id := mustCreate(t, e, sphereDesc("ball", physics.NewVec3(0, 1.5, 0), 1))

	run(t, e, 120)

	info, _ := e.Actor(id)
	if math.Abs(info.Pose.P.Y-1) > 0.05 {
		t.Errorf("ball should rest on the plane at y=1, got %.3f", info.Pose.P.Y)
	}
}

func TestTriggerEnterAndLeaveReportedOnce(t *testing.T) {
	opts := DefaultOptions()
	opts.Gravity = physics.Vec3{}
	opts.LinearDamping = 0
	e := New(opts)
	rec := &recorder{}
	e.SetEventCallback(rec)

	zone := boxDesc("Zone", physics.Vec3{}, physics.NewVec3(1, 1, 1))
	zone.Trigger = true
	zoneID := mustCreate(t, e, zone)
	ballDesc := sphereDesc("ball", physics.NewVec3(-3, 0, 0), 0.5)
	ballID := mustCreate(t, e, ballDesc)

	// 6 units/s along +X after one step.
	mass := volume(ballDesc.Geometry)
	if err := e.AddForce(ballID, physics.NewVec3(mass*6/testDT, 0, 0)); err != nil {
		t.Fatalf("add force: %v", err)
	}
	run(t, e, 120)

	if len(rec.triggers) != 2 {
		t.Fatalf("expected found+lost, got %d pairs: %+v", len(rec.triggers), rec.triggers)
	}
	in, out := rec.triggers[0], rec.triggers[1]
	if in.Status != physics.TouchFound || out.Status != physics.TouchLost {
		t.Errorf("unexpected order: %s then %s", in.Status, out.Status)
	}
	if in.TriggerActor != zoneID || in.TriggerName != "Zone" || in.OtherActor != ballID || in.OtherName != "ball" {
		t.Errorf("unexpected pair: %+v", in)
	}
	if in.OtherGeometry != physics.GeometrySphere {
		t.Errorf("expected sphere geometry, got %s", in.OtherGeometry)
	}
}

func TestRemoveActorDropsPairsSilently(t *testing.T) {
	opts := DefaultOptions()
	opts.Gravity = physics.Vec3{}
	e := New(opts)
	rec := &recorder{}
	e.SetEventCallback(rec)

	zone := boxDesc("Zone", physics.Vec3{}, physics.NewVec3(2, 2, 2))
	zone.Trigger = true
	mustCreate(t, e, zone)
	ballID := mustCreate(t, e, sphereDesc("ball", physics.Vec3{}, 0.5))

	run(t, e, 1)
	if len(rec.triggers) != 1 || rec.triggers[0].Status != physics.TouchFound {
		t.Fatalf("expected one found pair, got %+v", rec.triggers)
	}

	if err := e.RemoveActor(ballID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	run(t, e, 5)
	if len(rec.triggers) != 1 {
		t.Errorf("removal should not report touch lost, got %+v", rec.triggers)
	}
	if _, ok := e.Actor(ballID); ok {
		t.Error("removed actor still queryable")
	}
	if ids := e.ActorsNamed("ball"); len(ids) != 0 {
		t.Errorf("removed actor still named: %v", ids)
	}
	if err := e.AddForce(ballID, physics.NewVec3(1, 0, 0)); !errors.Is(err, physics.ErrUnknownActor) {
		t.Errorf("expected ErrUnknownActor, got %v", err)
	}
	if err := e.RemoveActor(ballID); !errors.Is(err, physics.ErrUnknownActor) {
		t.Errorf("double remove: expected ErrUnknownActor, got %v", err)
	}
}

func TestAddForceRejectsStaticActors(t *testing.T) {
	e := New(DefaultOptions())
	id := mustCreate(t, e, boxDesc("wall", physics.Vec3{}, physics.NewVec3(1, 1, 1)))

	if err := e.AddForce(id, physics.NewVec3(0, 1, 0)); !errors.Is(err, physics.ErrNotDynamic) {
		t.Errorf("expected ErrNotDynamic, got %v", err)
	}
}

func TestRevoluteDriveStopsAtLimits(t *testing.T) {
	e := New(DefaultOptions())
	arm := boxDesc("arm", physics.NewVec3(0, 5, 0), physics.NewVec3(0.5, 0.5, 2))
	arm.Dynamic = true
	armID := mustCreate(t, e, arm)

	lo, hi := math.Pi/4, math.Pi/2+math.Pi/8
	jid, err := e.CreateRevoluteJoint(physics.RevoluteJointDesc{
		ParentFrame: physics.At(physics.NewVec3(0, 5, 0)),
		Actor:       armID,
		LowerLimit:  lo,
		UpperLimit:  hi,
		LimitsOn:    true,
		DriveOn:     true,
	})
	if err != nil {
		t.Fatalf("joint: %v", err)
	}

	tests := []struct {
		drive float64
		want  float64
	}{
		{drive: 10, want: hi},
		{drive: -10, want: lo},
		{drive: 10, want: hi},
	}
	for _, tt := range tests {
		if err := e.SetDriveVelocity(jid, tt.drive); err != nil {
			t.Fatalf("drive: %v", err)
		}
		run(t, e, 30)
		st, err := e.JointState(jid)
		if err != nil {
			t.Fatalf("joint state: %v", err)
		}
		if math.Abs(st.Angle-tt.want) > 1e-9 {
			t.Errorf("drive %.0f: angle = %.4f, want %.4f", tt.drive, st.Angle, tt.want)
		}
		if st.DriveVelocity != tt.drive {
			t.Errorf("drive velocity = %.0f, want %.0f", st.DriveVelocity, tt.drive)
		}
	}

	// The hinged actor ignores gravity and stays on its pivot.
	info, _ := e.Actor(armID)
	if !info.Pose.P.ApproxEqual(physics.NewVec3(0, 5, 0), 1e-9) {
		t.Errorf("hinged actor drifted to %+v", info.Pose.P)
	}

	if err := e.SetDriveVelocity(99, 1); !errors.Is(err, physics.ErrUnknownJoint) {
		t.Errorf("expected ErrUnknownJoint, got %v", err)
	}
}

func TestSpringHoldsPlateNearRest(t *testing.T) {
	e := New(DefaultOptions())
	base := mustCreate(t, e, boxDesc("base", physics.Vec3{}, physics.NewVec3(0.5, 0.1, 0.5)))
	plateDesc := boxDesc("plate", physics.NewVec3(0, 2, 0), physics.NewVec3(0.5, 0.1, 0.5))
	plateDesc.Dynamic = true
	plateDesc.Density = 1
	plate := mustCreate(t, e, plateDesc)

	if _, err := e.CreateDistanceJoint(physics.DistanceJointDesc{
		ActorA:    base,
		FrameA:    physics.At(physics.Vec3{}),
		ActorB:    plate,
		FrameB:    physics.At(physics.Vec3{}),
		Stiffness: 100,
		Damping:   25,
	}); err != nil {
		t.Fatalf("spring: %v", err)
	}

	run(t, e, 300)

	mass := volume(plateDesc.Geometry)
	want := 2 - mass*9.81/100
	info, _ := e.Actor(plate)
	if math.Abs(info.Pose.P.Y-want) > 0.01 {
		t.Errorf("plate y = %.4f, want about %.4f", info.Pose.P.Y, want)
	}
}

func TestPrismaticJointHoldsAxis(t *testing.T) {
	tests := []struct {
		name    string
		force   physics.Vec3
		wantPos float64
	}{
		{name: "gravity across the axis", wantPos: 0},
		{name: "push to upper limit", force: physics.NewVec3(100, 100, -50), wantPos: 2},
		{name: "pull to lower limit", force: physics.NewVec3(-100, 0, 30), wantPos: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(DefaultOptions())
			d := boxDesc("plate", physics.NewVec3(0, 3, 0), physics.NewVec3(0.1, 1, 1))
			d.Dynamic = true
			d.Density = 1
			plate := mustCreate(t, e, d)
			jid, err := e.CreatePrismaticJoint(physics.PrismaticJointDesc{
				Actor:      plate,
				Axis:       physics.NewVec3(2, 0, 0),
				LowerLimit: -1,
				UpperLimit: 2,
				LimitsOn:   true,
			})
			if err != nil {
				t.Fatalf("prismatic joint: %v", err)
			}

			for i := 0; i < 60; i++ {
				if !tt.force.IsZero() {
					if err := e.AddForce(plate, tt.force); err != nil {
						t.Fatal(err)
					}
				}
				run(t, e, 1)
			}

			st, err := e.JointState(jid)
			if err != nil {
				t.Fatalf("joint state: %v", err)
			}
			if math.Abs(st.Position-tt.wantPos) > 1e-9 {
				t.Errorf("position = %.4f, want %.4f", st.Position, tt.wantPos)
			}
			info, _ := e.Actor(plate)
			if !info.Pose.P.ApproxEqual(physics.NewVec3(tt.wantPos, 3, 0), 1e-9) {
				t.Errorf("plate at %+v, want on the axis at x=%.1f", info.Pose.P, tt.wantPos)
			}
		})
	}
}

func TestPrismaticJointRejectsBadDesc(t *testing.T) {
	e := New(DefaultOptions())
	wall := mustCreate(t, e, boxDesc("wall", physics.Vec3{}, physics.NewVec3(1, 1, 1)))
	d := boxDesc("plate", physics.NewVec3(0, 3, 0), physics.NewVec3(0.1, 1, 1))
	d.Dynamic = true
	plate := mustCreate(t, e, d)

	tests := []struct {
		name string
		desc physics.PrismaticJointDesc
	}{
		{name: "static actor", desc: physics.PrismaticJointDesc{Actor: wall, Axis: physics.NewVec3(1, 0, 0)}},
		{name: "zero axis", desc: physics.PrismaticJointDesc{Actor: plate}},
		{name: "inverted limits", desc: physics.PrismaticJointDesc{Actor: plate, Axis: physics.NewVec3(1, 0, 0), LowerLimit: 1, UpperLimit: -1, LimitsOn: true}},
		{name: "unknown actor", desc: physics.PrismaticJointDesc{Actor: 99, Axis: physics.NewVec3(1, 0, 0)}},
	}
	for _, tt := range tests {
		if _, err := e.CreatePrismaticJoint(tt.desc); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestSlidingPlatePushesBall(t *testing.T) {
	opts := DefaultOptions()
	opts.Gravity = physics.Vec3{}
	e := New(opts)

	d := boxDesc("plate", physics.Vec3{}, physics.NewVec3(0.1, 1, 1))
	d.Dynamic = true
	d.Density = 1
	plate := mustCreate(t, e, d)
	if _, err := e.CreatePrismaticJoint(physics.PrismaticJointDesc{
		Actor:      plate,
		Axis:       physics.NewVec3(1, 0, 0),
		UpperLimit: 3,
		LimitsOn:   true,
	}); err != nil {
		t.Fatalf("prismatic joint: %v", err)
	}
	ball := mustCreate(t, e, sphereDesc("ball", physics.NewVec3(0.6, 0, 0), 0.5))

	for i := 0; i < 30; i++ {
		if err := e.AddForce(plate, physics.NewVec3(100, 0, 0)); err != nil {
			t.Fatal(err)
		}
		run(t, e, 1)
	}

	info, _ := e.Actor(ball)
	if info.Pose.P.X <= 3 || info.Velocity.X <= 0 {
		t.Errorf("ball at x=%.3f moving %.3f, want it pushed past the plate stop", info.Pose.P.X, info.Velocity.X)
	}
	if math.Abs(info.Pose.P.Y) > 1e-9 || math.Abs(info.Pose.P.Z) > 1e-9 {
		t.Errorf("ball left the axis: %+v", info.Pose.P)
	}
}

func TestContactNotifyFollowsFilter(t *testing.T) {
	tests := []struct {
		name       string
		ballFilter physics.FilterData
		boxFilter  physics.FilterData
		wantNotify bool
	}{
		{
			name:       "mutual masks",
			ballFilter: physics.FilterData{Word0: physics.FilterActor0, Word1: physics.FilterActor1},
			boxFilter:  physics.FilterData{Word0: physics.FilterActor1, Word1: physics.FilterActor0},
			wantNotify: true,
		},
		{
			name:       "one-sided mask",
			ballFilter: physics.FilterData{Word0: physics.FilterActor0, Word1: physics.FilterActor1},
			boxFilter:  physics.FilterData{Word0: physics.FilterActor1},
			wantNotify: false,
		},
		{
			name:       "no groups",
			wantNotify: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(DefaultOptions())
			rec := &recorder{}
			e.SetEventCallback(rec)

			box := boxDesc("block", physics.Vec3{}, physics.NewVec3(5, 1, 5))
			box.Filter = tt.boxFilter
			mustCreate(t, e, box)
			ball := sphereDesc("ball", physics.NewVec3(0, 2, 0), 0.5)
			ball.Filter = tt.ballFilter
			mustCreate(t, e, ball)

			run(t, e, 60)

			found := 0
			for _, c := range rec.contacts {
				if c.Status == physics.TouchFound {
					found++
				}
			}
			if tt.wantNotify && found == 0 {
				t.Error("expected a contact notification")
			}
			if !tt.wantNotify && len(rec.contacts) != 0 {
				t.Errorf("expected no contact notifications, got %+v", rec.contacts)
			}
		})
	}
}

func TestStepRejectsInvalidDelta(t *testing.T) {
	e := New(DefaultOptions())
	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := e.Step(dt); err == nil {
			t.Errorf("Step(%v) should fail", dt)
		}
	}
}

func TestPairTrackerReportsPassThrough(t *testing.T) {
	pt := newPairTracker()
	k := pairKey{A: 1, B: 2}

	pt.touch(k)
	found, lost := pt.commit()
	if len(found) != 1 || len(lost) != 1 {
		t.Fatalf("pass-through should be found and lost, got found=%v lost=%v", found, lost)
	}

	pt.settle(k)
	found, lost = pt.commit()
	if len(found) != 1 || len(lost) != 0 {
		t.Fatalf("settled pair should be found only, got found=%v lost=%v", found, lost)
	}

	pt.settle(k)
	found, lost = pt.commit()
	if len(found) != 0 || len(lost) != 0 {
		t.Fatalf("persisting pair should be silent, got found=%v lost=%v", found, lost)
	}

	found, lost = pt.commit()
	if len(found) != 0 || len(lost) != 1 {
		t.Fatalf("separated pair should be lost, got found=%v lost=%v", found, lost)
	}
}
