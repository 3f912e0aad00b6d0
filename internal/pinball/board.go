package pinball

import (
	"fmt"
	"math"

	"github.com/playmatatu/pinball/internal/physics"
)

// Board constants. Positions are in world units with +Y up; the playfield
// slopes down toward +Z where the flippers and the drain are.
const (
	BallRadius     = 0.5
	BoardTilt      = math.Pi / 8
	FlipperLower   = math.Pi / 4
	FlipperUpper   = math.Pi/2 + math.Pi/8
	SpringStiff    = 100.0
	SpringDamping  = 25.0
	PlungerStroke  = 5.0
	plateThickness = 0.1
	plateDensity   = 50
)

// Plunger placement in board coordinates. The plate slides along the lane
// between its rest stop and PlungerStroke up the slope.
const (
	plungerX     = 18.25
	plungerRestZ = 32.5
	plungerBaseZ = 34.5
)

// SpawnPoint is where every ball instance starts: on the floor of the
// plunger lane, resting against the plate.
var SpawnPoint = boardFrame.Apply(physics.NewVec3(18, BallRadius, plungerRestZ-plateThickness-BallRadius))

var (
	BallMaterial  = physics.Material{StaticFriction: 0.78, DynamicFriction: 0.27, Restitution: 0.39}
	BoardMaterial = physics.Material{StaticFriction: 0, DynamicFriction: 0, Restitution: 0.5}
)

// Palette is the board's colour set.
var Palette = [...]physics.Color{
	{R: 46.0 / 255, G: 9.0 / 255, B: 39.0 / 255},
	{R: 217.0 / 255, G: 0, B: 0},
	{R: 1, G: 45.0 / 255, B: 0},
	{R: 1, G: 140.0 / 255, B: 54.0 / 255},
	{R: 4.0 / 255, G: 117.0 / 255, B: 111.0 / 255},
	{R: 4.0 / 255, G: 117.0 / 255, B: 111.0 / 255},
}

// BallDesc describes a fresh ball at the spawn point.
func BallDesc() physics.ActorDesc {
	return physics.ActorDesc{
		Name:     BallName,
		Pose:     physics.At(SpawnPoint),
		Dynamic:  true,
		Geometry: physics.Geometry{Type: physics.GeometrySphere, Radius: BallRadius},
		Material: BallMaterial,
		Density:  1,
		CCD:      true,
		Visible:  true,
		Color:    Palette[3],
		Filter: physics.FilterData{
			Word0: physics.FilterActor0,
			Word1: physics.FilterActor1 | physics.FilterActor2 | physics.FilterActor3 | physics.FilterActor4,
		},
	}
}

// Board holds the handles the session needs after the scene is built.
type Board struct {
	Ball          *BallHandle
	BallDesc      physics.ActorDesc
	PlungerPlate  physics.ActorID
	PlungerSlide  physics.JointID
	Springs       [4]physics.JointID
	FlipperJoints [2]physics.JointID // indexed by Side
	UprightJoints [4]physics.JointID
}

func rot(angle, x, y, z float64) physics.Quat {
	return physics.QuatFromAxisAngle(angle, physics.NewVec3(x, y, z))
}

// uprightFrame is the joint frame shared by the scoring capsules and the
// trigger boxes.
func uprightFrame(x, y, z float64) physics.Transform {
	return physics.Transform{
		P: physics.NewVec3(x, y, z),
		Q: rot(math.Pi/2, 0, 1, 0).Mul(rot(math.Pi/2-math.Pi/8, 0, 0, -1)),
	}
}

// boardFrame carries the playfield: the surface passes through its origin
// and its local +Z runs down the slope.
var boardFrame = physics.Transform{
	P: physics.NewVec3(0, 27.5, 0),
	Q: rot(BoardTilt, 1, 0, 0),
}

type boardPiece struct {
	center physics.Vec3 // board-local
	half   physics.Vec3
	yaw    float64 // about the board normal
}

var boardPieces = []boardPiece{
	{center: physics.NewVec3(0, -0.5, 8), half: physics.NewVec3(21, 0.5, 36)}, // floor
	{center: physics.NewVec3(-20.5, 1, 8), half: physics.NewVec3(0.5, 1, 36)}, // left wall
	{center: physics.NewVec3(20.5, 1, 8), half: physics.NewVec3(0.5, 1, 36)},  // right wall
	{center: physics.NewVec3(0, 1, -27.5), half: physics.NewVec3(21, 1, 0.5)}, // back wall
	{center: physics.NewVec3(16, 1, 14), half: physics.NewVec3(0.5, 1, 22)},   // plunger lane
	// Turns a launched ball out of the lane into the playfield.
	{center: physics.NewVec3(18.5, 1, -24.5), half: physics.NewVec3(0.5, 1, 3.5), yaw: math.Pi / 4},
}

// boardAt places a board-local transform in the world.
func boardAt(local physics.Vec3, yaw float64) physics.Transform {
	return boardFrame.Compose(physics.Transform{P: local, Q: rot(yaw, 0, 1, 0)})
}

type target struct {
	name   string
	frame  physics.Transform
	color  physics.Color
	filter uint32
}

var targets = [4]target{
	{name: "Score", frame: uprightFrame(0, 30, -5), color: Palette[1], filter: physics.FilterActor1},
	{name: "Score2", frame: uprightFrame(5, 34, -15), color: Palette[4], filter: physics.FilterActor2},
	{name: "Score2", frame: uprightFrame(-5, 34, -15), color: Palette[4], filter: physics.FilterActor3},
	{name: "Score1", frame: uprightFrame(0, 20, 20), color: Palette[5], filter: physics.FilterActor4},
}

// builder creates actors and registers them, keeping the first error.
type builder struct {
	engine   physics.Engine
	registry *Registry
	err      error
}

func (b *builder) actor(role Role, desc physics.ActorDesc) physics.ActorID {
	if b.err != nil {
		return 0
	}
	id, err := b.engine.CreateActor(desc)
	if err != nil {
		b.err = fmt.Errorf("create %s %q: %w", role, desc.Name, err)
		return 0
	}
	b.registry.Register(desc.Name, role, id)
	return id
}

func (b *builder) hinge(desc physics.RevoluteJointDesc) physics.JointID {
	if b.err != nil {
		return 0
	}
	id, err := b.engine.CreateRevoluteJoint(desc)
	if err != nil {
		b.err = fmt.Errorf("create revolute joint: %w", err)
	}
	return id
}

func (b *builder) slide(desc physics.PrismaticJointDesc) physics.JointID {
	if b.err != nil {
		return 0
	}
	id, err := b.engine.CreatePrismaticJoint(desc)
	if err != nil {
		b.err = fmt.Errorf("create plunger slide: %w", err)
	}
	return id
}

func (b *builder) spring(desc physics.DistanceJointDesc) physics.JointID {
	if b.err != nil {
		return 0
	}
	id, err := b.engine.CreateDistanceJoint(desc)
	if err != nil {
		b.err = fmt.Errorf("create spring: %w", err)
	}
	return id
}

// BuildBoard creates the fixed layout in engine and registers every named
// object in registry.
func BuildBoard(engine physics.Engine, registry *Registry) (*Board, error) {
	b := &builder{engine: engine, registry: registry}
	board := &Board{BallDesc: BallDesc()}

	b.actor(RoleStructure, physics.ActorDesc{
		Name:     "Ground",
		Pose:     physics.At(physics.Vec3{}),
		Geometry: physics.Geometry{Type: physics.GeometryPlane},
		Visible:  true,
		Color:    physics.Color{R: 210.0 / 255, G: 210.0 / 255, B: 210.0 / 255},
	})
	for _, p := range boardPieces {
		b.actor(RoleStructure, physics.ActorDesc{
			Name:     "PinballBoard",
			Pose:     boardAt(p.center, p.yaw),
			Geometry: physics.Geometry{Type: physics.GeometryBox, HalfExtents: p.half},
			Material: BoardMaterial,
			Visible:  true,
			Color:    Palette[0],
		})
	}

	ball := b.actor(RoleBall, board.BallDesc)
	if b.err == nil {
		e, _ := registry.EntityOf(ball)
		board.Ball = &BallHandle{registry: registry, entity: e}
	}

	// Flippers hinge about their own centre; limits keep them between rest
	// and strike.
	flipperFrames := [2]physics.Transform{
		SideLeft: {
			P: physics.NewVec3(-5.5, 13.5, 35),
			Q: rot(math.Pi/2, 0, 1, 0).Mul(rot(math.Pi/2-math.Pi/8, 0, 0, -1)),
		},
		SideRight: {
			P: physics.NewVec3(5.5, 13.5, 35),
			Q: rot(math.Pi/2, 0, -1, 0).Mul(rot(math.Pi/2-math.Pi/8, 0, 0, 1)),
		},
	}
	for side, name := range [2]string{SideLeft: "FlipperLeft", SideRight: "FlipperRight"} {
		id := b.actor(RoleFlipper, physics.ActorDesc{
			Name:     name,
			Pose:     flipperFrames[side],
			Dynamic:  true,
			Geometry: physics.Geometry{Type: physics.GeometryPyramid, HalfExtents: physics.NewVec3(0.5, 0.5, 2)},
			Material: BallMaterial,
			Density:  1,
			CCD:      true,
			Visible:  true,
			Color:    Palette[4],
		})
		board.FlipperJoints[side] = b.hinge(physics.RevoluteJointDesc{
			ParentFrame: flipperFrames[side],
			Actor:       id,
			ActorFrame:  physics.At(physics.Vec3{}),
			LowerLimit:  FlipperLower,
			UpperLimit:  FlipperUpper,
			LimitsOn:    true,
			DriveOn:     true,
		})
	}

	for i, t := range targets {
		id := b.actor(RoleTarget, physics.ActorDesc{
			Name:     t.name,
			Pose:     t.frame,
			Dynamic:  true,
			Geometry: physics.Geometry{Type: physics.GeometryCapsule, Radius: 1, HalfHeight: 1},
			Density:  1,
			Trigger:  true,
			Visible:  true,
			Color:    t.color,
			Filter:   physics.FilterData{Word0: t.filter, Word1: physics.FilterActor0},
		})
		board.UprightJoints[i] = b.hinge(physics.RevoluteJointDesc{
			ParentFrame: t.frame,
			Actor:       id,
			ActorFrame:  physics.At(physics.Vec3{}),
		})
	}

	buildPlunger(b, board)

	// The drain spans the open lower edge of the floor; the lane zone sits
	// past the top of the divider where every launched ball passes.
	b.actor(RoleZone, physics.ActorDesc{
		Name:     ZoneOutOfBounds.Name(),
		Pose:     boardAt(physics.NewVec3(0, -1.5, 47), 0),
		Geometry: physics.Geometry{Type: physics.GeometryBox, HalfExtents: physics.NewVec3(24, 2.5, 3)},
		Trigger:  true,
	})
	b.actor(RoleZone, physics.ActorDesc{
		Name:     ZonePlungerPulled.Name(),
		Pose:     boardAt(physics.NewVec3(plungerX, 1, -12), 0),
		Geometry: physics.Geometry{Type: physics.GeometryBox, HalfExtents: physics.NewVec3(1.75, 1, 1.5)},
		Trigger:  true,
	})

	if b.err != nil {
		return nil, b.err
	}
	return board, nil
}

// buildPlunger places a fixed base at the bottom of the lane and a plate on
// a slide just up the slope from it, coupled at four corners by damped
// springs. Gravity holds the plate against its rest stop; the launch force
// drives it up the lane into the ball.
func buildPlunger(b *builder, board *Board) {
	slab := physics.Geometry{Type: physics.GeometryBox, HalfExtents: physics.NewVec3(1.6, 1, plateThickness)}

	base := b.actor(RoleStructure, physics.ActorDesc{
		Name:     "PlungerBase",
		Pose:     boardAt(physics.NewVec3(plungerX, 1, plungerBaseZ), 0),
		Geometry: slab,
		Material: BoardMaterial,
		Visible:  true,
		Color:    Palette[2],
	})
	plate := b.actor(RolePlunger, physics.ActorDesc{
		Name:     "Plunger",
		Pose:     boardAt(physics.NewVec3(plungerX, 1, plungerRestZ), 0),
		Dynamic:  true,
		Geometry: slab,
		Material: BoardMaterial,
		Density:  plateDensity,
		Visible:  true,
		Color:    Palette[2],
	})
	board.PlungerPlate = plate
	board.PlungerSlide = b.slide(physics.PrismaticJointDesc{
		ParentFrame: boardFrame,
		Actor:       plate,
		Axis:        physics.NewVec3(0, 0, 1),
		LowerLimit:  -PlungerStroke,
		UpperLimit:  0,
		LimitsOn:    true,
	})

	corners := [4][2]float64{{1.4, 0.8}, {1.4, -0.8}, {-1.4, 0.8}, {-1.4, -0.8}}
	for i, c := range corners {
		board.Springs[i] = b.spring(physics.DistanceJointDesc{
			ActorA:    base,
			FrameA:    physics.At(physics.NewVec3(c[0], c[1], -plateThickness)),
			ActorB:    plate,
			FrameB:    physics.At(physics.NewVec3(c[0], c[1], plateThickness)),
			Stiffness: SpringStiff,
			Damping:   SpringDamping,
		})
	}
}
