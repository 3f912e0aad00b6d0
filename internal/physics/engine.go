package physics

import "errors"

// ActorID identifies a live actor inside an engine. IDs are never reused.
type ActorID uint64

// JointID identifies a joint inside an engine.
type JointID uint64

var (
	ErrUnknownActor = errors.New("unknown actor")
	ErrUnknownJoint = errors.New("unknown joint")
	ErrNotDynamic   = errors.New("actor is not dynamic")
)

// GeometryType is the collision shape kind of an actor.
type GeometryType uint8

const (
	GeometryPlane   GeometryType = iota // infinite plane with +Y normal in actor space
	GeometryBox                         // box with HalfExtents
	GeometrySphere                      // sphere with Radius
	GeometryCapsule                     // capsule along local X with Radius and HalfHeight
	GeometryPyramid                     // square pyramid bounded by HalfExtents
)

func (g GeometryType) String() string {
	switch g {
	case GeometryPlane:
		return "plane"
	case GeometryBox:
		return "box"
	case GeometrySphere:
		return "sphere"
	case GeometryCapsule:
		return "capsule"
	case GeometryPyramid:
		return "pyramid"
	default:
		return "unknown"
	}
}

// Geometry describes a single collision shape.
type Geometry struct {
	Type        GeometryType
	HalfExtents Vec3
	Radius      float64
	HalfHeight  float64
}

// Material holds the surface response parameters of a shape.
type Material struct {
	StaticFriction  float64 `json:"static_friction" yaml:"staticFriction"`
	DynamicFriction float64 `json:"dynamic_friction" yaml:"dynamicFriction"`
	Restitution     float64 `json:"restitution" yaml:"restitution"`
}

// FilterData carries the collision-filter words of a shape: Word0 is the
// shape's own group bits, Word1 the mask of groups it reports contacts with.
type FilterData struct {
	Word0 uint32
	Word1 uint32
}

// Filter groups used by the board.
const (
	FilterActor0 uint32 = 1 << iota
	FilterActor1
	FilterActor2
	FilterActor3
	FilterActor4
)

// Color is an RGB triple in [0,1]. Engines may ignore it; it is carried for
// debug visualisation.
type Color struct {
	R, G, B float64
}

// ActorDesc describes an actor to create.
type ActorDesc struct {
	Name     string
	Pose     Transform
	Dynamic  bool
	Geometry Geometry
	Material Material
	Density  float64
	Trigger  bool
	Filter   FilterData
	CCD      bool
	Visible  bool
	Color    Color
}

// ActorInfo is the queryable state of a live actor.
type ActorInfo struct {
	ID       ActorID
	Name     string
	Pose     Transform
	Velocity Vec3
	Dynamic  bool
	Trigger  bool
	Geometry GeometryType
	Filter   FilterData
	CCD      bool
}

// RevoluteJointDesc attaches Actor to Parent (0 = world) through a hinge about
// the joint frame's local X axis.
type RevoluteJointDesc struct {
	Parent      ActorID
	ParentFrame Transform
	Actor       ActorID
	ActorFrame  Transform
	LowerLimit  float64
	UpperLimit  float64
	LimitsOn    bool
	DriveOn     bool
}

// DistanceJointDesc couples two actors with a damped spring between two
// local anchor points.
type DistanceJointDesc struct {
	ActorA    ActorID
	FrameA    Transform
	ActorB    ActorID
	FrameB    Transform
	Stiffness float64
	Damping   float64
}

// PrismaticJointDesc lets Actor slide along Axis, expressed in the parent
// joint frame, keeping the orientation of that frame. Limits bound the
// offset from the actor's creation pose.
type PrismaticJointDesc struct {
	Parent      ActorID
	ParentFrame Transform
	Actor       ActorID
	Axis        Vec3
	LowerLimit  float64
	UpperLimit  float64
	LimitsOn    bool
}

// JointState reports a joint's commanded drive and current angle, or the
// current offset along the axis for a prismatic joint.
type JointState struct {
	DriveVelocity float64
	Angle         float64
	Position      float64
}

// PairStatus reports whether a pair started or stopped touching.
type PairStatus uint8

const (
	TouchFound PairStatus = 1 << iota
	TouchLost
)

func (s PairStatus) String() string {
	switch s {
	case TouchFound:
		return "touch_found"
	case TouchLost:
		return "touch_lost"
	default:
		return "none"
	}
}

// TriggerPair is one trigger-volume notification produced during a step.
type TriggerPair struct {
	TriggerActor  ActorID
	TriggerName   string
	OtherActor    ActorID
	OtherName     string
	OtherGeometry GeometryType
	Status        PairStatus
}

// ContactPair is one solid-contact notification admitted by the filter.
type ContactPair struct {
	Actors  [2]ActorID
	Names   [2]string
	Filters [2]FilterData
	Status  PairStatus
}

// EventCallback receives simulation notifications. Engines invoke it
// synchronously from Step, after integration and before Step returns.
type EventCallback interface {
	OnTrigger(pairs []TriggerPair)
	OnContact(pairs []ContactPair)
}

// Engine is the rigid-body collaborator contract the game consumes.
type Engine interface {
	CreateActor(desc ActorDesc) (ActorID, error)
	// RemoveActor removes the actor from the simulation and releases it.
	// Joints referencing it are released too.
	RemoveActor(id ActorID) error
	Actor(id ActorID) (ActorInfo, bool)
	ActorsNamed(name string) []ActorID
	SetTrigger(id ActorID, trigger bool) error
	SetFilter(id ActorID, filter FilterData) error
	// AddForce accumulates a force on a dynamic actor for the next step only.
	AddForce(id ActorID, force Vec3) error

	CreateRevoluteJoint(desc RevoluteJointDesc) (JointID, error)
	SetDriveVelocity(id JointID, velocity float64) error
	JointState(id JointID) (JointState, error)
	CreateDistanceJoint(desc DistanceJointDesc) (JointID, error)
	CreatePrismaticJoint(desc PrismaticJointDesc) (JointID, error)

	SetEventCallback(cb EventCallback)
	Step(dt float64) error
}

// DefaultFilter is the board's filter shader: trigger pairs always report,
// solid pairs notify only when each shape's group is in the other's mask.
func DefaultFilter(a, b FilterData, aTrigger, bTrigger bool) (report, notify bool) {
	if aTrigger || bTrigger {
		return true, false
	}
	return false, a.Word0&b.Word1 != 0 && b.Word0&a.Word1 != 0
}
