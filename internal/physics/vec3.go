package physics

import "math"

// Vec3 is a 3D vector in board-local units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Plus(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Minus(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Times(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) TimesVec(o Vec3) Vec3 {
	return Vec3{X: v.X * o.X, Y: v.Y * o.Y, Z: v.Z * o.Z}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) MagnitudeSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Normalize() Vec3 {
	m := v.Magnitude()
	if m == 0 {
		return Vec3{}
	}
	return v.Times(1.0 / m)
}

func (v Vec3) Invert() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Clamp limits each component to [lo, hi] of the matching component.
func (v Vec3) Clamp(lo, hi Vec3) Vec3 {
	return Vec3{
		X: math.Max(lo.X, math.Min(hi.X, v.X)),
		Y: math.Max(lo.Y, math.Min(hi.Y, v.Y)),
		Z: math.Max(lo.Z, math.Min(hi.Z, v.Z)),
	}
}

// Lerp linearly interpolates between v and o.
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return Vec3{
		X: (1-t)*v.X + t*o.X,
		Y: (1-t)*v.Y + t*o.Y,
		Z: (1-t)*v.Z + t*o.Z,
	}
}

func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// ApproxEqual compares component-wise within eps.
func (v Vec3) ApproxEqual(o Vec3, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps && math.Abs(v.Z-o.Z) <= eps
}

// Quat is a unit rotation quaternion.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// QuatIdentity is the no-rotation quaternion.
var QuatIdentity = Quat{W: 1}

// QuatFromAxisAngle builds a rotation of angle radians about axis.
func QuatFromAxisAngle(angle float64, axis Vec3) Quat {
	a := axis.Normalize()
	s := math.Sin(angle / 2)
	return Quat{X: a.X * s, Y: a.Y * s, Z: a.Z * s, W: math.Cos(angle / 2)}
}

// Mul composes q then o (q applied after o), matching q * o.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quat) Conjugate() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{X: q.X, Y: q.Y, Z: q.Z}
	t := u.Cross(v).Times(2)
	return v.Plus(t.Times(q.W)).Plus(u.Cross(t))
}

// RotateInv applies the inverse rotation to v.
func (q Quat) RotateInv(v Vec3) Vec3 {
	return q.Conjugate().Rotate(v)
}

// Transform is a pose: rotation Q followed by translation P.
type Transform struct {
	P Vec3 `json:"p"`
	Q Quat `json:"q"`
}

// At returns an unrotated pose at p.
func At(p Vec3) Transform {
	return Transform{P: p, Q: QuatIdentity}
}

// Apply maps a local point into the parent frame.
func (t Transform) Apply(local Vec3) Vec3 {
	return t.Q.Rotate(local).Plus(t.P)
}

// ApplyInv maps a parent-frame point into local space.
func (t Transform) ApplyInv(world Vec3) Vec3 {
	return t.Q.RotateInv(world.Minus(t.P))
}

// Inverse returns the pose that undoes t.
func (t Transform) Inverse() Transform {
	q := t.Q.Conjugate()
	return Transform{P: q.Rotate(t.P).Invert(), Q: q}
}

// Compose returns t ∘ o: o expressed in t's parent frame.
func (t Transform) Compose(o Transform) Transform {
	return Transform{P: t.Apply(o.P), Q: t.Q.Mul(o.Q)}
}
