package sim

import (
	"math"

	"github.com/playmatatu/pinball/internal/physics"
)

// closestPoint returns the point of geometry g (in its local space) closest to
// p, and whether p lies inside the solid. Pyramids are bounded by their box.
func closestPoint(g physics.Geometry, p physics.Vec3) (physics.Vec3, bool) {
	switch g.Type {
	case physics.GeometryPlane:
		if p.Y <= 0 {
			return physics.Vec3{X: p.X, Y: 0, Z: p.Z}, true
		}
		return physics.Vec3{X: p.X, Y: 0, Z: p.Z}, false

	case physics.GeometrySphere:
		d := p.Magnitude()
		if d == 0 {
			return physics.Vec3{Y: g.Radius}, true
		}
		return p.Times(g.Radius / d), d < g.Radius

	case physics.GeometryCapsule:
		axis := closestOnSegment(
			physics.Vec3{X: -g.HalfHeight},
			physics.Vec3{X: g.HalfHeight},
			p,
		)
		off := p.Minus(axis)
		d := off.Magnitude()
		if d == 0 {
			return axis.Plus(physics.Vec3{Y: g.Radius}), true
		}
		return axis.Plus(off.Times(g.Radius / d)), d < g.Radius

	default:
		h := g.HalfExtents
		q := p.Clamp(h.Invert(), h)
		if q != p {
			return q, false
		}
		// Inside: project to the nearest face.
		dx := h.X - math.Abs(p.X)
		dy := h.Y - math.Abs(p.Y)
		dz := h.Z - math.Abs(p.Z)
		switch {
		case dx <= dy && dx <= dz:
			q.X = math.Copysign(h.X, p.X)
		case dy <= dz:
			q.Y = math.Copysign(h.Y, p.Y)
		default:
			q.Z = math.Copysign(h.Z, p.Z)
		}
		return q, true
	}
}

// closestOnSegment returns the point on segment a→b closest to p.
func closestOnSegment(a, b, p physics.Vec3) physics.Vec3 {
	ab := b.Minus(a)
	den := ab.MagnitudeSquared()
	if den == 0 {
		return a
	}
	t := p.Minus(a).Dot(ab) / den
	t = math.Max(0, math.Min(1, t))
	return a.Lerp(b, t)
}

// sphereContact tests a sphere of radius r centred at world point c against a
// shape posed at pose. It returns the world-space push-out normal and depth.
func sphereContact(pose physics.Transform, g physics.Geometry, c physics.Vec3, r float64) (normal physics.Vec3, depth float64, hit bool) {
	local := pose.ApplyInv(c)
	q, inside := closestPoint(g, local)
	off := local.Minus(q)
	d := off.Magnitude()

	if g.Type == physics.GeometryPlane {
		if local.Y > r {
			return physics.Vec3{}, 0, false
		}
		return pose.Q.Rotate(physics.Vec3{Y: 1}), r - local.Y, true
	}

	if inside {
		n := q.Minus(local)
		if n.IsZero() {
			n = physics.Vec3{Y: 1}
		}
		return pose.Q.Rotate(n.Normalize()), r + n.Magnitude(), true
	}
	if d >= r {
		return physics.Vec3{}, 0, false
	}
	return pose.Q.Rotate(off.Times(1 / d)), r - d, true
}

// sphereOverlaps reports whether a sphere overlaps the shape at pose.
func sphereOverlaps(pose physics.Transform, g physics.Geometry, c physics.Vec3, r float64) bool {
	_, _, hit := sphereContact(pose, g, c, r)
	return hit
}

// boundingRadius is the radius of a sphere enclosing g; zero for planes.
func boundingRadius(g physics.Geometry) float64 {
	switch g.Type {
	case physics.GeometrySphere:
		return g.Radius
	case physics.GeometryCapsule:
		return g.Radius + g.HalfHeight
	case physics.GeometryPlane:
		return 0
	default:
		return g.HalfExtents.Magnitude()
	}
}

// volume is used to derive mass from density.
func volume(g physics.Geometry) float64 {
	switch g.Type {
	case physics.GeometrySphere:
		return 4.0 / 3.0 * math.Pi * g.Radius * g.Radius * g.Radius
	case physics.GeometryCapsule:
		r := g.Radius
		return math.Pi*r*r*2*g.HalfHeight + 4.0/3.0*math.Pi*r*r*r
	case physics.GeometryPyramid:
		h := g.HalfExtents
		return 8 * h.X * h.Y * h.Z / 3
	case physics.GeometryPlane:
		return 0
	default:
		h := g.HalfExtents
		return 8 * h.X * h.Y * h.Z
	}
}
