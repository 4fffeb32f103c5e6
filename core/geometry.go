package core

import (
	"math"

	"github.com/signalsfoundry/surface-survey/model"
)

// Vec3 is a Cartesian vector. Units depend on the caller: metres for
// positions, metres per second for velocities.
type Vec3 struct {
	X, Y, Z float64
}

// VecFromMotion converts a model vector.
func VecFromMotion(m model.Motion) Vec3 { return Vec3{X: m.X, Y: m.Y, Z: m.Z} }

// Motion converts v back to the model representation.
func (v Vec3) Motion() model.Motion { return model.Motion{X: v.X, Y: v.Y, Z: v.Z} }

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Exclude removes the component of v along dir. A zero dir leaves v unchanged.
func (v Vec3) Exclude(dir Vec3) Vec3 {
	d := dir.Dot(dir)
	if d == 0 {
		return v
	}
	return v.Sub(dir.Scale(v.Dot(dir) / d))
}

// HorizontalSpeed is the magnitude of velocity with the up component removed.
func HorizontalSpeed(velocity, up Vec3) float64 {
	return velocity.Exclude(up).Norm()
}

// SurfaceToECEF converts geodetic coordinates on a spherical body of the
// given radius to body-fixed Cartesian metres.
func SurfaceToECEF(latDeg, lonDeg, altM, radiusM float64) Vec3 {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	r := radiusM + altM
	return Vec3{
		X: r * math.Cos(lat) * math.Cos(lon),
		Y: r * math.Cos(lat) * math.Sin(lon),
		Z: r * math.Sin(lat),
	}
}
