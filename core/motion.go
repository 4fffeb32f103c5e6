package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/surface-survey/model"
)

// MotionModel advances a vessel's position and velocity for a tick.
type MotionModel interface {
	Update(simTime time.Time, dt time.Duration, v *model.Vessel, body *model.Body)
}

// StaticMotionModel leaves the vessel's state unchanged.
type StaticMotionModel struct{}

// Update for static motion does nothing.
func (m *StaticMotionModel) Update(time.Time, time.Duration, *model.Vessel, *model.Body) {
	// no-op
}

// SurfaceRoverModel drives a vessel across a body's surface at a constant
// ground speed and heading (degrees clockwise from north).
type SurfaceRoverModel struct {
	HeadingDeg float64
	SpeedMS    float64
}

// Update dead-reckons latitude and longitude on a spherical body. Velocity
// is expressed in a local east/north/up frame.
func (m *SurfaceRoverModel) Update(_ time.Time, dt time.Duration, v *model.Vessel, body *model.Body) {
	heading := m.HeadingDeg * math.Pi / 180
	east := m.SpeedMS * math.Sin(heading)
	north := m.SpeedMS * math.Cos(heading)

	v.SurfaceVelocity = model.Motion{X: east, Y: north}
	v.Up = model.Motion{Z: 1}
	if body == nil {
		return
	}

	r := body.RadiusM + v.AltitudeM
	if r <= 0 {
		return
	}
	secs := dt.Seconds()
	v.LatitudeDeg += north * secs / r * 180 / math.Pi
	if v.LatitudeDeg > 90 {
		v.LatitudeDeg = 180 - v.LatitudeDeg
		v.LongitudeDeg += 180
	} else if v.LatitudeDeg < -90 {
		v.LatitudeDeg = -180 - v.LatitudeDeg
		v.LongitudeDeg += 180
	}
	if c := math.Cos(v.LatitudeDeg * math.Pi / 180); c > 1e-9 {
		v.LongitudeDeg += east * secs / (r * c) * 180 / math.Pi
	}
	v.LongitudeDeg = math.Mod(v.LongitudeDeg+540, 360) - 180

	v.Coordinates = SurfaceToECEF(v.LatitudeDeg, v.LongitudeDeg, v.AltitudeM, body.RadiusM).Motion()
}

// OrbitalSGP4MotionModel uses a TLE and SGP4 to update vessel position.
// SGP4 propagates against WGS72 Earth, so the model only makes sense for
// vessels orbiting an Earth-like body; the body argument is ignored.
type OrbitalSGP4MotionModel struct {
	sat satellite.Satellite
}

// earthRotationRadS is the sidereal rotation rate of the Earth.
const earthRotationRadS = 7.2921150e-5

// NewOrbitalModelFromTLE constructs an orbital model from TLE lines.
func NewOrbitalModelFromTLE(line1, line2 string) *OrbitalSGP4MotionModel {
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalSGP4MotionModel{sat: sat}
}

// Update propagates the satellite to simTime and writes geodetic position
// and altitude. SurfaceVelocity is the inertial velocity minus the surface
// co-rotation at the vessel's position, with Up the radial direction, both
// in the inertial frame. go-satellite works in kilometres; the vessel
// stores metres.
func (m *OrbitalSGP4MotionModel) Update(simTime time.Time, _ time.Duration, v *model.Vessel, _ *model.Body) {
	year, month, day := simTime.Date()
	hour, min, sec := simTime.Clock()

	posECI, velECI := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)
	altKm, _, ll := satellite.ECIToLLA(posECI, gmst)
	deg := satellite.LatLongDeg(ll)

	const kmToM = 1000.0
	r := Vec3{X: posECI.X, Y: posECI.Y, Z: posECI.Z}.Scale(kmToM)
	vel := Vec3{X: velECI.X, Y: velECI.Y, Z: velECI.Z}.Scale(kmToM)
	// omega x r for rotation about +Z
	corotation := Vec3{X: -earthRotationRadS * r.Y, Y: earthRotationRadS * r.X}

	v.Coordinates = model.Motion{
		X: posECEF.X * kmToM,
		Y: posECEF.Y * kmToM,
		Z: posECEF.Z * kmToM,
	}
	v.LatitudeDeg = deg.Latitude
	v.LongitudeDeg = deg.Longitude
	v.AltitudeM = altKm * kmToM
	v.SurfaceVelocity = vel.Sub(corotation).Motion()
	if n := r.Norm(); n > 0 {
		v.Up = r.Scale(1 / n).Motion()
	} else {
		v.Up = model.Motion{Z: 1}
	}
	v.Situation = model.VesselOrbiting
	v.LandedAt = ""
}

// MotionParams selects and configures a motion model.
type MotionParams struct {
	Source     model.MotionSource
	HeadingDeg float64
	SpeedMS    float64
	TLE1, TLE2 string
}

// NewMotionModel chooses an appropriate MotionModel. Spacetrack sources
// with a non-empty TLE use SGP4.
func NewMotionModel(p MotionParams) MotionModel {
	switch {
	case p.Source == model.MotionSourceSpacetrack && p.TLE1 != "" && p.TLE2 != "":
		return NewOrbitalModelFromTLE(p.TLE1, p.TLE2)
	case p.Source == model.MotionSourceSurface:
		return &SurfaceRoverModel{HeadingDeg: p.HeadingDeg, SpeedMS: p.SpeedMS}
	default:
		return &StaticMotionModel{}
	}
}
