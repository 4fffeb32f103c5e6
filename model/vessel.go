package model

// MotionSource indicates how a vessel's position is determined.
type MotionSource int

const (
	MotionSourceStatic     MotionSource = iota
	MotionSourceSurface                 // dead-reckoned rover on a body surface
	MotionSourceSpacetrack              // TLE-based orbit propagation
)

// Motion is a 3-vector in metres (positions) or metres per second (velocities).
type Motion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vessel is the host-side vehicle an instrument is mounted on.
type Vessel struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Body string `json:"body"`

	Situation VesselSituation `json:"situation"`

	LatitudeDeg  float64 `json:"latitude_deg"`
	LongitudeDeg float64 `json:"longitude_deg"`
	AltitudeM    float64 `json:"altitude_m"`

	// SurfaceVelocity is relative to the rotating body surface, in a local
	// east/north/up frame.
	SurfaceVelocity Motion `json:"surface_velocity"`
	// Up is the local vertical unit vector in the same frame.
	Up Motion `json:"up"`

	// LandedAt is the host's cached biome label while on the surface.
	LandedAt string `json:"landed_at,omitempty"`

	// Controllable reports whether the host allows commanding the vessel.
	Controllable bool `json:"controllable"`

	Coordinates  Motion       `json:"coordinates"`
	MotionSource MotionSource `json:"motion_source"`

	NoradID uint32 `json:"norad_id,omitempty"` // optional; used with MotionSourceSpacetrack
}
