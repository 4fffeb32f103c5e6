package model

import "github.com/signalsfoundry/surface-survey/biome"

// Body is a celestial body the vessel can operate around.
type Body struct {
	Name string

	RadiusM float64

	HasAtmosphere   bool
	AtmosphereDepth float64 // metres above the surface
	HasOcean        bool

	// Altitudes (metres) separating low and high science situations.
	FlyingAltitudeThreshold float64
	SpaceAltitudeThreshold  float64

	// BiomeMap is nil for bodies without biome data.
	BiomeMap *biome.Map
}
