package core

import (
	"math"

	"github.com/signalsfoundry/surface-survey/biome"
	"github.com/signalsfoundry/surface-survey/model"
)

// ClassifySituation maps the vessel's flight state and altitude to a
// science situation. Thresholds are inclusive to the high variant.
func ClassifySituation(v *model.Vessel, body *model.Body) model.Situation {
	switch v.Situation {
	case model.VesselLanded, model.VesselPrelaunch:
		return model.SrfLanded
	case model.VesselSplashed:
		return model.SrfSplashed
	case model.VesselFlying:
		if v.AltitudeM < body.FlyingAltitudeThreshold {
			return model.FlyingLow
		}
		return model.FlyingHigh
	default:
		if v.AltitudeM < body.SpaceAltitudeThreshold {
			return model.InSpaceLow
		}
		return model.InSpaceHigh
	}
}

// RasterZones samples the body's biome raster.
type RasterZones struct{}

// Zone returns the biome at the given position, or biome.NoData when the
// body has no raster.
func (RasterZones) Zone(body *model.Body, latDeg, lonDeg float64) string {
	if body == nil || body.BiomeMap == nil {
		return biome.NoData
	}
	return body.BiomeMap.At(latDeg*math.Pi/180, lonDeg*math.Pi/180).Name
}

// ZoneLabel returns the zone used to tag data, empty when biomes are not
// relevant in sit. A cached landed-at label wins over sampling.
func ZoneLabel(exp *model.Experiment, sit model.Situation, v *model.Vessel, body *model.Body, zones ZoneSampler) string {
	if !exp.BiomeIsRelevantWhile(sit) {
		return ""
	}
	if v.LandedAt != "" {
		return v.LandedAt
	}
	if zones == nil {
		zones = RasterZones{}
	}
	return zones.Zone(body, v.LatitudeDeg, v.LongitudeDeg)
}
