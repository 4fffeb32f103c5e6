package model

import (
	"fmt"
	"strings"
)

// VesselSituation is the host simulation's flight state for a vessel.
type VesselSituation int

const (
	VesselLanded VesselSituation = iota
	VesselPrelaunch
	VesselSplashed
	VesselFlying
	VesselSubOrbital
	VesselOrbiting
	VesselEscaping
	VesselDocked
)

var vesselSituationNames = map[VesselSituation]string{
	VesselLanded:     "LANDED",
	VesselPrelaunch:  "PRELAUNCH",
	VesselSplashed:   "SPLASHED",
	VesselFlying:     "FLYING",
	VesselSubOrbital: "SUB_ORBITAL",
	VesselOrbiting:   "ORBITING",
	VesselEscaping:   "ESCAPING",
	VesselDocked:     "DOCKED",
}

func (s VesselSituation) String() string {
	if name, ok := vesselSituationNames[s]; ok {
		return name
	}
	return fmt.Sprintf("VesselSituation(%d)", int(s))
}

// ParseVesselSituation accepts the String() form case-insensitively.
func ParseVesselSituation(s string) (VesselSituation, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for sit, name := range vesselSituationNames {
		if name == want {
			return sit, nil
		}
	}
	return 0, fmt.Errorf("unknown vessel situation %q", s)
}

// Situation is the discrete environmental regime used to tag science data.
// Values are bit flags so experiments can declare masks.
type Situation uint8

const (
	SrfLanded   Situation = 1 << iota // on solid ground
	SrfSplashed                       // in water
	FlyingLow
	FlyingHigh
	InSpaceLow
	InSpaceHigh
)

// AllSituations lists every situation in declaration order.
var AllSituations = []Situation{SrfLanded, SrfSplashed, FlyingLow, FlyingHigh, InSpaceLow, InSpaceHigh}

func (s Situation) String() string {
	switch s {
	case SrfLanded:
		return "SrfLanded"
	case SrfSplashed:
		return "SrfSplashed"
	case FlyingLow:
		return "FlyingLow"
	case FlyingHigh:
		return "FlyingHigh"
	case InSpaceLow:
		return "InSpaceLow"
	case InSpaceHigh:
		return "InSpaceHigh"
	default:
		return fmt.Sprintf("Situation(%d)", uint8(s))
	}
}

// Phrase renders the situation for subject titles.
func (s Situation) Phrase() string {
	switch s {
	case SrfLanded:
		return "landed"
	case SrfSplashed:
		return "splashed down"
	case FlyingLow:
		return "flying low"
	case FlyingHigh:
		return "flying high"
	case InSpaceLow:
		return "in space near"
	case InSpaceHigh:
		return "in space high over"
	default:
		return strings.ToLower(s.String())
	}
}

// IsFlying reports whether s is an atmospheric situation.
func (s Situation) IsFlying() bool { return s == FlyingLow || s == FlyingHigh }

// ParseSituation accepts the String() form case-insensitively.
func ParseSituation(s string) (Situation, error) {
	for _, sit := range AllSituations {
		if strings.EqualFold(sit.String(), strings.TrimSpace(s)) {
			return sit, nil
		}
	}
	return 0, fmt.Errorf("unknown situation %q", s)
}

// SituationMask is a set of situations.
type SituationMask uint8

// MaskOf builds a mask from situations.
func MaskOf(sits ...Situation) SituationMask {
	var m SituationMask
	for _, s := range sits {
		m |= SituationMask(s)
	}
	return m
}

// Has reports whether s is in the mask.
func (m SituationMask) Has(s Situation) bool { return m&SituationMask(s) != 0 }

// ParseSituationMask parses names such as ["SrfLanded", "FlyingLow"].
func ParseSituationMask(names []string) (SituationMask, error) {
	var m SituationMask
	for _, n := range names {
		s, err := ParseSituation(n)
		if err != nil {
			return 0, err
		}
		m |= SituationMask(s)
	}
	return m, nil
}

// MarshalText renders the situation name in JSON and YAML output.
func (s VesselSituation) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
