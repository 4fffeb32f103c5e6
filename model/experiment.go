package model

// Experiment is the read-only definition an instrument resolves at start.
type Experiment struct {
	ID    string
	Title string

	BaseValue float64
	DataScale float64

	SituationMask     SituationMask
	BiomeMask         SituationMask
	RequireAtmosphere bool
}

// IsAvailableWhile reports whether the experiment can run in sit around body.
func (e *Experiment) IsAvailableWhile(sit Situation, body *Body) bool {
	if e == nil || !e.SituationMask.Has(sit) {
		return false
	}
	if body == nil {
		return false
	}
	if sit.IsFlying() && !body.HasAtmosphere {
		return false
	}
	if sit == SrfSplashed && !body.HasOcean {
		return false
	}
	if e.RequireAtmosphere && !body.HasAtmosphere {
		return false
	}
	return true
}

// BiomeIsRelevantWhile reports whether data is split by biome in sit.
func (e *Experiment) BiomeIsRelevantWhile(sit Situation) bool {
	return e != nil && e.BiomeMask.Has(sit)
}

// MaxRecordData is the per-record cap for this experiment.
func (e *Experiment) MaxRecordData() float64 {
	if e == nil {
		return 0
	}
	return e.BaseValue * e.DataScale
}
