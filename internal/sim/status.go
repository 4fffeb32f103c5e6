package sim

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/surface-survey/model"
)

// InstrumentStatus is a read-only view of one instrument.
type InstrumentStatus struct {
	ID           string `json:"id"`
	VesselID     string `json:"vessel_id"`
	ExperimentID string `json:"experiment_id"`
	PartTitle    string `json:"part_title,omitempty"`
	ToggleLabel  string `json:"toggle_label"`

	Active        bool   `json:"active"`
	Status        string `json:"status"`
	ContainerFull bool   `json:"container_full"`
	Inert         bool   `json:"inert"`

	Situation   string  `json:"situation,omitempty"`
	Zone        string  `json:"zone,omitempty"`
	SubjectID   string  `json:"subject_id,omitempty"`
	Speed       float64 `json:"speed_ms"`
	Coefficient float64 `json:"coefficient"`

	RateModel     string  `json:"rate_model"`
	MaxRecordData float64 `json:"max_record_data"`

	ContainerID string          `json:"container_id,omitempty"`
	Records     int             `json:"records"`
	StoredData  float64         `json:"stored_data"`
	Resources   []ResourceLevel `json:"resources,omitempty"`
}

// VesselStatus is a read-only view of one vessel.
type VesselStatus struct {
	Vessel    model.Vessel    `json:"vessel"`
	Resources []ResourceLevel `json:"resources,omitempty"`
}

// Now is the simulation time of the last processed tick.
func (s *Simulation) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now
}

// Instruments returns the status of every instrument ordered by id.
func (s *Simulation) Instruments() []InstrumentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]InstrumentStatus, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.statusLocked(id))
	}
	return out
}

// Instrument returns the status of a single instrument.
func (s *Simulation) Instrument(id string) (InstrumentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.instruments[id]; !ok {
		return InstrumentStatus{}, fmt.Errorf("%w: %q", ErrInstrumentNotFound, id)
	}
	return s.statusLocked(id), nil
}

func (s *Simulation) statusLocked(id string) InstrumentStatus {
	rt := s.instruments[id]
	cfg := rt.inst.Config()
	st := InstrumentStatus{
		ID:            id,
		VesselID:      rt.vesselID,
		ExperimentID:  cfg.ExperimentID,
		PartTitle:     cfg.PartTitle,
		ToggleLabel:   rt.inst.ToggleLabel(),
		Active:        rt.inst.Active(),
		Status:        rt.inst.Status(),
		ContainerFull: rt.inst.ContainerFull(),
		Inert:         rt.inst.Experiment() == nil,
		Zone:          rt.last.Zone,
		SubjectID:     rt.last.SubjectID,
		Speed:         rt.last.Speed,
		Coefficient:   rt.last.Coefficient,
		MaxRecordData: rt.inst.MaxRecordData(),
	}
	if rt.last.Situation != 0 {
		st.Situation = rt.last.Situation.String()
	}
	if rm := rt.inst.RateModel(); rm != nil {
		st.RateModel = rm.Name()
	}
	if rt.container != nil {
		st.ContainerID = rt.container.ID()
		st.Records = rt.container.Len()
		st.StoredData = rt.container.TotalData()
	}
	if vr, ok := s.vessels[rt.vesselID]; ok {
		st.Resources = vr.tanks.Levels()
	}
	return st
}

// Vessels returns every vessel known to the simulation with its tanks.
func (s *Simulation) Vessels() []VesselStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]VesselStatus, 0, len(s.vesselOrder))
	for _, id := range s.vesselOrder {
		v, err := s.kb.GetVessel(id)
		if err != nil {
			continue
		}
		out = append(out, VesselStatus{Vessel: v, Resources: s.vessels[id].tanks.Levels()})
	}
	return out
}

// Records returns copies of the records held by a container.
func (s *Simulation) Records(containerID string) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[containerID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrContainerNotFound, containerID)
	}
	return c.Snapshot(), nil
}

// Notifications returns the retained notification history, oldest first.
func (s *Simulation) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Notification(nil), s.notifications...)
}
