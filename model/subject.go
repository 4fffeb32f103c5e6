package model

import (
	"fmt"
	"strings"
)

// Subject identifies a distinct science data category: experiment,
// situation, body and zone.
type Subject struct {
	ID    string
	Title string

	ExperimentID string
	Situation    Situation
	Body         string
	Zone         string
}

// NewSubject derives the subject for exp in sit at body, optionally split by zone.
func NewSubject(exp *Experiment, sit Situation, body, zone string) Subject {
	zoneKey := strings.ReplaceAll(zone, " ", "")
	id := fmt.Sprintf("%s@%s%s%s", exp.ID, body, sit, zoneKey)

	title := fmt.Sprintf("%s while %s %s", exp.Title, sit.Phrase(), body)
	if zone != "" {
		title = fmt.Sprintf("%s while %s at %s's %s", exp.Title, sit.Phrase(), body, zone)
	}

	return Subject{
		ID:           id,
		Title:        title,
		ExperimentID: exp.ID,
		Situation:    sit,
		Body:         body,
		Zone:         zone,
	}
}
