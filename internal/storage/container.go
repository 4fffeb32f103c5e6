package storage

import (
	"github.com/signalsfoundry/surface-survey/model"
)

// ScienceContainer is an in-memory record store attached to a part. It is
// not safe for concurrent use; the simulation serialises access.
type ScienceContainer struct {
	id            string
	capacity      int
	allowRepeated bool
	records       []*model.Record
	dirty         map[string]struct{}
}

// NewScienceContainer creates an empty container. capacity 0 is unlimited.
func NewScienceContainer(id string, capacity int, allowRepeated bool) *ScienceContainer {
	if capacity < 0 {
		capacity = 0
	}
	return &ScienceContainer{
		id:            id,
		capacity:      capacity,
		allowRepeated: allowRepeated,
		dirty:         make(map[string]struct{}),
	}
}

func (c *ScienceContainer) ID() string                  { return c.id }
func (c *ScienceContainer) Capacity() int               { return c.capacity }
func (c *ScienceContainer) AllowRepeatedSubjects() bool { return c.allowRepeated }

// Records returns the live records. Callers may raise Amount in place; use
// MarkDirty or Snapshot afterwards.
func (c *ScienceContainer) Records() []*model.Record { return c.records }

// Len is the number of stored records.
func (c *ScienceContainer) Len() int { return len(c.records) }

// Admit adds r unless the container is full or already holds the subject
// without allowing repeats.
func (c *ScienceContainer) Admit(r *model.Record) bool {
	if r == nil || !(r.Amount > 0) {
		return false
	}
	if c.capacity > 0 && len(c.records) >= c.capacity {
		return false
	}
	if !c.allowRepeated {
		for _, existing := range c.records {
			if existing.SubjectID == r.SubjectID {
				return false
			}
		}
	}
	c.records = append(c.records, r)
	c.dirty[r.ID] = struct{}{}
	return true
}

// Restore loads previously persisted records without admission checks.
func (c *ScienceContainer) Restore(records []*model.Record) {
	c.records = append(c.records[:0], records...)
}

// MarkDirty flags records of subjectID as changed since the last Drain.
func (c *ScienceContainer) MarkDirty(subjectID string) {
	for _, r := range c.records {
		if r.SubjectID == subjectID {
			c.dirty[r.ID] = struct{}{}
		}
	}
}

// Drain returns copies of records changed since the previous call.
func (c *ScienceContainer) Drain() []model.Record {
	if len(c.dirty) == 0 {
		return nil
	}
	out := make([]model.Record, 0, len(c.dirty))
	for _, r := range c.records {
		if _, ok := c.dirty[r.ID]; ok {
			out = append(out, *r)
		}
	}
	clear(c.dirty)
	return out
}

// Snapshot returns copies of all records.
func (c *ScienceContainer) Snapshot() []model.Record {
	out := make([]model.Record, len(c.records))
	for i, r := range c.records {
		out[i] = *r
	}
	return out
}

// Remove deletes the record with id and reports whether it existed.
func (c *ScienceContainer) Remove(id string) bool {
	for i, r := range c.records {
		if r.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			delete(c.dirty, id)
			return true
		}
	}
	return false
}

// TotalData sums the stored amounts.
func (c *ScienceContainer) TotalData() float64 {
	var sum float64
	for _, r := range c.records {
		sum += r.Amount
	}
	return sum
}
