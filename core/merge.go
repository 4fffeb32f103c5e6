package core

import (
	"math"
	"time"

	"github.com/signalsfoundry/surface-survey/model"
)

// maxRecordsPerMerge bounds the records one MergeStore call may create.
const maxRecordsPerMerge = 1024

// MergeResult describes the effect of one MergeStore call.
type MergeResult struct {
	Stored bool
	// Rejected is set when the container refused a new record it had room for.
	Rejected bool
	// Created lists records added to the container.
	Created []*model.Record
	// Merged is the amount added to already stored records.
	Merged float64
}

// MergeStore deposits amount for subject into c. Existing records for the
// subject absorb data up to maxRecordData each; leftover goes into new
// records when the container allows repeated subjects and has room.
// Non-finite amounts store nothing.
func MergeStore(c Container, subject model.Subject, amount, maxRecordData, transmitValue float64, now time.Time) MergeResult {
	var res MergeResult
	if math.IsInf(amount, 0) || math.IsNaN(amount) {
		return res
	}
	data := amount

	for _, rec := range c.Records() {
		if rec == nil || rec.SubjectID != subject.ID {
			continue
		}
		before := rec.Amount
		sum := rec.Amount + data
		rec.Amount = math.Min(maxRecordData, sum)
		if rec.Amount < before {
			rec.Amount = before
		}
		res.Merged += rec.Amount - before
		data = sum - rec.Amount

		if data <= 0 {
			res.Stored = true
			return res
		}
		if !c.AllowRepeatedSubjects() {
			return res
		}
	}

	if !(maxRecordData > 0) {
		return res
	}

	for n := 0; data > 0; n++ {
		if n == maxRecordsPerMerge {
			return res
		}
		if capacity := c.Capacity(); capacity > 0 && len(c.Records()) >= capacity {
			return res
		}
		chunk := math.Min(data, maxRecordData)
		rec := model.NewRecord(subject, chunk, transmitValue, now)
		if !c.Admit(rec) {
			res.Rejected = true
			return res
		}
		res.Created = append(res.Created, rec)
		data -= chunk

		if data > 0 && !c.AllowRepeatedSubjects() {
			return res
		}
	}

	res.Stored = true
	return res
}
