package core

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/surface-survey/model"
)

var mergeNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testSubject(zone string) model.Subject {
	return model.NewSubject(testExperiment(), model.SrfLanded, "Kerbin", zone)
}

func TestMergeStore_SplitIndependence(t *testing.T) {
	splits := [][]float64{
		{6},
		{1, 2, 3},
		{0.5, 0.5, 0.5, 0.5, 4},
		{3, 3},
	}
	for _, split := range splits {
		c := &memContainer{}
		for _, a := range split {
			if res := MergeStore(c, testSubject("Shores"), a, 10, 1, mergeNow); !res.Stored {
				t.Fatalf("split %v: deposit %v failed", split, a)
			}
		}
		if len(c.records) != 1 {
			t.Fatalf("split %v: %d records, want 1", split, len(c.records))
		}
		if math.Abs(c.records[0].Amount-6) > 1e-12 {
			t.Fatalf("split %v: amount = %v, want 6", split, c.records[0].Amount)
		}
	}
}

func TestMergeStore_CapNeverExceeded(t *testing.T) {
	c := &memContainer{}
	for i := 0; i < 20; i++ {
		MergeStore(c, testSubject(""), 0.7, 5, 1, mergeNow)
		for _, r := range c.records {
			if r.Amount > 5 {
				t.Fatalf("record amount %v exceeds cap", r.Amount)
			}
		}
	}
}

func TestMergeStore_LeftoverWithoutRepeatsFails(t *testing.T) {
	c := &memContainer{}
	MergeStore(c, testSubject(""), 4, 5, 1, mergeNow)

	res := MergeStore(c, testSubject(""), 3, 5, 1, mergeNow)
	if res.Stored {
		t.Fatalf("expected overflow without repeated subjects")
	}
	if len(c.records) != 1 || c.records[0].Amount != 5 {
		t.Fatalf("records = %+v, want single full record", c.records)
	}
	if res.Merged != 1 {
		t.Fatalf("merged = %v, want 1", res.Merged)
	}
}

func TestMergeStore_LeftoverWithRepeatsCreatesRecord(t *testing.T) {
	c := &memContainer{repeated: true}
	MergeStore(c, testSubject(""), 4, 5, 1, mergeNow)

	res := MergeStore(c, testSubject(""), 3, 5, 0.3, mergeNow)
	if !res.Stored || len(res.Created) != 1 {
		t.Fatalf("expected success with one new record, got %+v", res)
	}
	got := []float64{c.records[0].Amount, c.records[1].Amount}
	if diff := cmp.Diff([]float64{5, 2}, got); diff != "" {
		t.Fatalf("amounts mismatch (-want +got):\n%s", diff)
	}
	if c.records[1].TransmitValue != 0.3 {
		t.Fatalf("transmit value = %v, want 0.3", c.records[1].TransmitValue)
	}
}

func TestMergeStore_CapacityMetWithNonMatchingRecord(t *testing.T) {
	c := &memContainer{capacity: 1}
	c.records = append(c.records, model.NewRecord(testSubject("Highlands"), 1, 1, mergeNow))

	res := MergeStore(c, testSubject("Shores"), 1, 10, 1, mergeNow)
	if res.Stored || res.Rejected {
		t.Fatalf("expected plain overflow, got %+v", res)
	}
	if len(c.records) != 1 {
		t.Fatalf("no record should be added, have %d", len(c.records))
	}
}

func TestMergeStore_AdmissionRejected(t *testing.T) {
	c := &memContainer{reject: true}
	res := MergeStore(c, testSubject(""), 1, 10, 1, mergeNow)
	if res.Stored || !res.Rejected {
		t.Fatalf("expected rejection, got %+v", res)
	}
}

func TestMergeStore_NewRecordFields(t *testing.T) {
	c := &memContainer{}
	subject := testSubject("Grasslands")
	res := MergeStore(c, subject, 2.5, 10, 0.75, mergeNow)
	if !res.Stored {
		t.Fatalf("expected success")
	}
	got := *c.records[0]
	got.ID = ""
	want := model.Record{
		SubjectID:     "surfaceSurvey@KerbinSrfLandedGrasslands",
		Title:         "Surface Survey while landed at Kerbin's Grasslands",
		Amount:        2.5,
		TransmitValue: 0.75,
		CreatedAt:     mergeNow,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	if subject.ID != want.SubjectID {
		t.Fatalf("subject id = %q", subject.ID)
	}
}

func TestMergeStore_NonFiniteAmountStoresNothing(t *testing.T) {
	for _, amount := range []float64{math.Inf(1), math.NaN()} {
		c := &memContainer{repeated: true}
		res := MergeStore(c, testSubject("Shores"), amount, 10, 1, mergeNow)
		if res.Stored || len(c.records) != 0 || len(res.Created) != 0 {
			t.Fatalf("amount %v: stored=%v records=%d", amount, res.Stored, len(c.records))
		}
	}
}

func TestMergeStore_NewRecordsPerCallAreBounded(t *testing.T) {
	c := &memContainer{repeated: true}
	res := MergeStore(c, testSubject("Shores"), 1e12, 1, 1, mergeNow)
	if res.Stored {
		t.Fatalf("expected overflow once the per-call record bound is hit")
	}
	if len(c.records) != maxRecordsPerMerge || len(res.Created) != maxRecordsPerMerge {
		t.Fatalf("records = %d created = %d, want %d", len(c.records), len(res.Created), maxRecordsPerMerge)
	}
}
