package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Keyframe is one control point of a FloatCurve.
type Keyframe struct {
	Time       float64
	Value      float64
	InTangent  float64
	OutTangent float64
}

// FloatCurve is a piecewise cubic Hermite curve. Inputs outside the key
// domain clamp to the first or last value.
type FloatCurve struct {
	keys []Keyframe
}

// NewFloatCurve builds a curve from keys in any order.
func NewFloatCurve(keys ...Keyframe) FloatCurve {
	c := FloatCurve{keys: append([]Keyframe(nil), keys...)}
	sort.SliceStable(c.keys, func(i, j int) bool { return c.keys[i].Time < c.keys[j].Time })
	return c
}

// Add inserts a key with flat tangents.
func (c *FloatCurve) Add(time, value float64) {
	c.AddKey(Keyframe{Time: time, Value: value})
}

// AddKey inserts a key, keeping keys ordered by time.
func (c *FloatCurve) AddKey(k Keyframe) {
	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Time > k.Time })
	c.keys = append(c.keys, Keyframe{})
	copy(c.keys[i+1:], c.keys[i:])
	c.keys[i] = k
}

// Keys returns a copy of the curve's keys.
func (c FloatCurve) Keys() []Keyframe { return append([]Keyframe(nil), c.keys...) }

// MinTime is the first key's time, or 0 for an empty curve.
func (c FloatCurve) MinTime() float64 {
	if len(c.keys) == 0 {
		return 0
	}
	return c.keys[0].Time
}

// MaxTime is the last key's time, or 0 for an empty curve.
func (c FloatCurve) MaxTime() float64 {
	if len(c.keys) == 0 {
		return 0
	}
	return c.keys[len(c.keys)-1].Time
}

// Degenerate reports a zero-width domain.
func (c FloatCurve) Degenerate() bool { return !(c.MinTime() < c.MaxTime()) }

// Evaluate returns the curve value at x.
func (c FloatCurve) Evaluate(x float64) float64 {
	n := len(c.keys)
	switch {
	case n == 0:
		return 0
	case x <= c.keys[0].Time:
		return c.keys[0].Value
	case x >= c.keys[n-1].Time:
		return c.keys[n-1].Value
	}

	i := sort.Search(n, func(i int) bool { return c.keys[i].Time > x })
	k0, k1 := c.keys[i-1], c.keys[i]
	dt := k1.Time - k0.Time
	if dt == 0 {
		return k1.Value
	}
	s := (x - k0.Time) / dt
	s2 := s * s
	s3 := s2 * s

	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	return h00*k0.Value + h10*dt*k0.OutTangent + h01*k1.Value + h11*dt*k1.InTangent
}

// ParseKeyframe parses "time value [inTangent outTangent]".
func ParseKeyframe(s string) (Keyframe, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 && len(fields) != 4 {
		return Keyframe{}, fmt.Errorf("key %q: want 2 or 4 numbers, got %d", s, len(fields))
	}
	nums := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Keyframe{}, fmt.Errorf("key %q: %w", s, err)
		}
		nums[i] = v
	}
	k := Keyframe{Time: nums[0], Value: nums[1]}
	if len(nums) == 4 {
		k.InTangent, k.OutTangent = nums[2], nums[3]
	}
	return k, nil
}

// ParseFloatCurve parses one key per entry.
func ParseFloatCurve(lines []string) (FloatCurve, error) {
	var c FloatCurve
	for _, line := range lines {
		k, err := ParseKeyframe(line)
		if err != nil {
			return FloatCurve{}, err
		}
		c.AddKey(k)
	}
	return c, nil
}
