// Package scalarmap holds per-zone numeric settings keyed by body name with a
// distinguished default entry. Lookups never fail: a missing key yields the
// default.
package scalarmap

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/signalsfoundry/surface-survey/internal/logging"
)

// DefaultKey is the entry name that replaces the default value when loaded.
const DefaultKey = "default"

// Number is the set of scalar types a Map can hold.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Codec converts between the textual config representation and T.
type Codec[T Number] struct {
	Parse  func(string) (T, error)
	Format func(T) string
}

// Float64Codec parses and formats with strconv using the shortest
// round-trippable representation. Infinities and NaN are parse errors.
func Float64Codec() Codec[float64] {
	return Codec[float64]{
		Parse: func(s string) (float64, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return 0, err
			}
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return 0, fmt.Errorf("non-finite value %q", s)
			}
			return v, nil
		},
		Format: func(v float64) string {
			return strconv.FormatFloat(v, 'g', -1, 64)
		},
	}
}

// IntCodec parses and formats base-10 integers.
func IntCodec() Codec[int] {
	return Codec[int]{
		Parse: func(s string) (int, error) {
			return strconv.Atoi(strings.TrimSpace(s))
		},
		Format: strconv.Itoa,
	}
}

// Entry is one formatted key/value pair as produced by Save.
type Entry struct {
	Key   string
	Value string
}

// Map is a string-keyed scalar table with a default value.
//
// Map is not safe for concurrent mutation; it is loaded once and then read
// from the tick loop.
type Map[T Number] struct {
	name       string
	defaultKey string
	defaultVal T
	data       map[string]T
	codec      Codec[T]
	log        logging.Logger
}

// Option customises a Map.
type Option[T Number] func(*Map[T])

// WithDefaultKey overrides the entry name treated as the default.
func WithDefaultKey[T Number](key string) Option[T] {
	return func(m *Map[T]) {
		if key != "" {
			m.defaultKey = key
		}
	}
}

// WithLogger attaches a logger for malformed-entry diagnostics.
func WithLogger[T Number](log logging.Logger) Option[T] {
	return func(m *Map[T]) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates an empty map named name (used only in diagnostics).
func New[T Number](name string, defaultValue T, codec Codec[T], opts ...Option[T]) *Map[T] {
	m := &Map[T]{
		name:       name,
		defaultKey: DefaultKey,
		defaultVal: defaultValue,
		data:       make(map[string]T),
		codec:      codec,
		log:        logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// NewFloat64 is New with Float64Codec.
func NewFloat64(name string, defaultValue float64, opts ...Option[float64]) *Map[float64] {
	return New(name, defaultValue, Float64Codec(), opts...)
}

// Default returns the current default value.
func (m *Map[T]) Default() T { return m.defaultVal }

// Get returns the value for key or the default.
func (m *Map[T]) Get(key string) T {
	return m.GetWithDefault(key, m.defaultVal)
}

// GetWithDefault returns the value for key or def.
func (m *Map[T]) GetWithDefault(key string, def T) T {
	if v, ok := m.data[key]; ok {
		return v
	}
	return def
}

// Set stores value under key. Setting the default key replaces the default.
func (m *Map[T]) Set(key string, value T) {
	if key == m.defaultKey {
		m.defaultVal = value
		return
	}
	m.data[key] = value
}

// Len reports the number of non-default entries.
func (m *Map[T]) Len() int { return len(m.data) }

// Keys returns the non-default keys in sorted order.
func (m *Map[T]) Keys() []string {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadDefault parses raw as the new default. An empty string is ignored.
func (m *Map[T]) LoadDefault(raw string) {
	if raw == "" {
		return
	}
	m.defaultVal = m.parse(m.defaultKey, raw)
}

// Load parses every entry in values. The default key is applied first so that
// malformed per-body entries fall back to the configured default. Entries
// that fail to parse are logged and stored as the default.
func (m *Map[T]) Load(values map[string]string) {
	if raw, ok := values[m.defaultKey]; ok {
		m.LoadDefault(raw)
	}
	for key, raw := range values {
		if key == m.defaultKey {
			continue
		}
		m.data[key] = m.parse(key, raw)
	}
}

// Save returns the formatted entries, default key first then sorted keys.
func (m *Map[T]) Save() []Entry {
	out := make([]Entry, 0, len(m.data)+1)
	out = append(out, Entry{Key: m.defaultKey, Value: m.codec.Format(m.defaultVal)})
	for _, k := range m.Keys() {
		out = append(out, Entry{Key: k, Value: m.codec.Format(m.data[k])})
	}
	return out
}

// String renders the map as "default=1 Kerbin=0.5".
func (m *Map[T]) String() string {
	parts := make([]string, 0, len(m.data)+1)
	for _, e := range m.Save() {
		parts = append(parts, fmt.Sprintf("%s=%s", e.Key, e.Value))
	}
	return strings.Join(parts, " ")
}

func (m *Map[T]) parse(key, raw string) T {
	v, err := m.codec.Parse(raw)
	if err != nil {
		m.log.Warn(context.Background(), "could not parse scalar value",
			logging.String("map", m.name),
			logging.String("key", key),
			logging.String("value", raw),
			logging.Err(err),
		)
		return m.defaultVal
	}
	return v
}
