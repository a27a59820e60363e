// Package series holds the float64 bar series every indicator consumes and produces.
//
// A Series is a value type: constructors copy their input and accessors hand out
// copies, so no operation can mutate another caller's data.
package series

import "math"

// Series is an ordered, optionally named sequence of float64 values, one per bar.
type Series struct {
	Name   string
	values []float64
}

// New creates a series from values. The slice is copied.
func New(name string, values []float64) Series {
	v := make([]float64, len(values))
	copy(v, values)
	return Series{Name: name, values: v}
}

// wrap adopts values without copying. Only for slices the caller owns exclusively.
func wrap(name string, values []float64) Series {
	return Series{Name: name, values: values}
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.values) }

// At returns the value at bar index i.
func (s Series) At(i int) float64 { return s.values[i] }

// Values returns a copy of the underlying values.
func (s Series) Values() []float64 {
	v := make([]float64, len(s.values))
	copy(v, s.values)
	return v
}

// Last returns the most recent value, or 0 for an empty series.
func (s Series) Last() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return s.values[len(s.values)-1]
}

// Rename returns the same values under a new label.
func (s Series) Rename(name string) Series {
	return Series{Name: name, values: s.values}
}

// FirstNonFinite returns the index of the first NaN or Inf value, or -1.
func (s Series) FirstNonFinite() int {
	for i, v := range s.values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

// Builder accumulates values and hands them to a Series without a second copy.
type Builder struct {
	name   string
	values []float64
}

// NewBuilder creates a builder with capacity n.
func NewBuilder(name string, n int) *Builder {
	return &Builder{name: name, values: make([]float64, 0, n)}
}

// Append adds a value.
func (b *Builder) Append(v float64) { b.values = append(b.values, v) }

// Series finalizes the builder. The builder must not be used afterwards.
func (b *Builder) Series() Series {
	s := wrap(b.name, b.values)
	b.values = nil
	return s
}

// FromOwned adopts a freshly allocated slice as a series without copying.
// Callers must not retain or modify values afterwards.
func FromOwned(name string, values []float64) Series {
	return wrap(name, values)
}
