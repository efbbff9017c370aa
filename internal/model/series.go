package model

import "math"

// Value is a numeric point that may be undefined, e.g. inside an indicator's
// warm-up window or after a division by zero.
type Value struct {
	V  float64
	OK bool
}

// Defined wraps a known number. NaN and infinities are stored as undefined.
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, OK: true}
}

// Undefined is the zero Value.
var Undefined = Value{}

// Series is an index-aligned sequence of optional numbers.
type Series []Value

// SeriesOf wraps a fully defined slice.
func SeriesOf(vals []float64) Series {
	s := make(Series, len(vals))
	for i, v := range vals {
		s[i] = Defined(v)
	}
	return s
}

// FirstDefined returns the index of the first defined value, or -1.
func (s Series) FirstDefined() int {
	for i, v := range s {
		if v.OK {
			return i
		}
	}
	return -1
}

// Oscillator is the Wave Trend pair aligned to a PriceSeries.
type Oscillator struct {
	WT1 Series
	WT2 Series
}
