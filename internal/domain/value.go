package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is an optional numeric reading. The zero Value is missing, so a
// forgotten assignment can never masquerade as a genuine 0 nT.
type Value struct {
	v     float64
	valid bool
}

// Some returns a present Value. NaN and infinities are not valid readings and
// yield a missing Value.
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, valid: true}
}

// Missing returns the missing Value.
func Missing() Value { return Value{} }

// FromPtr converts a nullable float into a Value.
func FromPtr(p *float64) Value {
	if p == nil {
		return Value{}
	}
	return Some(*p)
}

// Valid reports whether the reading is present.
func (v Value) Valid() bool { return v.valid }

// Get returns the reading and whether it is present.
func (v Value) Get() (float64, bool) { return v.v, v.valid }

// Ptr returns a pointer to a copy of the reading, or nil when missing.
func (v Value) Ptr() *float64 {
	if !v.valid {
		return nil
	}
	f := v.v
	return &f
}

// Add returns v+o, missing if either operand is missing.
func (v Value) Add(o Value) Value {
	if !v.valid || !o.valid {
		return Value{}
	}
	return Some(v.v + o.v)
}

// Sub returns v-o, missing if either operand is missing.
func (v Value) Sub(o Value) Value {
	if !v.valid || !o.valid {
		return Value{}
	}
	return Some(v.v - o.v)
}

// Scale returns v*f, missing if v is missing.
func (v Value) Scale(f float64) Value {
	if !v.valid {
		return Value{}
	}
	return Some(v.v * f)
}

// String renders the reading, or "NA" when missing.
func (v Value) String() string {
	if !v.valid {
		return "NA"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

// MarshalJSON encodes a missing Value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON decodes null as a missing Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var p *float64
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = FromPtr(p)
	return nil
}

// mean accumulates the arithmetic mean of present values.
type mean struct {
	sum   float64
	count int
}

func (m *mean) add(v Value) {
	if f, ok := v.Get(); ok {
		m.sum += f
		m.count++
	}
}

func (m mean) value() Value {
	if m.count == 0 {
		return Value{}
	}
	return Some(m.sum / float64(m.count))
}
