package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"strconv"
)

const (
	numKindInt = "int/1"
	numKindRat = "rat/1"
)

var errNumericKind = errors.New("unexpected numeric kind")

// Int is a tagged unsigned integer: {"@num":"int/1","v":"<decimal>"}.
type Int struct {
	Kind  string `json:"@num"`
	Value string `json:"v"`
}

// Rat is a tagged rational: {"@num":"rat/1","p":"<decimal>","q":"<decimal>"}.
type Rat struct {
	Kind string `json:"@num"`
	P    string `json:"p"`
	Q    string `json:"q"`
}

// NewInt wraps v as a tagged integer.
func NewInt(v uint64) Int {
	return Int{Kind: numKindInt, Value: strconv.FormatUint(v, 10)}
}

// NewRat wraps p/q as a tagged rational.
func NewRat(p, q uint64) Rat {
	return Rat{Kind: numKindRat, P: strconv.FormatUint(p, 10), Q: strconv.FormatUint(q, 10)}
}

// Uint64 parses the decimal value.
func (i Int) Uint64() (uint64, error) {
	if i.Kind != numKindInt {
		return 0, fmt.Errorf("%w %q", errNumericKind, i.Kind)
	}
	return strconv.ParseUint(i.Value, 10, 64)
}

func (i *Int) UnmarshalJSON(data []byte) error {
	type plain Int
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Kind != numKindInt {
		return fmt.Errorf("%w %q, want %q", errNumericKind, v.Kind, numKindInt)
	}
	*i = Int(v)
	return nil
}

// Parts parses numerator and denominator.
func (r Rat) Parts() (uint64, uint64, error) {
	p, err := strconv.ParseUint(r.P, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	q, err := strconv.ParseUint(r.Q, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return p, q, nil
}

func (r *Rat) UnmarshalJSON(data []byte) error {
	type plain Rat
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Kind != numKindRat {
		return fmt.Errorf("%w %q, want %q", errNumericKind, v.Kind, numKindRat)
	}
	*r = Rat(v)
	return nil
}

// TicksPerFrame returns round(timebase*fpsDen/fpsNum), rounding half away
// from zero, saturating on overflow and never below one tick.
func TicksPerFrame(fpsNum, fpsDen uint32, timebase uint64) uint64 {
	if fpsNum == 0 {
		return 1
	}
	num := SaturatingMul(timebase, uint64(fpsDen))
	den := uint64(fpsNum)
	return max(SaturatingAdd(num, den/2)/den, 1)
}

// SaturatingMul returns a*b clamped to the uint64 range.
func SaturatingMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return ^uint64(0)
	}
	return lo
}

// SaturatingAdd returns a+b clamped to the uint64 range.
func SaturatingAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return sum
}
