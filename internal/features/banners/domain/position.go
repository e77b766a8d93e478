package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// PositionPrecision is the total number of significant digits a position may carry.
	PositionPrecision = 20
	// PositionScale is the number of fractional digits a position may carry.
	PositionScale = 10
	// FirstSequenceValue is the first value issued by the position sequence.
	FirstSequenceValue = 1001

	integerDigits = PositionPrecision - PositionScale
	sortKeyLength = PositionPrecision + 1
)

var (
	two          = decimal.NewFromInt(2)
	upperLimit   = decimal.New(1, integerDigits)
	errBadBounds = errors.New("lower bound is not below upper bound")
)

// Position is an exact decimal ordering key. The zero value is 0.
type Position struct {
	d decimal.Decimal
}

// NewPosition returns the integral position v.
func NewPosition(v int64) Position {
	return Position{d: decimal.NewFromInt(v)}
}

// ParsePosition parses a decimal string such as "1001.75".
func ParsePosition(s string) (Position, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Position{}, fmt.Errorf("invalid position %q: %w", s, err)
	}
	p := Position{d: d}
	if err := p.validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}

// MustParsePosition is ParsePosition that panics on error.
func MustParsePosition(s string) Position {
	p, err := ParsePosition(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Decimal exposes the underlying decimal value.
func (p Position) Decimal() decimal.Decimal {
	return p.d
}

// String returns the shortest exact representation, e.g. "1001.5".
func (p Position) String() string {
	return p.d.String()
}

// Cmp compares p and o and returns -1, 0 or +1.
func (p Position) Cmp(o Position) int {
	return p.d.Cmp(o.d)
}

// Equal reports whether p and o denote the same value.
func (p Position) Equal(o Position) bool {
	return p.d.Equal(o.d)
}

// LessThan reports whether p sorts before o.
func (p Position) LessThan(o Position) bool {
	return p.d.LessThan(o.d)
}

func (p Position) validate() error {
	if p.d.IsNegative() {
		return fmt.Errorf("position %s is negative", p)
	}
	if p.d.Cmp(upperLimit) >= 0 {
		return fmt.Errorf("position %s exceeds %d integer digits: %w", p, integerDigits, ErrPrecisionExhausted)
	}
	if !p.d.Equal(p.d.Round(PositionScale)) {
		return fmt.Errorf("position %s exceeds %d fractional digits: %w", p, PositionScale, ErrPrecisionExhausted)
	}
	return nil
}

// Midpoint returns the value halfway between lo and hi, rounded to PositionScale.
// It fails with ErrPrecisionExhausted when the rounded value is not strictly inside (lo, hi).
func Midpoint(lo, hi Position) (Position, error) {
	if lo.Cmp(hi) >= 0 {
		return Position{}, fmt.Errorf("midpoint of %s and %s: %w", lo, hi, errBadBounds)
	}
	mid := lo.d.Add(hi.d).Div(two).Round(PositionScale)
	if mid.Cmp(lo.d) <= 0 || mid.Cmp(hi.d) >= 0 {
		return Position{}, fmt.Errorf("no room between %s and %s: %w", lo, hi, ErrPrecisionExhausted)
	}
	return Position{d: mid}, nil
}

// SortKey renders p as a fixed-width string "IIIIIIIIII.FFFFFFFFFF" whose
// lexicographic order matches numeric order.
func (p Position) SortKey() (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	fixed := p.d.StringFixed(PositionScale)
	intPart, frac, _ := strings.Cut(fixed, ".")
	return strings.Repeat("0", integerDigits-len(intPart)) + intPart + "." + frac, nil
}

// ParseSortKey is the inverse of SortKey.
func ParseSortKey(key string) (Position, error) {
	if len(key) != sortKeyLength || key[integerDigits] != '.' {
		return Position{}, fmt.Errorf("malformed position key %q", key)
	}
	return ParsePosition(key)
}

// Value implements driver.Valuer using the sort key, so SQL comparisons on
// a text column follow numeric order.
func (p Position) Value() (driver.Value, error) {
	return p.SortKey()
}

// Scan implements sql.Scanner.
func (p *Position) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParsePosition(v)
		if err != nil {
			return err
		}
		*p = parsed
	case []byte:
		parsed, err := ParsePosition(string(v))
		if err != nil {
			return err
		}
		*p = parsed
	case nil:
		*p = Position{}
	default:
		return fmt.Errorf("cannot scan %T into Position", src)
	}
	return nil
}

// MarshalJSON encodes the position as a string to keep every digit.
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (p *Position) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParsePosition(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
