package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRange = errors.New("invalid range")
	ErrUnknownRange = errors.New("unknown range field")
)

// RangeField names one of the numeric ranges of a State.
type RangeField string

const (
	PriceRange            RangeField = "price"
	AreaRange             RangeField = "area"
	ConstructionYearRange RangeField = "constructionYear"
	CeilingHeightRange    RangeField = "ceilingHeight"
)

// RangeFields lists every range of a State.
var RangeFields = []RangeField{PriceRange, AreaRange, ConstructionYearRange, CeilingHeightRange}

// Range is a pair of numeric bounds kept as the text the user typed.
// An empty bound is open.
type Range struct {
	Min string
	Max string
}

// IsZero reports whether both bounds are open.
func (r Range) IsZero() bool {
	return r.Min == "" && r.Max == ""
}

// Bounds parses both bounds. Open bounds are nil.
func (r Range) Bounds() (min, max *decimal.Decimal, err error) {
	if min, err = ParseBound(r.Min); err != nil {
		return nil, nil, err
	}
	if max, err = ParseBound(r.Max); err != nil {
		return nil, nil, err
	}
	return min, max, nil
}

// Validate checks that both bounds are numeric and min <= max.
func (r Range) Validate() error {
	min, max, err := r.Bounds()
	if err != nil {
		return err
	}
	if min != nil && max != nil && min.GreaterThan(*max) {
		return fmt.Errorf("%w: min %s is greater than max %s", ErrInvalidRange, min, max)
	}
	return nil
}

// ParseBound parses a single bound. The empty string is an open bound.
func ParseBound(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidRange, s)
	}
	return &d, nil
}
