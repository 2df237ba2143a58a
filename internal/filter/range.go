package filter

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RangeFilter implements the spec's ordered metadata operators (<, <=, >,
// >=, and the inclusive between Min/Max combines). Document.Metadata is
// map[string]string, so every bound this filter compares against a stored
// value parses both sides as float64 rather than doing a type switch over
// Go's numeric kinds: the value coming in from storage is always a string,
// and the bound a caller supplies (an int literal, a float, another string)
// only matters insofar as it can be parsed the same way.
type RangeFilter struct {
	Field string
	Min   interface{} // nil means no lower bound
	Max   interface{} // nil means no upper bound
}

// NewRangeFilter creates a new range filter
func NewRangeFilter(field string, min, max interface{}) *RangeFilter {
	return &RangeFilter{
		Field: field,
		Min:   min,
		Max:   max,
	}
}

// NewGreaterThanFilter creates a filter for values greater than or equal to
// the specified value (the bound is inclusive, rendered as ">=")
func NewGreaterThanFilter(field string, value interface{}) *RangeFilter {
	return &RangeFilter{
		Field: field,
		Min:   value,
		Max:   nil,
	}
}

// NewLessThanFilter creates a filter for values less than or equal to the
// specified value (the bound is inclusive, rendered as "<=")
func NewLessThanFilter(field string, value interface{}) *RangeFilter {
	return &RangeFilter{
		Field: field,
		Min:   nil,
		Max:   value,
	}
}

// NewBetweenFilter creates a filter for values between min and max (inclusive)
func NewBetweenFilter(field string, min, max interface{}) *RangeFilter {
	return &RangeFilter{
		Field: field,
		Min:   min,
		Max:   max,
	}
}

// Apply filters entries whose field value falls within the specified range.
// A value that exists but fails to parse as float64 excludes the entry
// rather than passing it through, per the ordered-operator binding decision:
// parse failure makes the predicate false, never true.
func (f *RangeFilter) Apply(ctx context.Context, entries []*DocumentEntry) ([]*DocumentEntry, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var result []*DocumentEntry
	for _, entry := range entries {
		if entry.Metadata == nil {
			continue
		}

		fieldValue, exists := entry.Metadata[f.Field]
		if !exists {
			continue
		}

		if f.valueInRange(fieldValue) {
			result = append(result, entry)
		}
	}

	return result, nil
}

// Validate checks if the filter configuration is valid
func (f *RangeFilter) Validate() error {
	if f.Field == "" {
		return NewFilterError("range", f.Field, "field name cannot be empty")
	}

	if f.Min == nil && f.Max == nil {
		return NewFilterError("range", f.Field, "at least one bound (min or max) must be specified")
	}

	if f.Min != nil {
		if _, ok := toFloat64(f.Min); !ok {
			return NewFilterError("range", f.Field, fmt.Sprintf("min value %v does not parse as a number", f.Min))
		}
	}
	if f.Max != nil {
		if _, ok := toFloat64(f.Max); !ok {
			return NewFilterError("range", f.Field, fmt.Sprintf("max value %v does not parse as a number", f.Max))
		}
	}

	if f.Min != nil && f.Max != nil {
		cmp, ok := compareValues(f.Min, f.Max)
		if ok && cmp > 0 {
			return NewFilterError("range", f.Field, "min value must be less than or equal to max value")
		}
	}

	return nil
}

// EstimateSelectivity returns selectivity estimate based on range bounds
func (f *RangeFilter) EstimateSelectivity() float64 {
	if f.Min != nil && f.Max != nil {
		return 0.3 // Both bounds: moderate selectivity
	}
	return 0.5 // Single bound: lower selectivity
}

// String returns a string representation of the filter
func (f *RangeFilter) String() string {
	if f.Min != nil && f.Max != nil {
		return fmt.Sprintf("%s BETWEEN %v AND %v", f.Field, f.Min, f.Max)
	} else if f.Min != nil {
		return fmt.Sprintf("%s >= %v", f.Field, f.Min)
	} else {
		return fmt.Sprintf("%s <= %v", f.Field, f.Max)
	}
}

// valueInRange checks if value falls within the filter's range. A parse
// failure against either bound excludes the value.
func (f *RangeFilter) valueInRange(value interface{}) bool {
	if f.Min != nil {
		cmp, ok := compareValues(value, f.Min)
		if !ok || cmp < 0 {
			return false
		}
	}

	if f.Max != nil {
		cmp, ok := compareValues(value, f.Max)
		if !ok || cmp > 0 {
			return false
		}
	}

	return true
}

// compareValues parses a and b as float64 and compares them numerically.
// The second return is false when either side fails to parse, the signal
// valueInRange treats as "exclude this entry" rather than "equal".
func compareValues(a, b interface{}) (int, bool) {
	aNum, aOk := toFloat64(a)
	if !aOk {
		return 0, false
	}
	bNum, bOk := toFloat64(b)
	if !bOk {
		return 0, false
	}

	switch {
	case aNum < bNum:
		return -1, true
	case aNum > bNum:
		return 1, true
	default:
		return 0, true
	}
}

// toFloat64 parses v as float64. Metadata values arrive as plain Go strings
// (Document.Metadata is map[string]string), so a numeric string like "42"
// must parse the same as the int 42 a caller passes as a filter bound. A
// time.Time (what FilterParser produces for a TimeField) maps to its Unix
// nanosecond instant, so time bounds compare chronologically.
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case time.Time:
		return float64(val.UnixNano()), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
