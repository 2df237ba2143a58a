package filter

import (
	"context"
	"fmt"
	"strings"
)

// SubstringFilter implements the spec's `contains` metadata operator: a
// substring test against a single string-valued field. This is distinct
// from ContainmentFilter's ContainsAny/ContainsAll, which test whether a
// multi-valued (array) field contains given elements -- a teacher feature
// with no equivalent in spec.md's filter model. SubstringFilter is the
// operator spec.md §4.8 actually names.
type SubstringFilter struct {
	Field  string
	Substr string
	Negate bool // true implements "not contains"
}

// NewContainsFilter creates a filter matching entries whose field value
// contains substr.
func NewContainsFilter(field, substr string) *SubstringFilter {
	return &SubstringFilter{Field: field, Substr: substr}
}

// NewNotContainsFilter creates a filter matching entries whose field value
// does not contain substr.
func NewNotContainsFilter(field, substr string) *SubstringFilter {
	return &SubstringFilter{Field: field, Substr: substr, Negate: true}
}

// Apply filters entries whose stringified field value contains (or, when
// Negate is set, does not contain) Substr.
func (f *SubstringFilter) Apply(ctx context.Context, entries []*DocumentEntry) ([]*DocumentEntry, error) {
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

		matches := strings.Contains(fmt.Sprint(fieldValue), f.Substr)
		if matches != f.Negate {
			result = append(result, entry)
		}
	}

	return result, nil
}

// Validate checks if the filter configuration is valid
func (f *SubstringFilter) Validate() error {
	if f.Field == "" {
		return NewFilterError("contains", f.Field, "field name cannot be empty")
	}
	return nil
}

// EstimateSelectivity returns a conservative selectivity estimate: a
// substring test is more permissive than equality but still narrows the
// candidate set.
func (f *SubstringFilter) EstimateSelectivity() float64 {
	return 0.3
}

// String returns a string representation of the filter
func (f *SubstringFilter) String() string {
	if f.Negate {
		return fmt.Sprintf("%s NOT CONTAINS %q", f.Field, f.Substr)
	}
	return fmt.Sprintf("%s CONTAINS %q", f.Field, f.Substr)
}
