package filter

import (
	"context"
	"testing"
)

func TestSubstringFilter_Apply(t *testing.T) {
	ctx := context.Background()

	entries := []*DocumentEntry{
		{ID: 1, Metadata: map[string]interface{}{"title": "introduction to graphs"}},
		{ID: 2, Metadata: map[string]interface{}{"title": "advanced graph theory"}},
		{ID: 3, Metadata: map[string]interface{}{"title": "cooking basics"}},
		{ID: 4, Metadata: nil},
		{ID: 5, Metadata: map[string]interface{}{"other": "value"}},
	}

	tests := []struct {
		name     string
		filter   *SubstringFilter
		expected []int32
	}{
		{
			name:     "matches substring",
			filter:   NewContainsFilter("title", "graph"),
			expected: []int32{1, 2},
		},
		{
			name:     "no match",
			filter:   NewContainsFilter("title", "nonexistent"),
			expected: []int32{},
		},
		{
			name:     "negated filter",
			filter:   NewNotContainsFilter("title", "graph"),
			expected: []int32{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.filter.Apply(ctx, entries)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}

			if len(result) != len(tt.expected) {
				t.Errorf("Apply() returned %d results, expected %d", len(result), len(tt.expected))
			}

			resultIDs := make(map[int32]bool)
			for _, entry := range result {
				resultIDs[entry.ID] = true
			}
			for _, expectedID := range tt.expected {
				if !resultIDs[expectedID] {
					t.Errorf("Apply() missing expected ID %d", expectedID)
				}
			}
		})
	}
}

func TestSubstringFilter_Validate(t *testing.T) {
	if err := NewContainsFilter("", "x").Validate(); err == nil {
		t.Error("expected error for empty field name")
	}
	if err := NewContainsFilter("title", "x").Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSubstringFilter_String(t *testing.T) {
	f := NewContainsFilter("title", "graph")
	expected := `title CONTAINS "graph"`
	if f.String() != expected {
		t.Errorf("String() = %s, want %s", f.String(), expected)
	}
}
