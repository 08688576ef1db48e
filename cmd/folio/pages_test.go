package main

import (
	"slices"
	"testing"
)

func TestParsePageRanges(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		total   int
		want    []int
		wantErr bool
	}{
		{name: "empty selects all", input: "", total: 3, want: []int{1, 2, 3}},
		{name: "single", input: "2", total: 5, want: []int{2}},
		{name: "range", input: "2-4", total: 5, want: []int{2, 3, 4}},
		{name: "open end", input: "4-", total: 5, want: []int{4, 5}},
		{name: "open start", input: "-2", total: 5, want: []int{1, 2}},
		{name: "mixed and overlapping", input: "5, 1-2,2-3", total: 6, want: []int{1, 2, 3, 5}},
		{name: "out of range", input: "7", total: 5, wantErr: true},
		{name: "zero", input: "0", total: 5, wantErr: true},
		{name: "reversed", input: "4-2", total: 5, wantErr: true},
		{name: "not a number", input: "a-b", total: 5, wantErr: true},
		{name: "only commas", input: ",,", total: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageRanges(tt.input, tt.total)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parsePageRanges(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePageRanges(%q) error = %v", tt.input, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("parsePageRanges(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
