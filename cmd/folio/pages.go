package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// parsePageRanges parses a selection such as "1-3,7,10-" against a
// document of total pages. An empty selection means every page.
func parsePageRanges(s string, total int) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := pageBound(lo, 1, total)
		if err != nil {
			return nil, fmt.Errorf("invalid page range %q: %w", part, err)
		}
		end := start
		if isRange {
			if end, err = pageBound(hi, total, total); err != nil {
				return nil, fmt.Errorf("invalid page range %q: %w", part, err)
			}
		}
		if start > end {
			return nil, fmt.Errorf("invalid page range %q: start after end", part)
		}
		for n := start; n <= end; n++ {
			seen[n] = true
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no pages selected")
	}

	pages := make([]int, 0, len(seen))
	for n := range seen {
		pages = append(pages, n)
	}
	slices.Sort(pages)
	return pages, nil
}

func pageBound(s string, empty, total int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return empty, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if n < 1 || n > total {
		return 0, fmt.Errorf("page %d out of range 1-%d", n, total)
	}
	return n, nil
}
