// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return def
}

// ClampPage bounds a requested page and page size: page >= 1 and
// 1 <= pageSize <= maxSize. Zero or negative sizes fall back to def.
func ClampPage(page, pageSize, def, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = def
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

// TotalPages is ceil(total / pageSize), 0 when pageSize is not positive.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// ErrBadSelection is returned by ParseIndices for malformed input.
var ErrBadSelection = errors.New("invalid page selection")

// ParseIndices parses a page selection such as "0,2,5-7" into ascending,
// zero-based indices. Ranges are inclusive. Duplicates are reported as
// errors, not merged, so callers see exactly what the client meant. limit
// caps how many indices a selection may expand to (0 means no cap).
//
//	utils.ParseIndices("3,0-1", 0) // [0 1 3]
func ParseIndices(s string, limit int) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadSelection)
	}
	var out []int
	seen := map[int]struct{}{}
	add := func(i int) error {
		if _, dup := seen[i]; dup {
			return fmt.Errorf("%w: page %d listed twice", ErrBadSelection, i)
		}
		if limit > 0 && len(out) >= limit {
			return fmt.Errorf("%w: more than %d pages", ErrBadSelection, limit)
		}
		seen[i] = struct{}{}
		out = append(out, i)
		return nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || from < 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadSelection, part)
		}
		to := from
		if isRange {
			to, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || to < from {
				return nil, fmt.Errorf("%w: %q", ErrBadSelection, part)
			}
		}
		for i := from; i <= to; i++ {
			if err := add(i); err != nil {
				return nil, err
			}
		}
	}
	slices.Sort(out)
	return out, nil
}
