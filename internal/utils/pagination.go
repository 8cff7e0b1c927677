// Package utils provides small helpers shared across layers that carry no
// domain knowledge of their own.
package utils

import "strconv"

// AtoiDefault parses s as an int, falling back to def when s is empty or not
// a plain base-10 integer. The page and page_size query parameters go through
// this so malformed input degrades to the documented default instead of
// erroring a whole list request.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
