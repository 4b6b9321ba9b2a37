// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts s with strconv.Atoi, returning def when s is empty
// or not an integer.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageParams parses 1-based page and page-size query values. page is at
// least 1; size falls back to defSize when missing or malformed and is
// clamped to [1, maxSize].
//
//	PageParams("", "", 20, 100)     // 1, 20
//	PageParams("-3", "9999", 20, 100) // 1, 100
func PageParams(pageStr, sizeStr string, defSize, maxSize int) (page, size int) {
	page = max(AtoiDefault(pageStr, 1), 1)
	size = min(max(AtoiDefault(sizeStr, defSize), 1), maxSize)
	return page, size
}

// Offset converts a 1-based page into a row offset.
func Offset(page, size int) int {
	if page < 1 || size < 1 {
		return 0
	}
	return (page - 1) * size
}
