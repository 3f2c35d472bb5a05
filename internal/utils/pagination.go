// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

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
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageCount returns the number of pages needed to show total items at
// perPage items per page. Zero totals yield zero pages.
func PageCount(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// ClampPage coerces a 1-based page number into [1, pages]. When there are no
// pages it returns 1 so offsets stay non-negative.
func ClampPage(page, pages int) int {
	if page < 1 {
		return 1
	}
	if pages > 0 && page > pages {
		return pages
	}
	return page
}
