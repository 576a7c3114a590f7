// Package utils provides small, generic helper functions shared across
// layers, mostly for reading optional query-string values. They carry no
// domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi. If the string
// is empty or cannot be parsed as an integer, it returns the provided
// default value instead. Handlers use it for optional numeric query
// parameters such as page and pageSize.
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

// BoolDefault converts a string to a bool using strconv.ParseBool, which
// accepts 1/t/true and 0/f/false in any case. If the string is empty or
// unparseable, it returns the provided default value instead.
//
// Example:
//
//	b := utils.BoolDefault("1", false)    // returns true
//	b = utils.BoolDefault("", true)       // returns true
//	b = utils.BoolDefault("maybe", false) // returns false
func BoolDefault(s string, def bool) bool {
	if s == "" {
		return def
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return def
}
