package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default
		{"", 10, 10},
		// valid ints
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestBoolDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  bool
		want bool
	}{
		// empty -> default
		{"", true, true},
		{"", false, false},
		// ParseBool forms
		{"1", false, true},
		{"true", false, true},
		{"TRUE", false, true},
		{"t", false, true},
		{"0", true, false},
		{"false", true, false},
		// invalid -> default (no trim)
		{"yes", false, false},
		{" true", false, false},
	}

	for _, tc := range cases {
		if got := BoolDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("BoolDefault(%q, %v) = %v; want %v", tc.s, tc.def, got, tc.want)
		}
	}
}
