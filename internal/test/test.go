// Package test provides assertion helpers shared by the package tests.
package test

import (
	"fmt"
	"strings"
	"testing"
)

// AssertEqual checks if two values are equal and reports a test error if not.
func AssertEqual[T comparable](t *testing.T, actual, expected T) {
	t.Helper()
	if actual != expected {
		t.Errorf("\nexpected: %v\nactual:   %v", expected, actual)
	}
}

// AssertEqualWithDiff checks if two texts are equal and shows a numbered
// line diff if not.
func AssertEqualWithDiff(t *testing.T, actual, expected string) {
	t.Helper()
	if actual != expected {
		t.Errorf("\n%s", diff(expected, actual))
	}
}

// diff compares two texts line by line. Lines are numbered from 1 so a
// mismatch in expanded GLSL or a header can be matched to the #line it
// should carry. Trailing whitespace differences are made visible.
func diff(expected, actual string) string {
	want := strings.Split(expected, "\n")
	got := strings.Split(actual, "\n")

	var b strings.Builder
	b.WriteString("--- expected\n+++ actual\n")

	n := max(len(want), len(got))
	for i := range n {
		w, okW := line(want, i)
		g, okG := line(got, i)
		if okW && okG && w == g {
			fmt.Fprintf(&b, "%4d  %s\n", i+1, w)
			continue
		}
		if okW {
			fmt.Fprintf(&b, "%4d -%q\n", i+1, w)
		}
		if okG {
			fmt.Fprintf(&b, "%4d +%q\n", i+1, g)
		}
	}
	return b.String()
}

func line(lines []string, i int) (string, bool) {
	if i < len(lines) {
		return lines[i], true
	}
	return "", false
}
