package task_test

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"testing"
)

// mustEqual is for comparable values where a testify diff would be noise.
func mustEqual(t *testing.T, actual, expect any) {
	t.Helper()
	if actual != expect {
		t.Fatalf("%+v != %+v", actual, expect)
	}
}

// mapToStr prints one "  - key: value" line per entry, in key order, for stable example output.
func mapToStr[K cmp.Ordered, V any](m map[K]V) string {
	var sb strings.Builder
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(&sb, "  - %q: %v\n", fmt.Sprint(k), m[k])
	}
	return sb.String()
}
