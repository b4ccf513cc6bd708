package util

import (
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./foo/bar  ", expected: "foo/bar"},
		{name: "Relative", input: "foo/../bar", expected: "bar"},
		{name: "Backslashes", input: `bin\Release\App.dll`, expected: "bin/Release/App.dll"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{name: "Equal", path: "/work/out", prefix: "/work/out", expected: true},
		{name: "Nested", path: "/work/out/sub", prefix: "/work/out", expected: true},
		{name: "SiblingWithSharedPrefix", path: "/work/output", prefix: "/work/out", expected: false},
		{name: "Root", path: "/work", prefix: "/", expected: true},
		{name: "BothEmpty", path: "", prefix: "", expected: true},
		{name: "EmptyPrefix", path: "a", prefix: "", expected: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasPathPrefix(tc.path, tc.prefix); got != tc.expected {
				t.Fatalf("HasPathPrefix(%q, %q) = %v, want %v", tc.path, tc.prefix, got, tc.expected)
			}
		})
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	keys := SortedStringKeys(map[string]int{"type": 1, "event": 2, "method": 3})
	want := []string{"event", "method", "type"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, keys)
		}
	}
}

func TestReadHeap(t *testing.T) {
	before := ReadHeap()
	if before.AllocBytes == 0 || before.Objects == 0 {
		t.Fatalf("empty heap sample %+v", before)
	}
	if mb := before.MB(); mb > 1<<20 {
		t.Fatalf("implausible heap size %.1f MB", mb)
	}
}

func TestHeapSample_GrowthMB(t *testing.T) {
	before := HeapSample{AllocBytes: 3 * mib}
	after := HeapSample{AllocBytes: 5 * mib}
	if got := after.GrowthMB(before); got != 2 {
		t.Fatalf("growth = %v, want 2", got)
	}
	if got := before.GrowthMB(after); got != -2 {
		t.Fatalf("shrink = %v, want -2", got)
	}
}
