package tags

import (
	"slices"
	"testing"
)

type matchCase struct {
	tag, pattern string
	want         bool
}

func runMatchCases(t *testing.T, cases []matchCase) {
	t.Helper()
	for _, c := range cases {
		if got := Match(c.tag, c.pattern); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.tag, c.pattern, got, c.want)
		}
	}
}

func TestMatch_Exact(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"project/active", "project/active", true},
		{"Project/Active", "project/active", true},
		{"project/active", "project", false},
		{"project", "project/active", false},
	})
}

func TestMatch_EverythingWildcard(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"a", "*", true},
		{"a/b", "*", true},
		{"a/b/c", "*", true},
	})
}

func TestMatch_TrailingWildcard(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"project/active", "project/*", true},
		{"project/active/sub", "project/*", true},
		{"archive/2024/q1", "archive/*", true},
		{"project", "project/*", false},
		{"projects/active", "project/*", false},
		{"other/project/active", "project/*", false},
	})
}

func TestMatch_SegmentGlobDoesNotCrossSeparator(t *testing.T) {
	runMatchCases(t, []matchCase{
		{"project/active", "project/act*", true},
		{"project/reactive", "project/*act*", true},
		{"project/active/sub", "project/act*", false},
		{"project/passive", "project/act*", false},
		{"year/2023/notes", "year/*/notes", true},
		{"year/2023/q1/notes", "year/*/notes", false},
		{"todo-later", "todo*", true},
		{"todo", "todo*", true},
		{"todo/later", "todo*", false},
	})
}

func TestIsParent(t *testing.T) {
	cases := []struct {
		candidate, tag string
		want           bool
	}{
		{"project", "project/active", true},
		{"project", "project/active/sub", true},
		{"Project", "project/active", true},
		{"project", "project", false},
		{"project", "projects/active", false},
		{"project/active", "project", false},
		{"", "project", false},
	}
	for _, c := range cases {
		if got := IsParent(c.candidate, c.tag); got != c.want {
			t.Errorf("IsParent(%q, %q) = %v, want %v", c.candidate, c.tag, got, c.want)
		}
	}
}

func TestRelated(t *testing.T) {
	universe := []string{"project", "project/active", "project/active/sub", "projects", "work", "project/active"}
	got := Related("project/active", universe)
	if want := []string{"project", "project/active/sub"}; !slices.Equal(got, want) {
		t.Errorf("related = %v, want %v", got, want)
	}
	if got := Related("lonely", universe); len(got) != 0 {
		t.Errorf("related = %v, want none", got)
	}
}

func TestSetCacheSize(t *testing.T) {
	SetCacheSize(4)
	defer SetCacheSize(DefaultCacheSize)

	for _, p := range []string{"a*", "b*", "c*", "d*", "e*", "f*"} {
		if !Match(p[:1]+"x", p) {
			t.Errorf("Match(%q, %q) = false after eviction", p[:1]+"x", p)
		}
	}
	SetCacheSize(0)
	if !Match("ax", "a*") {
		t.Error("non-positive size should keep the current cache")
	}
}
