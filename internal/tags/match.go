package tags

import (
	"strings"
	"sync"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Wildcard matches any run of characters inside a single segment. As the
// last segment of a pattern on its own it matches every descendant.
const Wildcard = "*"

// DefaultCacheSize bounds the number of compiled segment globs kept in memory.
const DefaultCacheSize = 256

var (
	globCacheMu sync.Mutex
	globCache   = mustGlobCache(DefaultCacheSize)
)

func mustGlobCache(size int) *lru.Cache[string, glob.Glob] {
	c, err := lru.New[string, glob.Glob](size)
	if err != nil {
		panic(err)
	}
	return c
}

// SetCacheSize replaces the compiled-glob cache with one of the given size.
// Non-positive sizes are ignored.
func SetCacheSize(size int) {
	if size <= 0 {
		return
	}
	globCacheMu.Lock()
	globCache = mustGlobCache(size)
	globCacheMu.Unlock()
}

func compileSegment(seg string) (glob.Glob, error) {
	globCacheMu.Lock()
	c := globCache
	globCacheMu.Unlock()

	if g, ok := c.Get(seg); ok {
		return g, nil
	}
	g, err := glob.Compile(seg)
	if err != nil {
		return nil, err
	}
	c.Add(seg, g)
	return g, nil
}

// Match reports whether tag is selected by pattern. Both sides are
// normalized first.
//
//   - "*" matches every tag.
//   - A trailing bare "*" segment matches one or more trailing segments, so
//     "project/*" matches "project/active" and "project/active/sub" but not
//     "project".
//   - Any other segment containing "*" is a glob confined to that segment,
//     and the segment counts must be equal: "project/act*" matches
//     "project/active" but not "project/active/sub".
func Match(tag, pattern string) bool {
	tag = Normalize(tag)
	pattern = Normalize(pattern)
	if pattern == Wildcard {
		return true
	}

	ts := Segments(tag)
	ps := Segments(pattern)

	if n := len(ps); n > 1 && ps[n-1] == Wildcard {
		if len(ts) < n {
			return false
		}
		return matchSegments(ts[:n-1], ps[:n-1])
	}
	if len(ts) != len(ps) {
		return false
	}
	return matchSegments(ts, ps)
}

func matchSegments(ts, ps []string) bool {
	for i := range ps {
		if !matchSegment(ts[i], ps[i]) {
			return false
		}
	}
	return true
}

func matchSegment(seg, pat string) bool {
	if !strings.Contains(pat, Wildcard) {
		return seg == pat
	}
	g, err := compileSegment(pat)
	if err != nil {
		return false
	}
	return g.Match(seg)
}

// IsParent reports whether tag strictly extends candidate by one or more
// whole segments ("project" is a parent of "project/active/sub").
func IsParent(candidate, tag string) bool {
	candidate = Normalize(candidate)
	tag = Normalize(tag)
	return candidate != "" && strings.HasPrefix(tag, candidate+Separator)
}

// Related returns every tag in universe that is an ancestor or descendant of
// tag, in universe order, without duplicates and without tag itself.
func Related(tag string, universe []string) []string {
	norm := Normalize(tag)
	seen := make(map[string]struct{}, len(universe))
	var out []string
	for _, t := range universe {
		n := Normalize(t)
		if n == norm {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		if IsParent(norm, n) || IsParent(n, norm) {
			seen[n] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
