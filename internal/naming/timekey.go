package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// reTimeKey matches at the start of a stem; trailing text is allowed.
var reTimeKey = regexp.MustCompile(`^(\d+)M(\d+)S_\d+`)

// TimeKey is the (minutes, seconds) position parsed from a clip stem.
type TimeKey struct {
	Minutes int
	Seconds int
}

// Less orders keys by minutes, then seconds.
func (k TimeKey) Less(o TimeKey) bool {
	if k.Minutes != o.Minutes {
		return k.Minutes < o.Minutes
	}
	return k.Seconds < o.Seconds
}

// Compare returns -1, 0 or +1.
func (k TimeKey) Compare(o TimeKey) int {
	switch {
	case k.Less(o):
		return -1
	case o.Less(k):
		return 1
	default:
		return 0
	}
}

func (k TimeKey) String() string {
	return fmt.Sprintf("%02dM%02dS", k.Minutes, k.Seconds)
}

// ParseTimeKey extracts the key from a stem (base name without extension).
// A stem that does not match, or whose numbers overflow, yields (0, 0).
func ParseTimeKey(stem string) TimeKey {
	m := reTimeKey.FindStringSubmatch(stem)
	if m == nil {
		return TimeKey{}
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return TimeKey{}
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return TimeKey{}
	}
	return TimeKey{Minutes: minutes, Seconds: seconds}
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// KeyOf parses the key of a clip path.
func KeyOf(path string) TimeKey {
	return ParseTimeKey(Stem(path))
}

// SortByTimeKey returns a copy of paths stable-sorted ascending by key.
// Paths with equal keys keep their input order.
func SortByTimeKey(paths []string) []string {
	type keyed struct {
		path string
		key  TimeKey
	}
	items := make([]keyed, len(paths))
	for i, p := range paths {
		items[i] = keyed{path: p, key: KeyOf(p)}
	}
	slices.SortStableFunc(items, func(a, b keyed) int { return a.key.Compare(b.key) })

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.path
	}
	return out
}

// HasTimeKey reports whether the stem of path carries a parsable key.
func HasTimeKey(path string) bool {
	return reTimeKey.MatchString(Stem(path))
}
