// Package prefix derives Java package prefixes from archive metadata
// and provides the set operations the mapping document is built on.
// Prefixes use "/" as the segment separator (org/apache/tomcat).
package prefix

import (
	"sort"
	"strings"
)

// Consolidate reduces a list of dot-separated package names to common
// roots. Packages are grouped by their first three components; each
// group contributes the longest common dot-prefix of its members,
// converted to slash form. Single-member groups pass through unchanged
// and packages with fewer than three components form their own group.
func Consolidate(packages []string) []string {
	if len(packages) == 0 {
		return nil
	}

	groups := make(map[string][]string)
	for _, pkg := range packages {
		parts := strings.Split(pkg, ".")
		key := pkg
		if len(parts) >= 3 {
			key = strings.Join(parts[:3], ".")
		}
		groups[key] = append(groups[key], pkg)
	}

	seen := make(map[string]bool)
	var prefixes []string
	for key, members := range groups {
		var prefix string
		if len(members) == 1 {
			prefix = members[0]
		} else if common := longestCommonDotPrefix(members); common != "" {
			prefix = common
		} else {
			prefix = key
		}
		slashed := strings.ReplaceAll(prefix, ".", "/")
		if !seen[slashed] {
			seen[slashed] = true
			prefixes = append(prefixes, slashed)
		}
	}

	sort.Strings(prefixes)
	return prefixes
}

// longestCommonDotPrefix returns the longest dot-separated prefix
// shared by all packages, empty when even the first component differs.
func longestCommonDotPrefix(packages []string) string {
	if len(packages) == 0 {
		return ""
	}
	common := strings.Split(packages[0], ".")
	for _, pkg := range packages[1:] {
		parts := strings.Split(pkg, ".")
		if len(parts) < len(common) {
			common = common[:len(parts)]
		}
		for i := range common {
			if parts[i] != common[i] {
				common = common[:i]
				break
			}
		}
		if len(common) == 0 {
			return ""
		}
	}
	return strings.Join(common, ".")
}

// FilterNested removes prefixes that nest inside another member of the
// set, keeping the most specific of each chain. The result is
// antichain-minimal: no member is a strict path-prefix of another.
// Idempotent; output is sorted lexicographically.
func FilterNested(prefixes []string) []string {
	if len(prefixes) == 0 {
		return nil
	}

	byLength := make([]string, len(prefixes))
	copy(byLength, prefixes)
	sort.SliceStable(byLength, func(i, j int) bool {
		return len(byLength[i]) > len(byLength[j])
	})

	var kept []string
	for _, p := range byLength {
		nested := false
		for _, q := range kept {
			// Kept members are at least as long as p, so only the
			// "p nests inside q" direction (or a duplicate) can occur.
			if p == q || IsStrictPrefix(p, q) {
				nested = true
				break
			}
		}
		if !nested {
			kept = append(kept, p)
		}
	}

	sort.Strings(kept)
	return kept
}

// IsStrictPrefix reports whether p is a strict path-prefix of q, i.e.
// q begins with p followed by a separator.
func IsStrictPrefix(p, q string) bool {
	return len(p) < len(q) && strings.HasPrefix(q, p+"/")
}
