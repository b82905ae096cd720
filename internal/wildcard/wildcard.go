// Package wildcard matches table and column names against glob-style
// patterns where '*' stands for any run of characters.
package wildcard

import (
	"regexp"
	"strings"
)

// IsPattern reports whether p contains a wildcard.
func IsPattern(p string) bool {
	return strings.Contains(p, "*")
}

// Compile turns a wildcard pattern into an anchored, case-insensitive regexp.
func Compile(pattern string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pattern)
	return regexp.MustCompile("(?i)^" + strings.ReplaceAll(quoted, `\*`, ".*") + "$")
}

// Expand returns the members of universe matched by any of patterns,
// in universe order and without duplicates. Patterns without '*' match
// exactly; patterns that match nothing are ignored.
func Expand(patterns, universe []string) []string {
	if len(patterns) == 0 || len(universe) == 0 {
		return []string{}
	}

	exact := make(map[string]struct{})
	var globs []*regexp.Regexp
	for _, p := range patterns {
		if IsPattern(p) {
			globs = append(globs, Compile(p))
		} else {
			exact[p] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(universe))
	result := make([]string, 0)
	for _, name := range universe {
		if _, dup := seen[name]; dup {
			continue
		}
		if matchAny(name, exact, globs) {
			seen[name] = struct{}{}
			result = append(result, name)
		}
	}
	return result
}

// Matches reports whether name is matched by any of patterns.
func Matches(name string, patterns []string) bool {
	for _, p := range patterns {
		if p == name {
			return true
		}
		if IsPattern(p) && Compile(p).MatchString(name) {
			return true
		}
	}
	return false
}

// MatchesFold is Matches with case-insensitive exact comparison, used for
// column names.
func MatchesFold(name string, patterns []string) bool {
	for _, p := range patterns {
		if strings.EqualFold(p, name) {
			return true
		}
		if IsPattern(p) && Compile(p).MatchString(name) {
			return true
		}
	}
	return false
}

func matchAny(name string, exact map[string]struct{}, globs []*regexp.Regexp) bool {
	if _, ok := exact[name]; ok {
		return true
	}
	for _, re := range globs {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Subtract returns the members of set that are not in remove.
func Subtract(set, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		drop[r] = struct{}{}
	}
	result := make([]string, 0, len(set))
	for _, s := range set {
		if _, ok := drop[s]; !ok {
			result = append(result, s)
		}
	}
	return result
}
