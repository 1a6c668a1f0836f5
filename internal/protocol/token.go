package protocol

import "regexp"

// tokenPattern matches a {{identifier}} substitution token. identifier
// follows the same rule as a Go/C identifier: letters, digits, underscore,
// not starting with a digit.
var tokenPattern = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// wholeTokenPattern matches a string that is nothing but a single token.
var wholeTokenPattern = regexp.MustCompile(`^\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}$`)

// tokenIdentifiers returns every identifier referenced by {{...}} tokens in s,
// in order of first appearance, without deduplication.
func tokenIdentifiers(s string) []string {
	matches := tokenPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// wholeToken reports whether s is exactly one {{identifier}} token, and if
// so returns the identifier. This is the special case where substitution
// preserves the raw typed value instead of producing a string.
func wholeToken(s string) (string, bool) {
	m := wholeTokenPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// collectIdentifiers walks a params value (map/slice/leaf) and returns every
// identifier referenced by a {{...}} token anywhere within it.
func collectIdentifiers(v any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			out = append(out, tokenIdentifiers(t)...)
		case map[string]any:
			for _, sub := range t {
				walk(sub)
			}
		case []any:
			for _, sub := range t {
				walk(sub)
			}
		}
	}
	walk(v)
	return out
}

// containsAnyToken reports whether any leaf string anywhere within v
// contains a {{...}} token. Used to decide whether a missing required
// parameter might be satisfied dynamically at substitution time — the
// static validator cannot prove otherwise, so it treats the presence of
// any token in the params bag as sufficient at validation time.
func containsAnyToken(v any) bool {
	switch t := v.(type) {
	case string:
		return tokenPattern.MatchString(t)
	case map[string]any:
		for _, sub := range t {
			if containsAnyToken(sub) {
				return true
			}
		}
	case []any:
		for _, sub := range t {
			if containsAnyToken(sub) {
				return true
			}
		}
	}
	return false
}
