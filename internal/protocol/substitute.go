package protocol

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
)

// Substitute runs one recursive substitution pass over v (a params value —
// map, slice, string, or scalar) against vars, producing a fresh value. The
// handler never sees {{...}} tokens: this pass runs immediately before
// dispatch.
//
// A leaf string that is entirely one {{identifier}} token substitutes the
// raw, typed value from vars, preserving non-string types (integers for
// coordinates). Any other string with embedded tokens has each token
// replaced by its string form; the result remains a string. Non-string
// leaves pass through unchanged.
func Substitute(v any, vars map[string]any) (any, error) {
	switch t := v.(type) {
	case string:
		return substituteString(t, vars)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, sub := range t {
			subbed, err := Substitute(sub, vars)
			if err != nil {
				return nil, err
			}
			out[k] = subbed
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, sub := range t {
			subbed, err := Substitute(sub, vars)
			if err != nil {
				return nil, err
			}
			out[i] = subbed
		}
		return out, nil
	default:
		return v, nil
	}
}

func substituteString(s string, vars map[string]any) (any, error) {
	idents := tokenIdentifiers(s)
	if len(idents) == 0 {
		return s, nil
	}
	if err := requireAvailable(idents, vars); err != nil {
		return nil, err
	}
	if ident, ok := wholeToken(s); ok {
		return vars[ident], nil
	}
	out := s
	for _, ident := range idents {
		out = strings.ReplaceAll(out, "{{"+ident+"}}", fmt.Sprint(vars[ident]))
	}
	return out, nil
}

func requireAvailable(idents []string, vars map[string]any) error {
	var missing []string
	for _, ident := range idents {
		if _, ok := vars[ident]; !ok {
			missing = append(missing, ident)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	available := make([]string, 0, len(vars))
	for k := range vars {
		available = append(available, k)
	}
	sort.Strings(available)
	sort.Strings(missing)
	hint := ""
	for _, m := range missing {
		if m == "verified_x" || m == "verified_y" {
			hint = " (verified_x/verified_y are only available after a verify_screen step runs)"
			break
		}
	}
	return protoerr.New(protoerr.KindMissingVariable,
		"missing variable(s) %s; available: %s%s", strings.Join(missing, ", "), strings.Join(available, ", "), hint)
}
