package protocol

import (
	"encoding/json"

	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

// ActionSpec is the subset of an Action Registry entry the parser needs to
// run its semantic pass: the parameter contract, independent of the
// handler and docs that live in the registry package.
type ActionSpec struct {
	Name           string
	RequiredParams []string
	OptionalParams map[string]any
}

// ActionCatalog is satisfied by the Action Registry. The parser depends on
// it only through this narrow interface so that protocol never imports
// registry (registry imports protocol's Program/Action types instead).
type ActionCatalog interface {
	Lookup(name string) (ActionSpec, bool)
}

// Parse decodes a JSON document into a Program. It performs structural
// validation (schema) before unmarshalling so malformed documents fail with
// a validation_failed error rather than a bare JSON decode error.
func Parse(jsonStr string) (*types.Program, error) {
	var doc any
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, protoerr.Wrap(protoerr.KindValidationFailed, err, "invalid JSON")
	}
	return ParseDocument(doc)
}

// ParseDocument validates and decodes an already-parsed document (e.g. a
// map[string]any) into a Program.
func ParseDocument(doc any) (*types.Program, error) {
	if err := validateStructure(doc); err != nil {
		return nil, protoerr.Wrap(protoerr.KindValidationFailed, err, "structural validation failed")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindValidationFailed, err, "re-encode document")
	}
	var p types.Program
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, protoerr.Wrap(protoerr.KindValidationFailed, err, "decode program")
	}
	return &p, nil
}

// Serialize renders a Program back to indented JSON. Parse(Serialize(p))
// round-trips to an equivalent Program for every valid Program.
func Serialize(p *types.Program) (string, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
