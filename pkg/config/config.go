// Package config loads a desired-state document from its two supported
// sources: the VXLANBGP_MAIN_CONF environment variable (JSON, the primary
// and only externally specified wire format) and an optional local YAML
// file for development, both decoding into the same model.DesiredState.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vxlanevpn/reconciler/pkg/model"
)

// EnvVar is the environment variable the external wrapper reads the
// desired-state JSON document from.
const EnvVar = "VXLANBGP_MAIN_CONF"

// LoadFromEnv decodes the desired state from EnvVar. An absent or
// malformed value is a fatal external error, not a reconciler failure.
func LoadFromEnv() (model.DesiredState, error) {
	raw := os.Getenv(EnvVar)
	if raw == "" {
		return model.DesiredState{}, fmt.Errorf("config: %s is not set", EnvVar)
	}
	var ds model.DesiredState
	if err := json.Unmarshal([]byte(raw), &ds); err != nil {
		return model.DesiredState{}, fmt.Errorf("config: invalid JSON in %s: %w", EnvVar, err)
	}
	return ds, nil
}

// LoadFromYAMLFile decodes the desired state from a local YAML file. This
// is a development convenience, layered over the same model.DesiredState
// the environment-variable JSON loader produces — not a second schema.
func LoadFromYAMLFile(path string) (model.DesiredState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.DesiredState{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	// The model types carry only json tags, so the YAML is decoded
	// generically and re-encoded through JSON: its keys are the same wire
	// names the environment-variable loader accepts.
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return model.DesiredState{}, fmt.Errorf("config: invalid YAML in %s: %w", path, err)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return model.DesiredState{}, fmt.Errorf("config: invalid YAML in %s: %w", path, err)
	}
	var ds model.DesiredState
	if err := json.Unmarshal(js, &ds); err != nil {
		return model.DesiredState{}, fmt.Errorf("config: invalid YAML in %s: %w", path, err)
	}
	return ds, nil
}

// Validate re-asserts the invariants the core assumes already hold. The
// external validator is the primary gate; this is a defensive backstop.
func Validate(ds model.DesiredState) error {
	v := validator{}
	v.checkMode(ds.Mode)
	v.require(ds.UnderlayIf != "", "UnderlayIf is required")
	v.require(ds.OverlayIf != "", "OverlayIf is required")
	v.require(len(ds.VlanBindings) > 0, "VlanMapVNIList must be non-empty")
	v.require(len(ds.VrfBindings) > 0, "VRFMapL3VNIList must be non-empty")

	seenVlan := map[int]bool{}
	for _, vb := range ds.VlanBindings {
		v.checkVlan(vb, seenVlan)
	}
	seenVrf := map[string]bool{}
	for _, rb := range ds.VrfBindings {
		v.checkVrf(rb, seenVrf)
	}
	return v.build()
}
