// Package catalog loads jurisdiction rule catalogs from YAML files into the
// store. Files we author get stricter treatment than rules arriving from an
// external store: an undecodable threshold for a known logic type is a load
// error here, not a silent no-op.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/claimgate/compliance/rules"
)

// File is the top-level shape of a catalog YAML file.
type File struct {
	Rules []Definition `yaml:"rules"`
}

// Definition is one rule entry as authored in YAML. The threshold block is
// kept generic here and decoded per logic type during conversion.
type Definition struct {
	ID           string            `yaml:"id"`
	Jurisdiction string            `yaml:"jurisdiction"`
	Category     rules.Category    `yaml:"category"`
	LogicType    rules.LogicType   `yaml:"logicType"`
	Severity     rules.Severity    `yaml:"severity"`
	ErrorMessage string            `yaml:"errorMessage"`
	Threshold    map[string]any    `yaml:"threshold"`
	LegalBasis   *rules.LegalBasis `yaml:"legalBasis"`
	Active       *bool             `yaml:"active"`
}

// Load reads and parses a catalog file.
func Load(path string) ([]*rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	loaded, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return loaded, nil
}

// Parse converts catalog YAML into rule records, validating each definition.
func Parse(data []byte) ([]*rules.Rule, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("catalog contains no rules")
	}

	seen := make(map[string]bool, len(file.Rules))
	out := make([]*rules.Rule, 0, len(file.Rules))
	for i, def := range file.Rules {
		rule, err := def.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, def.ID, err)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("rule %d: duplicate id %s", i, rule.ID)
		}
		seen[rule.ID] = true
		out = append(out, rule)
	}
	return out, nil
}

// toRule validates a definition and converts it to a rule record.
func (d Definition) toRule() (*rules.Rule, error) {
	if d.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if d.Jurisdiction == "" {
		return nil, fmt.Errorf("missing jurisdiction")
	}
	if !d.Category.Known() {
		return nil, fmt.Errorf("unknown category %q", d.Category)
	}
	if !d.Severity.Known() {
		return nil, fmt.Errorf("unknown severity %q", d.Severity)
	}
	if d.ErrorMessage == "" {
		return nil, fmt.Errorf("missing errorMessage")
	}

	var payload []byte
	if d.Threshold != nil {
		var err error
		payload, err = json.Marshal(d.Threshold)
		if err != nil {
			return nil, fmt.Errorf("threshold: %w", err)
		}
	}

	threshold, err := rules.DecodeThreshold(d.LogicType, payload)
	if err != nil {
		return nil, fmt.Errorf("threshold for %s: %w", d.LogicType, err)
	}

	active := true
	if d.Active != nil {
		active = *d.Active
	}

	return &rules.Rule{
		ID:               d.ID,
		JurisdictionCode: d.Jurisdiction,
		Category:         d.Category,
		LogicType:        d.LogicType,
		Threshold:        threshold,
		Severity:         d.Severity,
		ErrorMessage:     d.ErrorMessage,
		LegalBasis:       d.LegalBasis,
		Active:           active,
	}, nil
}
