package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads, parses, and validates a rule-set file. Any validation
// diagnostic is fatal to the run: the returned set is nil unless every
// record passed.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rule set %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a YAML rule set and validates it. Unknown fields in rule
// records are ignored.
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse rule set: %w", err)
	}
	if len(set.Rules) == 0 {
		return nil, fmt.Errorf("rule set contains no rules")
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}
