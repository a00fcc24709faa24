package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the optional on-disk policy configuration.
type Rules struct {
	HighRiskCountries []string `yaml:"high_risk_countries"`
}

// LoadRules reads a YAML rules file. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := Rules{HighRiskCountries: DefaultHighRiskCountries}
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read policy file: %w", err)
	}
	var parsed Rules
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Rules{}, fmt.Errorf("parse policy file: %w", err)
	}
	if parsed.HighRiskCountries != nil {
		rules.HighRiskCountries = parsed.HighRiskCountries
	}
	return rules, nil
}

// NewEvaluatorFromRules builds an evaluator for the loaded rules.
func NewEvaluatorFromRules(r Rules) *Evaluator {
	return NewEvaluator(r.HighRiskCountries)
}
