package workflow

import (
	"fmt"
	"os"

	"commentguard/internal/models"

	"gopkg.in/yaml.v3"
)

// RulesFile is the on-disk format of a rule seed file.
type RulesFile struct {
	Rules []models.RuleInput `yaml:"rules"`
}

// LoadRulesFile reads and validates a YAML rule seed file.
func LoadRulesFile(path string) ([]models.RuleInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates YAML rules.
func ParseRules(data []byte) ([]models.RuleInput, error) {
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, models.NewValidationError("rules file: " + err.Error())
	}
	for i, in := range file.Rules {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, in.Name, err)
		}
	}
	return file.Rules, nil
}
