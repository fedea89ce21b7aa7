package optimization

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRiskLimits reads a YAML risk-profile override file and merges it over
// the built-in table. Profiles absent from the file keep their defaults.
//
// File format:
//
//	conservative:
//	  max_volatility: 0.10
//	  max_single: 0.15
//	moderate:
//	  max_volatility: 0.20
//	  max_single: 0.25
func LoadRiskLimits(path string) (map[RiskProfile]RiskLimits, error) {
	limits := DefaultRiskLimits()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read risk profile file: %w", err)
	}

	var overrides map[string]RiskLimits
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse risk profile file: %w", err)
	}

	for name, override := range overrides {
		profile := RiskProfile(name)
		if _, known := limits[profile]; !known {
			return nil, fmt.Errorf("unknown risk profile %q in override file", name)
		}
		if override.MaxVolatility <= 0 || override.MaxSingle <= 0 {
			return nil, fmt.Errorf("risk profile %q has non-positive bounds", name)
		}
		limits[profile] = override
	}

	return limits, nil
}
