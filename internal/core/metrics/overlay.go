package metrics

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Overlay extends or replaces the built-in lookup tables. Operators ship
// one as a YAML file so new encounters and rule sets do not require a
// rebuild.
type Overlay struct {
	Phases    map[string][]PhaseDef     `yaml:"phases"`
	Rotations map[string][]RotationRule `yaml:"rotations"`
	Cooldowns map[string][]CooldownSpec `yaml:"cooldowns"`
	Dots      map[string][]DotSpec      `yaml:"dots"`
}

// LoadOverlay parses an overlay document, validates it, and merges it into
// the package tables. Entries replace any built-in table with the same key.
func LoadOverlay(data []byte) error {
	var overlay Overlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse table overlay: %w", err)
	}

	for encounter, phases := range overlay.Phases {
		if err := ValidatePhaseTable(phases); err != nil {
			return fmt.Errorf("overlay encounter %q: %w", encounter, err)
		}
	}
	for spec, rules := range overlay.Rotations {
		for _, rule := range rules {
			switch rule.Type {
			case RuleCastCount, RuleUptime, RuleCdUsage:
			default:
				return fmt.Errorf("overlay spec %q: unknown rule type %q", spec, rule.Type)
			}
			if rule.Type == RuleCdUsage && rule.CooldownSec <= 0 {
				return fmt.Errorf("overlay spec %q: rule %q needs cooldown_sec", spec, rule.Name)
			}
		}
	}

	for encounter, phases := range overlay.Phases {
		encounterPhases[normalizeKey(encounter)] = phases
	}
	for spec, rules := range overlay.Rotations {
		specRotations[normalizeKey(spec)] = rules
	}
	for class, cds := range overlay.Cooldowns {
		classCooldowns[normalizeKey(class)] = cds
	}
	for spec, dots := range overlay.Dots {
		specDots[normalizeKey(spec)] = dots
	}

	return nil
}

// ValidatePhaseTable checks the static invariant on phase definitions:
// contiguous fractional windows spanning exactly [0, 1].
func ValidatePhaseTable(phases []PhaseDef) error {
	if len(phases) == 0 {
		return fmt.Errorf("phase table is empty")
	}

	const eps = 1e-9
	cursor := 0.0
	for i, phase := range phases {
		if phase.Name == "" {
			return fmt.Errorf("phase %d has no name", i)
		}
		if math.Abs(phase.PctStart-cursor) > eps {
			return fmt.Errorf("phase %q starts at %.3f, expected %.3f", phase.Name, phase.PctStart, cursor)
		}
		if phase.PctEnd <= phase.PctStart {
			return fmt.Errorf("phase %q has non-positive span", phase.Name)
		}
		cursor = phase.PctEnd
	}
	if math.Abs(cursor-1) > eps {
		return fmt.Errorf("phase table ends at %.3f, expected 1.0", cursor)
	}

	return nil
}
