package metrics

import (
	"fmt"
	"math"

	"github.com/raidlens/raidlens/internal/core"
)

// RotationInput carries everything a rule evaluation needs. BuffUptimePct
// holds precomputed aura uptimes keyed by buff ability ID.
type RotationInput struct {
	SourceID        int
	Casts           []core.Event
	FightDurationMs int64
	BuffUptimePct   map[int]float64
}

// EvaluateRotation checks every rule defined for the spec and returns a
// scored report with one violation entry per failed rule. Specs with no
// rule set return a zero-rule, zero-score report.
func EvaluateRotation(spec string, in RotationInput) core.RotationReport {
	report := core.RotationReport{Spec: normalizeKey(spec)}

	rules := RotationRulesForSpec(spec)
	if len(rules) == 0 {
		return report
	}

	for _, rule := range rules {
		actual, detail := evaluateRule(rule, in)
		report.RulesChecked++
		if actual >= rule.Threshold {
			report.RulesPassed++
			continue
		}
		report.Violations = append(report.Violations, core.RuleResult{
			RuleName:    rule.Name,
			Description: rule.Description,
			Passed:      false,
			Actual:      actual,
			Expected:    rule.Threshold,
			Detail:      detail,
		})
	}

	report.ScorePct = clampPct(float64(report.RulesPassed) / float64(report.RulesChecked) * 100)
	return report
}

func evaluateRule(rule RotationRule, in RotationInput) (float64, string) {
	switch rule.Type {
	case RuleCastCount:
		cpm := 0.0
		if in.FightDurationMs > 0 {
			count := 0
			for _, ev := range in.Casts {
				if ev.Type == core.EventCast && ev.AbilityID == rule.AbilityID {
					count++
				}
			}
			cpm = round1(float64(count) / (float64(in.FightDurationMs) / 60000))
		}
		return cpm, fmt.Sprintf("%.1f casts/min, expected at least %.1f", cpm, rule.Threshold)

	case RuleUptime:
		uptime := round1(in.BuffUptimePct[rule.BuffID])
		return uptime, fmt.Sprintf("%.1f%% uptime, expected at least %.1f%%", uptime, rule.Threshold)

	case RuleCdUsage:
		used := 0
		for _, ev := range in.Casts {
			if ev.Type == core.EventCast && ev.AbilityID == rule.AbilityID {
				used++
			}
		}
		maxUses := int(math.Floor(float64(in.FightDurationMs)/1000/float64(rule.CooldownSec))) + 1
		usage := clampPct(float64(used) / float64(maxUses) * 100)
		return usage, fmt.Sprintf("%d of %d possible uses (%.1f%%), expected at least %.1f%%", used, maxUses, usage, rule.Threshold)

	default:
		return 0, fmt.Sprintf("unknown rule type %q", rule.Type)
	}
}
