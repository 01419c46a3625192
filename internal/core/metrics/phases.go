package metrics

import (
	"math"

	"github.com/raidlens/raidlens/internal/core"
)

// DetectPhases maps an encounter's fractional phase table onto absolute
// millisecond boundaries for the given fight duration. Encounters without
// an explicit table get a single full-fight phase. Boundaries are duration
// estimates, not in-fight trigger detections.
func DetectPhases(encounterName string, durationMs int64) []core.PhaseWindow {
	defs := PhasesForEncounter(encounterName)
	if len(defs) == 0 {
		defs = []PhaseDef{{Name: "Full Fight", PctStart: 0, PctEnd: 1}}
	}

	windows := make([]core.PhaseWindow, 0, len(defs))
	for _, def := range defs {
		window := core.PhaseWindow{
			Name:       def.Name,
			PctStart:   def.PctStart,
			PctEnd:     def.PctEnd,
			StartMs:    int64(math.Round(def.PctStart * float64(durationMs))),
			EndMs:      int64(math.Round(def.PctEnd * float64(durationMs))),
			IsDowntime: def.IsDowntime,
		}
		if def.PctEnd >= 1 {
			window.EndMs = durationMs
		}
		windows = append(windows, window)
	}

	return windows
}

// ComputePhaseMetrics filters cast and damage events into each phase window
// and reports per-phase activity. Downtime phases are computed like any
// other and only carry the flag for callers.
func ComputePhaseMetrics(phases []core.PhaseWindow, casts, damage []core.Event) []core.PhaseMetric {
	rows := make([]core.PhaseMetric, 0, len(phases))
	for i, phase := range phases {
		last := i == len(phases)-1
		row := core.PhaseMetric{
			PhaseName:  phase.Name,
			StartMs:    phase.StartMs,
			EndMs:      phase.EndMs,
			IsDowntime: phase.IsDowntime,
		}

		for _, ev := range casts {
			if ev.Type == core.EventCast && inPhase(ev.Timestamp, phase, last) {
				row.CastCount++
			}
		}
		for _, ev := range damage {
			if ev.Type == core.EventDamage && inPhase(ev.Timestamp, phase, last) {
				row.Damage += ev.Amount
			}
		}

		if phaseSec := float64(phase.EndMs-phase.StartMs) / 1000; phaseSec > 0 {
			row.DPS = round1(row.Damage / phaseSec)
		}

		rows = append(rows, row)
	}

	return rows
}

// inPhase treats windows as half-open [start, end) so contiguous phases
// never double-count; the final phase closes at the fight end.
func inPhase(ts int64, phase core.PhaseWindow, last bool) bool {
	if ts < phase.StartMs {
		return false
	}
	if last {
		return ts <= phase.EndMs
	}
	return ts < phase.EndMs
}
