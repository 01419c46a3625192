package metrics

import (
	"math"
	"sort"

	"github.com/raidlens/raidlens/internal/core"
)

// ComputeCooldownUsage reports usage efficiency for every cooldown tracked
// for the class, one row per tracked ability whether or not it was used.
// Classes absent from the table yield no rows.
func ComputeCooldownUsage(class string, source int, casts []core.Event, fightDurationMs int64) []core.CooldownUsage {
	specs := CooldownsForClass(class)
	if len(specs) == 0 {
		return nil
	}

	fightSec := float64(fightDurationMs) / 1000

	rows := make([]core.CooldownUsage, 0, len(specs))
	for _, spec := range specs {
		row := core.CooldownUsage{
			SourceID:    source,
			AbilityID:   spec.AbilityID,
			AbilityName: spec.Name,
			CooldownSec: spec.CooldownSec,
		}

		for _, ev := range casts {
			if ev.Type != core.EventCast || ev.AbilityID != spec.AbilityID {
				continue
			}
			row.TimesUsed++
			ts := ev.Timestamp
			if row.FirstUseMs == nil || ts < *row.FirstUseMs {
				first := ts
				row.FirstUseMs = &first
			}
			if row.LastUseMs == nil || ts > *row.LastUseMs {
				last := ts
				row.LastUseMs = &last
			}
		}

		row.MaxPossibleUses = int(math.Floor(fightSec/float64(spec.CooldownSec))) + 1
		row.EfficiencyPct = clampPct(float64(row.TimesUsed) / float64(row.MaxPossibleUses) * 100)
		rows = append(rows, row)
	}

	return rows
}

type cdWindow struct {
	spec    CooldownSpec
	startMs int64
	endMs   int64
	damage  float64
}

// ComputeCooldownWindows measures damage throughput inside each activation
// window of the class's tracked cooldowns against the baseline outside all
// of them. Abilities without a damage window are skipped.
func ComputeCooldownWindows(class string, source int, casts, damage []core.Event, fightDurationMs int64) []core.CooldownWindow {
	specs := CooldownsForClass(class)
	if len(specs) == 0 {
		return nil
	}

	var windows []cdWindow
	for _, spec := range specs {
		if spec.WindowSec <= 0 {
			continue
		}
		for _, ev := range casts {
			if ev.Type != core.EventCast || ev.AbilityID != spec.AbilityID {
				continue
			}
			windows = append(windows, cdWindow{
				spec:    spec,
				startMs: ev.Timestamp,
				endMs:   ev.Timestamp + int64(spec.WindowSec)*1000,
			})
		}
	}
	if len(windows) == 0 {
		return nil
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].startMs < windows[j].startMs })

	var totalDamage, windowedDamage float64
	for _, ev := range damage {
		if ev.Type != core.EventDamage {
			continue
		}
		totalDamage += ev.Amount
		inside := false
		for i := range windows {
			if ev.Timestamp >= windows[i].startMs && ev.Timestamp <= windows[i].endMs {
				if !inside {
					windowedDamage += ev.Amount
					inside = true
				}
				windows[i].damage += ev.Amount
			}
		}
	}

	baselineDPS := baselineOutsideWindows(windows, totalDamage-windowedDamage, fightDurationMs)

	rows := make([]core.CooldownWindow, 0, len(windows))
	for _, w := range windows {
		windowSec := float64(w.spec.WindowSec)
		row := core.CooldownWindow{
			SourceID:     source,
			AbilityID:    w.spec.AbilityID,
			AbilityName:  w.spec.Name,
			ActivationMs: w.startMs,
			WindowSec:    w.spec.WindowSec,
			WindowDamage: w.damage,
			WindowDPS:    round1(w.damage / windowSec),
			BaselineDPS:  round1(baselineDPS),
		}
		if baselineDPS > 0 {
			row.DPSGainPct = round1((w.damage/windowSec - baselineDPS) / baselineDPS * 100)
		}
		rows = append(rows, row)
	}

	return rows
}

// baselineOutsideWindows divides the damage dealt outside every tracked
// window by the elapsed time not covered by any of them. Windows are merged
// first so overlaps are not double-counted. A zero or fully covered fight
// yields a zero baseline, not a division fault.
func baselineOutsideWindows(windows []cdWindow, outsideDamage float64, fightDurationMs int64) float64 {
	var covered int64
	var curStart, curEnd int64 = -1, -1
	for _, w := range windows {
		start, end := w.startMs, w.endMs
		if start < 0 {
			start = 0
		}
		if end > fightDurationMs {
			end = fightDurationMs
		}
		if end <= start {
			continue
		}
		if curEnd < 0 {
			curStart, curEnd = start, end
			continue
		}
		if start <= curEnd {
			if end > curEnd {
				curEnd = end
			}
			continue
		}
		covered += curEnd - curStart
		curStart, curEnd = start, end
	}
	if curEnd >= 0 {
		covered += curEnd - curStart
	}

	outsideMs := fightDurationMs - covered
	if outsideMs <= 0 {
		return 0
	}
	return outsideDamage / (float64(outsideMs) / 1000)
}
