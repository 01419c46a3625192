package metrics

import (
	"sort"

	"github.com/raidlens/raidlens/internal/core"
)

// seriesTargetPoints bounds the charting series regardless of how dense the
// raw resource stream is.
const seriesTargetPoints = 55

// ComputeResourceMetrics summarizes resource-change events grouped by
// (source, resource type). Events with resource-type codes the engine does
// not recognize are ignored entirely.
func ComputeResourceMetrics(events []core.Event, fightDurationMs int64) []core.ResourceMetrics {
	type key struct {
		source   int
		resource int
	}

	groups := make(map[key][]core.Event)
	for _, ev := range events {
		if ev.Type != core.EventResource {
			continue
		}
		if _, ok := ResourceName(ev.ResourceType); !ok {
			continue
		}
		k := key{source: ev.SourceID, resource: ev.ResourceType}
		groups[k] = append(groups[k], ev)
	}

	rows := make([]core.ResourceMetrics, 0, len(groups))
	for k, readings := range groups {
		sort.Slice(readings, func(i, j int) bool { return readings[i].Timestamp < readings[j].Timestamp })

		name, _ := ResourceName(k.resource)
		row := core.ResourceMetrics{
			SourceID:     k.source,
			ResourceType: k.resource,
			ResourceName: name,
			Min:          readings[0].Amount,
			Max:          readings[0].Amount,
		}

		var sum float64
		var zeroMs int64
		for i, reading := range readings {
			if reading.Amount < row.Min {
				row.Min = reading.Amount
			}
			if reading.Amount > row.Max {
				row.Max = reading.Amount
			}
			sum += reading.Amount

			if reading.Amount == 0 {
				until := fightDurationMs
				if i+1 < len(readings) {
					until = readings[i+1].Timestamp
				}
				if until > reading.Timestamp {
					zeroMs += until - reading.Timestamp
				}
			}
		}

		row.Avg = round1(sum / float64(len(readings)))
		row.TimeAtZeroMs = zeroMs
		if fightDurationMs > 0 {
			row.TimeAtZeroPct = clampPct(float64(zeroMs) / float64(fightDurationMs) * 100)
		}
		row.Series = subsample(readings)

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SourceID != rows[j].SourceID {
			return rows[i].SourceID < rows[j].SourceID
		}
		return rows[i].ResourceType < rows[j].ResourceType
	})

	return rows
}

// subsample picks evenly spaced readings so the series stays near the
// target point count for charting.
func subsample(readings []core.Event) []core.SeriesPoint {
	step := 1
	if len(readings) > seriesTargetPoints {
		step = (len(readings) + seriesTargetPoints - 1) / seriesTargetPoints
	}

	series := make([]core.SeriesPoint, 0, seriesTargetPoints+1)
	for i := 0; i < len(readings); i += step {
		series = append(series, core.SeriesPoint{
			TimestampMs: readings[i].Timestamp,
			Value:       readings[i].Amount,
		})
	}

	// Keep the final reading so the chart reaches the end of the fight.
	last := readings[len(readings)-1]
	if series[len(series)-1].TimestampMs != last.Timestamp {
		series = append(series, core.SeriesPoint{TimestampMs: last.Timestamp, Value: last.Amount})
	}

	return series
}
