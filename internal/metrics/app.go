// Package metrics emits application telemetry counters. All helpers are
// no-ops until observability.InitMetrics has run, so CLI commands that
// never start the exporter can call them freely.
package metrics

import (
	"time"

	"github.com/raidlens/raidlens/internal/observability"
)

// Metric names following Prometheus conventions.
var (
	APIRequestsTotal   = "app_api_requests_total"
	APIRetriesTotal    = "app_api_retries_total"
	ThrottleWaitsTotal = "app_throttle_waits_total"
	ThrottleWaitMs     = "app_throttle_wait_duration_ms"
	PagesFetchedTotal  = "app_pages_fetched_total"
	FightsIngested     = "app_fights_ingested_total"
	MetricRowsTotal    = "app_metric_rows_total"

	ServerStartTime = "app_server_start_time_seconds"
)

// RecordAPIRequest records one GraphQL request with its final status.
func RecordAPIRequest(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			APIRequestsTotal,
			1,
			map[string]string{"status": status},
		)
	}
}

// RecordAPIRetry records one retried request attempt.
func RecordAPIRetry(reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			APIRetriesTotal,
			1,
			map[string]string{"reason": reason},
		)
	}
}

// RecordThrottleWait records time spent sleeping on the rate budget.
func RecordThrottleWait(d time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(ThrottleWaitsTotal, 1, nil)
		_ = observability.TelemetrySystem.Histogram(ThrottleWaitMs, d, nil)
	}
}

// RecordPagesFetched records pages pulled for one event stream.
func RecordPagesFetched(dataType string, pages int) {
	if observability.TelemetrySystem != nil && pages > 0 {
		_ = observability.TelemetrySystem.Counter(
			PagesFetchedTotal,
			float64(pages),
			map[string]string{"data_type": dataType},
		)
	}
}

// RecordFightIngested records one fully processed fight.
func RecordFightIngested(encounter string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			FightsIngested,
			1,
			map[string]string{"encounter": encounter},
		)
	}
}

// RecordMetricRows records derived rows written to the store for one family.
func RecordMetricRows(family string, rows int) {
	if observability.TelemetrySystem != nil && rows > 0 {
		_ = observability.TelemetrySystem.Counter(
			MetricRowsTotal,
			float64(rows),
			map[string]string{"family": family},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp).
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}
