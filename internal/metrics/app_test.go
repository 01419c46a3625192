package metrics

import (
	"testing"
	"time"

	"github.com/raidlens/raidlens/internal/observability"
)

// The recorders must be safe no-ops before InitMetrics has run.
func TestRecordersAreNoOpsWithoutTelemetry(t *testing.T) {
	if observability.TelemetrySystem != nil {
		t.Fatal("test requires uninitialized telemetry")
	}

	RecordAPIRequest(true)
	RecordAPIRequest(false)
	RecordAPIRetry("throttled")
	RecordThrottleWait(1500 * time.Millisecond)
	RecordPagesFetched("Casts", 3)
	RecordFightIngested("Patchwerk")
	RecordMetricRows("cast_activity", 12)
	SetServerStartTime(time.Now().Unix())
	RecordError("INTERNAL_ERROR", 500)
	RecordPanic()
	RecordErrorByEndpoint("/api/v1/ratelimit", "INTERNAL_ERROR")
}
