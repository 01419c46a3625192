package core

// Derived-metric records. Each is computed once per (fight, player[,
// ability]) by the metrics package and owned by the caller afterwards.
// Percentage fields are rounded half-up to one decimal and bounded to
// [0, 100]; durations are milliseconds unless the field name says *Sec.

// CastActivity summarizes global-cooldown usage for one player in one fight.
type CastActivity struct {
	SourceID       int     `json:"source_id"`
	TotalCasts     int     `json:"total_casts"`
	ActiveTimeMs   int64   `json:"active_time_ms"`
	DowntimeMs     int64   `json:"downtime_ms"`
	GCDUptimePct   float64 `json:"gcd_uptime_pct"`
	CastsPerMinute float64 `json:"casts_per_minute"`
	GapCount       int     `json:"gap_count"`
	LongestGapMs   int64   `json:"longest_gap_ms"`
	AvgGapMs       float64 `json:"avg_gap_ms"`
}

// CooldownUsage reports how often a tracked cooldown was used against its
// theoretical maximum for the fight length.
type CooldownUsage struct {
	SourceID        int     `json:"source_id"`
	AbilityID       int     `json:"ability_id"`
	AbilityName     string  `json:"ability_name"`
	CooldownSec     int     `json:"cooldown_sec"`
	TimesUsed       int     `json:"times_used"`
	MaxPossibleUses int     `json:"max_possible_uses"`
	EfficiencyPct   float64 `json:"efficiency_pct"`
	FirstUseMs      *int64  `json:"first_use_ms,omitempty"`
	LastUseMs       *int64  `json:"last_use_ms,omitempty"`
}

// CooldownWindow measures throughput inside one activation of a tracked
// cooldown versus the baseline outside all tracked windows.
type CooldownWindow struct {
	SourceID     int     `json:"source_id"`
	AbilityID    int     `json:"ability_id"`
	AbilityName  string  `json:"ability_name"`
	ActivationMs int64   `json:"activation_ms"`
	WindowSec    int     `json:"window_sec"`
	WindowDamage float64 `json:"window_damage"`
	WindowDPS    float64 `json:"window_dps"`
	BaselineDPS  float64 `json:"baseline_dps"`
	DPSGainPct   float64 `json:"dps_gain_pct"`
}

// CancelledCastSummary counts begin-cast events that never completed for
// one (player, ability) pair.
type CancelledCastSummary struct {
	SourceID    int     `json:"source_id"`
	AbilityID   int     `json:"ability_id"`
	Begins      int     `json:"begins"`
	Completions int     `json:"completions"`
	CancelCount int     `json:"cancel_count"`
	CancelPct   float64 `json:"cancel_pct"`
}

// DotRefreshSummary scores refresh discipline for one tracked
// damage-over-time spell cast by one player.
type DotRefreshSummary struct {
	SourceID        int     `json:"source_id"`
	AbilityID       int     `json:"ability_id"`
	AbilityName     string  `json:"ability_name"`
	TotalRefreshes  int     `json:"total_refreshes"`
	EarlyRefreshes  int     `json:"early_refreshes"`
	EarlyRefreshPct float64 `json:"early_refresh_pct"`
	AvgRemainingMs  float64 `json:"avg_remaining_ms"`
	ClippedTicksEst int     `json:"clipped_ticks_est"`
}

// SeriesPoint is one sample in a bounded charting series.
type SeriesPoint struct {
	TimestampMs int64   `json:"t"`
	Value       float64 `json:"v"`
}

// ResourceMetrics summarizes one (player, resource type) stream.
type ResourceMetrics struct {
	SourceID      int           `json:"source_id"`
	ResourceType  int           `json:"resource_type"`
	ResourceName  string        `json:"resource_name"`
	Min           float64       `json:"min"`
	Max           float64       `json:"max"`
	Avg           float64       `json:"avg"`
	TimeAtZeroMs  int64         `json:"time_at_zero_ms"`
	TimeAtZeroPct float64       `json:"time_at_zero_pct"`
	Series        []SeriesPoint `json:"series,omitempty"`
}

// PhaseWindow is one named slice of a fight, resolved from fractional
// boundaries to absolute milliseconds. Boundaries are estimates derived
// from fight duration, not from in-fight triggers.
type PhaseWindow struct {
	Name       string  `json:"name"`
	PctStart   float64 `json:"pct_start"`
	PctEnd     float64 `json:"pct_end"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	IsDowntime bool    `json:"is_downtime"`
}

// PhaseMetric reports per-phase activity for one player.
type PhaseMetric struct {
	PhaseName  string  `json:"phase_name"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	IsDowntime bool    `json:"is_downtime"`
	CastCount  int     `json:"cast_count"`
	Damage     float64 `json:"damage"`
	DPS        float64 `json:"dps"`
}

// RuleResult is the outcome of one rotation rule check.
type RuleResult struct {
	RuleName    string  `json:"rule_name"`
	Description string  `json:"description"`
	Passed      bool    `json:"passed"`
	Actual      float64 `json:"actual"`
	Expected    float64 `json:"expected"`
	Detail      string  `json:"detail"`
}

// RotationReport scores a player's play against a spec's rule list.
type RotationReport struct {
	Spec         string       `json:"spec"`
	RulesChecked int          `json:"rules_checked"`
	RulesPassed  int          `json:"rules_passed"`
	ScorePct     float64      `json:"score_pct"`
	Violations   []RuleResult `json:"violations,omitempty"`
}

// FightMetrics bundles every derived row for one fight, keyed by the
// report it came from. The store persists exactly this shape.
type FightMetrics struct {
	ReportCode      string                 `json:"report_code"`
	Fight           Fight                  `json:"fight"`
	CastActivity    []CastActivity         `json:"cast_activity,omitempty"`
	CooldownUsage   []CooldownUsage        `json:"cooldown_usage,omitempty"`
	CooldownWindows []CooldownWindow       `json:"cooldown_windows,omitempty"`
	CancelledCasts  []CancelledCastSummary `json:"cancelled_casts,omitempty"`
	DotRefresh      []DotRefreshSummary    `json:"dot_refresh,omitempty"`
	Resources       []ResourceMetrics      `json:"resources,omitempty"`
	PhaseMetrics    []PhaseMetric          `json:"phase_metrics,omitempty"`
	Rotation        *RotationReport        `json:"rotation,omitempty"`
}
