package core

import "time"

// RateBudgetSnapshot is a point-in-time view of the shared hourly
// request-point budget, as last reported by the remote service.
type RateBudgetSnapshot struct {
	PointsSpent    float64    `json:"points_spent"`
	LimitPerHour   float64    `json:"limit_per_hour"`
	PointsResetIn  int64      `json:"points_reset_in_sec"`
	ThrottledUntil *time.Time `json:"throttled_until,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
