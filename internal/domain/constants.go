package domain

import "time"

// Defaults for time-dependent rules
const (
	DefaultCountdownLookAhead = 60 * time.Minute
	DefaultRefundWindow       = 24 * time.Hour
	DefaultTickInterval       = 30 * time.Second
)

// Business validation constants
const (
	MaxCancellationReasonLength = 500
	RescheduleReason            = "rescheduled"
)
