package domain

import "time"

// CoarseStatus three-valued UI summary of a booking status
type CoarseStatus string

const (
	CoarseUpcoming  CoarseStatus = "upcoming"
	CoarseActive    CoarseStatus = "active"
	CoarseCompleted CoarseStatus = "completed"
)

// Milestone one step of the displayed progress timeline
type Milestone struct {
	Title       string
	Description string
	Completed   bool
	At          *time.Time
}

// BookingView derived, never persisted view of a booking
type BookingView struct {
	BookingID    int64
	RawStatus    BookingStatus
	CoarseStatus CoarseStatus
	Progress     int
	Milestones   []Milestone
	ETALabel     string
	Countdown    *string
	Booking      Booking
}

// Clone returns a copy that shares no mutable state with the receiver
func (v BookingView) Clone() BookingView {
	out := v
	out.Milestones = make([]Milestone, len(v.Milestones))
	copy(out.Milestones, v.Milestones)
	if v.Countdown != nil {
		c := *v.Countdown
		out.Countdown = &c
	}
	return out
}
