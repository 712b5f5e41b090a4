package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus represents the raw lifecycle status of a booking
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusEnRoute    BookingStatus = "cleaner_en_route"
	StatusArrived    BookingStatus = "cleaner_arrived"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

// AllStatuses closed set of raw statuses known to the service
var AllStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusEnRoute,
	StatusArrived,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// LifecycleOrder canonical forward order of a booking lifecycle.
// Cancelled is terminal but sits outside the order.
var LifecycleOrder = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusEnRoute,
	StatusArrived,
	StatusInProgress,
	StatusCompleted,
}

// InFlightStatuses statuses in which a provider is committed to the job
var InFlightStatuses = []BookingStatus{
	StatusConfirmed,
	StatusEnRoute,
	StatusArrived,
	StatusInProgress,
}

// IsKnown returns true if the status belongs to the closed set
func (s BookingStatus) IsKnown() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Rank returns the position of the status in LifecycleOrder.
// Cancelled ranks after completed so that nothing can follow it.
func (s BookingStatus) Rank() (int, bool) {
	if s == StatusCancelled {
		return len(LifecycleOrder), true
	}
	for i, st := range LifecycleOrder {
		if s == st {
			return i, true
		}
	}
	return -1, false
}

// IsTerminal returns true for completed and cancelled
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ActorRole who initiated an operation on a booking
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleProvider ActorRole = "provider"
)

// IsValid returns true for a known role
func (r ActorRole) IsValid() bool {
	return r == RoleCustomer || r == RoleProvider
}

// Booking represents a scheduled service engagement
type Booking struct {
	ID              int64
	CustomerID      int64
	ProviderID      int64 // counterpart (service provider)
	AddressID       int64
	Status          BookingStatus
	ScheduledAt     time.Time
	DurationMinutes int
	Total           decimal.Decimal
	ServiceName     string

	CancellationReason *string
	CancelledBy        *ActorRole
	RefundAmount       *decimal.Decimal
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsInFlight returns true if the booking is confirmed and not yet finished
func (b *Booking) IsInFlight() bool {
	for _, s := range InFlightStatuses {
		if b.Status == s {
			return true
		}
	}
	return false
}

// EndsAt scheduled time plus estimated duration
func (b *Booking) EndsAt() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// CounterpartFor returns the other side of the booking for the given user
func (b *Booking) CounterpartFor(userID int64) int64 {
	if b.CustomerID == userID {
		return b.ProviderID
	}
	return b.CustomerID
}
