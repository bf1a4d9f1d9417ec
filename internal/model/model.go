package model

import "time"

// Reservation lifecycle states. Cancelled is terminal; confirmed may only
// move to cancelled.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCancelled
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Address      string
	Latitude     *float64
	Longitude    *float64
	CreatedAt    time.Time
}

type Business struct {
	ID        string
	OwnerID   string
	Name      string
	Email     string
	Phone     string
	Address   string
	Latitude  *float64
	Longitude *float64
	OpensAt   string // "HH:MM", business-local
	ClosesAt  string // "HH:MM"; closes_at <= opens_at means the window spills into the next day
	CreatedAt time.Time
}

type Service struct {
	ID           string
	BusinessID   string
	Name         string
	Description  string
	DurationMins int
	Price        string
	CreatedAt    time.Time
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMins) * time.Minute
}

type Reservation struct {
	ID        string
	ServiceID string
	ClientID  string
	StartsAt  time.Time
	EndsAt    time.Time
	Status    string
	CreatedAt time.Time
}

// ReservationDetail is a reservation joined with its service and business
// summaries, as returned by the list endpoints. ClientName is filled only by
// the owner-facing business listing.
type ReservationDetail struct {
	Reservation
	ServiceName  string
	BusinessID   string
	BusinessName string
	ClientName   string
}
