package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DavidTortosaaa/gestor-reservas/internal/email"
)

type reservationCreatedPayload struct {
	ReservationID string `json:"reservation_id"`
	ServiceName   string `json:"service_name"`
	BusinessName  string `json:"business_name"`
	OwnerEmail    string `json:"owner_email"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
}

type statusChangedPayload struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	ServiceName   string `json:"service_name"`
	BusinessName  string `json:"business_name"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	StartsAt      string `json:"starts_at"`
}

// Mailer turns reservation events into emails. A malformed payload is
// logged and dropped rather than retried: re-reading it will not fix it.
type Mailer struct {
	sender email.Sender
	logger *slog.Logger
}

func NewMailer(sender email.Sender, logger *slog.Logger) *Mailer {
	return &Mailer{sender: sender, logger: logger}
}

// HandleReservationCreated notifies the business owner of a new booking.
func (m *Mailer) HandleReservationCreated(_ context.Context, msg kafka.Message) error {
	var p reservationCreatedPayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		m.logger.Error("invalid reservation.created payload", "err", err)
		return nil
	}
	if p.OwnerEmail == "" || p.ReservationID == "" {
		m.logger.Error("missing reservation.created fields", "reservation_id", p.ReservationID)
		return nil
	}

	subject := fmt.Sprintf("New reservation: %s", p.ServiceName)
	body := fmt.Sprintf(
		"Hello,\n\n%s booked %q at %s for %s.\n\nLog in to confirm or cancel the reservation.\n",
		orUnknown(p.ClientName), p.ServiceName, p.BusinessName, humanTime(p.StartsAt),
	)
	if err := m.sender.Send(email.Message{To: p.OwnerEmail, Subject: subject, Body: body}); err != nil {
		m.logger.Error("owner email failed", "err", err, "reservation_id", p.ReservationID)
		return err
	}
	m.logger.Info("owner notified", "reservation_id", p.ReservationID, "recipient", p.OwnerEmail)
	return nil
}

// HandleStatusChanged notifies the client of an owner decision.
func (m *Mailer) HandleStatusChanged(_ context.Context, msg kafka.Message) error {
	var p statusChangedPayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		m.logger.Error("invalid status_changed payload", "err", err)
		return nil
	}
	if p.ClientEmail == "" || p.ReservationID == "" {
		m.logger.Error("missing status_changed fields", "reservation_id", p.ReservationID)
		return nil
	}

	subject := fmt.Sprintf("Reservation %s: %s", p.Status, p.ServiceName)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour reservation for %q at %s on %s is now %s.\n",
		orUnknown(p.ClientName), p.ServiceName, p.BusinessName, humanTime(p.StartsAt), p.Status,
	)
	if err := m.sender.Send(email.Message{To: p.ClientEmail, Subject: subject, Body: body}); err != nil {
		m.logger.Error("client email failed", "err", err, "reservation_id", p.ReservationID)
		return err
	}
	m.logger.Info("client notified", "reservation_id", p.ReservationID, "recipient", p.ClientEmail, "status", p.Status)
	return nil
}

func orUnknown(name string) string {
	if name == "" {
		return "a client"
	}
	return name
}

func humanTime(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.Format("Mon, 02 Jan 2006 15:04 MST")
}
