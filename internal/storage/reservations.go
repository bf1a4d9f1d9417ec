package storage

import (
	"context"
	"time"

	"github.com/DavidTortosaaa/gestor-reservas/internal/availability"
	"github.com/DavidTortosaaa/gestor-reservas/internal/model"
	"github.com/DavidTortosaaa/gestor-reservas/internal/outbox"
)

const reservationColumns = `
	id::text, service_id::text, client_id::text, starts_at, ends_at, status, created_at`

// CreateReservation inserts the reservation and its outbox event in one
// transaction. The reservations exclusion constraint rejects any insert
// whose [starts_at, ends_at) range overlaps a non-cancelled reservation for
// the same service; callers detect that with IsConflict.
func (s *Store) CreateReservation(ctx context.Context, res *model.Reservation, evt outbox.Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO reservations (id, service_id, client_id, starts_at, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, res.ID, res.ServiceID, res.ClientID, res.StartsAt, res.EndsAt, res.Status).Scan(&res.CreatedAt)
	if err != nil {
		return err
	}

	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetReservation(ctx context.Context, id string) (model.Reservation, error) {
	var res model.Reservation
	err := s.pool.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
	`, id).Scan(&res.ID, &res.ServiceID, &res.ClientID, &res.StartsAt, &res.EndsAt, &res.Status, &res.CreatedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// ListActiveIntervals returns the occupied intervals of non-cancelled
// reservations for a service intersecting [from, to).
func (s *Store) ListActiveIntervals(ctx context.Context, serviceID string, from, to time.Time) ([]availability.Interval, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT starts_at, ends_at
		FROM reservations
		WHERE service_id = $1
			AND status <> 'cancelled'
			AND starts_at < $3
			AND ends_at > $2
		ORDER BY starts_at ASC
	`, serviceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// UpdateReservationStatus sets the new status and, when evt is non-nil,
// writes the outbox event in the same transaction. The WHERE clause encodes
// the state machine (cancelled is terminal; confirm requires pending), so a
// losing writer in a race sees zero rows -> pgx.ErrNoRows rather than
// resurrecting a cancelled reservation.
func (s *Store) UpdateReservationStatus(ctx context.Context, id string, status string, evt *outbox.Event) (model.Reservation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Reservation{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var res model.Reservation
	err = tx.QueryRow(ctx, `
		UPDATE reservations
		SET status = $2
		WHERE id = $1
			AND status <> 'cancelled'
			AND ($2 <> 'confirmed' OR status = 'pending')
		RETURNING `+reservationColumns+`
	`, id, status).Scan(&res.ID, &res.ServiceID, &res.ClientID, &res.StartsAt, &res.EndsAt, &res.Status, &res.CreatedAt)
	if err != nil {
		return model.Reservation{}, err
	}

	if evt != nil {
		if err := s.outbox.Insert(ctx, tx, *evt); err != nil {
			return model.Reservation{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// DeleteStaleReservations removes a client's past reservations still in
// pending or cancelled state. Confirmed reservations are kept as history.
func (s *Store) DeleteStaleReservations(ctx context.Context, clientID string, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM reservations
		WHERE client_id = $1
			AND starts_at < $2
			AND status IN ('pending', 'cancelled')
	`, clientID, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteStaleReservationsByBusiness is the owner-side counterpart of
// DeleteStaleReservations, scoped to one business's services.
func (s *Store) DeleteStaleReservationsByBusiness(ctx context.Context, businessID string, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM reservations r
		USING services s
		WHERE s.id = r.service_id
			AND s.business_id = $1
			AND r.starts_at < $2
			AND r.status IN ('pending', 'cancelled')
	`, businessID, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListReservationsByBusiness returns every reservation booked against the
// business's services, with the client's name for the owner dashboard. An
// empty status matches all statuses; a zero day matches all days.
func (s *Store) ListReservationsByBusiness(ctx context.Context, businessID string, status string, day time.Time) ([]model.ReservationDetail, error) {
	var dayArg any
	if !day.IsZero() {
		dayArg = day
	}
	rows, err := s.pool.Query(ctx, `
		SELECT r.id::text, r.service_id::text, r.client_id::text, r.starts_at, r.ends_at, r.status, r.created_at,
			s.name, b.id::text, b.name, u.name
		FROM reservations r
		JOIN services s ON s.id = r.service_id
		JOIN businesses b ON b.id = s.business_id
		JOIN users u ON u.id = r.client_id
		WHERE b.id = $1
			AND ($2 = '' OR r.status = $2)
			AND ($3::timestamptz IS NULL OR (r.starts_at >= $3 AND r.starts_at < $3 + interval '1 day'))
		ORDER BY r.starts_at ASC
	`, businessID, status, dayArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ReservationDetail
	for rows.Next() {
		var d model.ReservationDetail
		if err := rows.Scan(
			&d.ID, &d.ServiceID, &d.ClientID, &d.StartsAt, &d.EndsAt, &d.Status, &d.CreatedAt,
			&d.ServiceName, &d.BusinessID, &d.BusinessName, &d.ClientName,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) ListReservationsByClient(ctx context.Context, clientID string) ([]model.ReservationDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id::text, r.service_id::text, r.client_id::text, r.starts_at, r.ends_at, r.status, r.created_at,
			s.name, b.id::text, b.name
		FROM reservations r
		JOIN services s ON s.id = r.service_id
		JOIN businesses b ON b.id = s.business_id
		WHERE r.client_id = $1
		ORDER BY r.starts_at ASC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ReservationDetail
	for rows.Next() {
		var d model.ReservationDetail
		if err := rows.Scan(
			&d.ID, &d.ServiceID, &d.ClientID, &d.StartsAt, &d.EndsAt, &d.Status, &d.CreatedAt,
			&d.ServiceName, &d.BusinessID, &d.BusinessName,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
