package storage

import (
	"context"

	"github.com/DavidTortosaaa/gestor-reservas/internal/model"
)

const businessColumns = `
	id::text, owner_id::text, name, email, COALESCE(phone, ''), COALESCE(address, ''),
	latitude, longitude, opens_at, closes_at, created_at`

func (s *Store) CreateBusiness(ctx context.Context, b model.Business) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO businesses (id, owner_id, name, email, phone, address, latitude, longitude, opens_at, closes_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, b.ID, b.OwnerID, b.Name, b.Email, b.Phone, b.Address, b.Latitude, b.Longitude, b.OpensAt, b.ClosesAt)
	return err
}

func (s *Store) GetBusiness(ctx context.Context, id string) (model.Business, error) {
	var b model.Business
	err := s.pool.QueryRow(ctx, `
		SELECT `+businessColumns+`
		FROM businesses
		WHERE id = $1
	`, id).Scan(
		&b.ID, &b.OwnerID, &b.Name, &b.Email, &b.Phone, &b.Address,
		&b.Latitude, &b.Longitude, &b.OpensAt, &b.ClosesAt, &b.CreatedAt,
	)
	if err != nil {
		return model.Business{}, err
	}
	return b, nil
}

func (s *Store) ListBusinesses(ctx context.Context) ([]model.Business, error) {
	return s.listBusinesses(ctx, `ORDER BY created_at DESC`)
}

func (s *Store) ListBusinessesByOwner(ctx context.Context, ownerID string) ([]model.Business, error) {
	return s.listBusinesses(ctx, `WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

// ListGeolocatedBusinesses returns businesses with coordinates, for the
// nearby search. Distance filtering happens in the handler.
func (s *Store) ListGeolocatedBusinesses(ctx context.Context) ([]model.Business, error) {
	return s.listBusinesses(ctx, `WHERE latitude IS NOT NULL AND longitude IS NOT NULL`)
}

func (s *Store) UpdateBusiness(ctx context.Context, b model.Business) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE businesses
		SET name = $2,
			email = $3,
			phone = $4,
			address = $5,
			latitude = $6,
			longitude = $7,
			opens_at = $8,
			closes_at = $9
		WHERE id = $1
	`, b.ID, b.Name, b.Email, b.Phone, b.Address, b.Latitude, b.Longitude, b.OpensAt, b.ClosesAt)
	return err
}

// DeleteBusiness cascades to the business's services and their reservations.
func (s *Store) DeleteBusiness(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM businesses WHERE id = $1`, id)
	return err
}

func (s *Store) listBusinesses(ctx context.Context, tail string, args ...any) ([]model.Business, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+businessColumns+`
		FROM businesses
	`+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(
			&b.ID, &b.OwnerID, &b.Name, &b.Email, &b.Phone, &b.Address,
			&b.Latitude, &b.Longitude, &b.OpensAt, &b.ClosesAt, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
