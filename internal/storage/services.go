package storage

import (
	"context"

	"github.com/DavidTortosaaa/gestor-reservas/internal/model"
)

func (s *Store) CreateService(ctx context.Context, svc model.Service) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO services (id, business_id, name, description, duration_minutes, price)
		VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, ''), '0')::numeric)
	`, svc.ID, svc.BusinessID, svc.Name, svc.Description, svc.DurationMins, svc.Price)
	return err
}

func (s *Store) GetService(ctx context.Context, id string) (model.Service, error) {
	var svc model.Service
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, COALESCE(description, ''), duration_minutes, price::text, created_at
		FROM services
		WHERE id = $1
	`, id).Scan(&svc.ID, &svc.BusinessID, &svc.Name, &svc.Description, &svc.DurationMins, &svc.Price, &svc.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	return svc, nil
}

func (s *Store) ListServicesByBusiness(ctx context.Context, businessID string) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, COALESCE(description, ''), duration_minutes, price::text, created_at
		FROM services
		WHERE business_id = $1
		ORDER BY created_at DESC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.BusinessID, &svc.Name, &svc.Description, &svc.DurationMins, &svc.Price, &svc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) UpdateService(ctx context.Context, svc model.Service) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE services
		SET name = $2,
			description = $3,
			duration_minutes = $4,
			price = COALESCE(NULLIF($5, ''), '0')::numeric
		WHERE id = $1
	`, svc.ID, svc.Name, svc.Description, svc.DurationMins, svc.Price)
	return err
}

// DeleteService cascades to the service's reservations.
func (s *Store) DeleteService(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	return err
}
