package storage

import (
	"context"

	"github.com/DavidTortosaaa/gestor-reservas/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, phone, address, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.Address, u.Latitude, u.Longitude)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return s.scanUser(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.scanUser(ctx, `WHERE email = $1`, email)
}

func (s *Store) UpdateUser(ctx context.Context, u model.User) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users
		SET name = $2,
			password_hash = $3,
			phone = $4,
			address = $5,
			latitude = $6,
			longitude = $7
		WHERE id = $1
	`, u.ID, u.Name, u.PasswordHash, u.Phone, u.Address, u.Latitude, u.Longitude)
	return err
}

func (s *Store) scanUser(ctx context.Context, where string, arg any) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, name, email, password_hash, COALESCE(phone, ''), COALESCE(address, ''),
			latitude, longitude, created_at
		FROM users
	`+where, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Phone,
		&u.Address,
		&u.Latitude,
		&u.Longitude,
		&u.CreatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}
