package durable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/models"
)

// GetAllUsers lists the shared user table, ordered by username. The UI loads
// this off the interactive thread; authentication itself is handled
// elsewhere, so password hashes are never returned.
func (s *Store) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var result []models.User
	err := s.do(ctx, func(ctx context.Context) error {
		db, err := s.usersDB(ctx)
		if err != nil {
			return err
		}
		rows, err := db.QueryContext(ctx, `SELECT id, username, created_at FROM users ORDER BY username`)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			var u models.User
			var created string
			if err := rows.Scan(&u.ID, &u.Username, &created); err != nil {
				return err
			}
			u.CreatedAt = models.ParseTime(created)
			result = append(result, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return result, nil
}

// GetUserByUsername returns a single user or common.ErrNotFound.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.do(ctx, func(ctx context.Context) error {
		db, err := s.usersDB(ctx)
		if err != nil {
			return err
		}
		var created string
		err = db.QueryRowContext(ctx,
			`SELECT id, username, created_at FROM users WHERE username = ?`, username).
			Scan(&u.ID, &u.Username, &created)
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		if err != nil {
			return err
		}
		u.CreatedAt = models.ParseTime(created)
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user %s: %w", username, err)
	}
	return &u, nil
}
