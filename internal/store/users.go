package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// User is one entry of the identity directory.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(ctx context.Context, u User) error {
	if u.ID == "" {
		return fmt.Errorf("put user: empty id is reserved for the system actor")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name
	`, u.ID, u.DisplayName)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// LookupUser returns the display name for id. The boolean is false when the
// user is unknown.
func (s *Store) LookupUser(ctx context.Context, id string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT display_name FROM users WHERE id = ?
	`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup user: %w", err)
	}
	return name, true, nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name FROM users ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
