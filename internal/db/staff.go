package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"showdesk/internal/models"
)

type StaffRepository struct {
	db *DB
}

func NewStaffRepository(db *DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Upsert provisions or refreshes a staff member keyed by email. Roles are
// replaced wholesale.
func (r *StaffRepository) Upsert(ctx context.Context, displayName, email, accessKeyHash string, roleKeys []string) (*models.StaffMember, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting staff upsert: %w", err)
	}
	defer tx.Rollback()

	var staffID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM staff WHERE email = ?`, email).Scan(&staffID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		staffID, err = GenerateID("stf")
		if err != nil {
			return nil, fmt.Errorf("generating staff ID: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO staff (id, display_name, email, access_key_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
			staffID, displayName, email, accessKeyHash, now,
		)
		if err != nil {
			return nil, fmt.Errorf("creating staff member: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("looking up staff member: %w", err)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE staff SET display_name = ?, access_key_hash = ?, updated_at = ? WHERE id = ?`,
			displayName, accessKeyHash, now, staffID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating staff member: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM staff_roles WHERE staff_id = ?`, staffID); err != nil {
		return nil, fmt.Errorf("clearing staff roles: %w", err)
	}
	for _, key := range roleKeys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO staff_roles (staff_id, role_key) VALUES (?, ?)`, staffID, key,
		); err != nil {
			return nil, fmt.Errorf("assigning staff role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing staff upsert: %w", err)
	}

	return &models.StaffMember{
		ID:          staffID,
		DisplayName: displayName,
		Email:       email,
		RoleKeys:    append([]string(nil), roleKeys...),
		CreatedAt:   now,
	}, nil
}

func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.StaffMember, error) {
	return r.findBy(ctx, `WHERE id = ?`, id)
}

func (r *StaffRepository) FindByEmail(ctx context.Context, email string) (*models.StaffMember, error) {
	return r.findBy(ctx, `WHERE email = ?`, email)
}

func (r *StaffRepository) findBy(ctx context.Context, where string, arg any) (*models.StaffMember, error) {
	var m models.StaffMember
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, display_name, email, created_at, updated_at FROM staff `+where, arg,
	).Scan(&m.ID, &m.DisplayName, &m.Email, &m.CreatedAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying staff member: %w", err)
	}

	m.UpdatedAt = nullTimeToPtr(updatedAt)

	roles, err := r.rolesFor(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	m.RoleKeys = roles

	return &m, nil
}

// AccessKeyHash returns the stored login hash for the email.
func (r *StaffRepository) AccessKeyHash(ctx context.Context, email string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx, `SELECT access_key_hash FROM staff WHERE email = ?`, email).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying staff access key: %w", err)
	}
	return hash, nil
}

// List returns every staff member ordered by display name, roles included.
func (r *StaffRepository) List(ctx context.Context) ([]*models.StaffMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, display_name, email, created_at, updated_at FROM staff ORDER BY display_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying staff: %w", err)
	}
	defer rows.Close()

	members := make([]*models.StaffMember, 0)
	for rows.Next() {
		var m models.StaffMember
		var updatedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.Email, &m.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning staff member: %w", err)
		}
		m.UpdatedAt = nullTimeToPtr(updatedAt)
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating staff: %w", err)
	}

	for _, m := range members {
		roles, err := r.rolesFor(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		m.RoleKeys = roles
	}

	return members, nil
}

// RoleKeys returns the distinct role keys held by anyone on staff.
func (r *StaffRepository) RoleKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT role_key FROM staff_roles ORDER BY role_key`)
	if err != nil {
		return nil, fmt.Errorf("querying role keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning role key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *StaffRepository) rolesFor(ctx context.Context, staffID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_key FROM staff_roles WHERE staff_id = ? ORDER BY role_key`, staffID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying staff roles: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning staff role: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
