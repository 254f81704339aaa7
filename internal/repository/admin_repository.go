package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursepass-api/internal/models"
)

// AdminRepository provides database access for admin accounts.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository creates a new instance of AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// FindByName returns sql.ErrNoRows when no admin has the given name.
func (r *AdminRepository) FindByName(ctx context.Context, name string) (*models.Admin, error) {
	const query = `SELECT name, password_hash, role, created_at FROM admins WHERE name = $1`
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by name: %w", err)
	}
	return &admin, nil
}

// List returns every admin ordered by name.
func (r *AdminRepository) List(ctx context.Context) ([]models.Admin, error) {
	const query = `SELECT name, password_hash, role, created_at FROM admins ORDER BY name ASC`
	var admins []models.Admin
	if err := r.db.SelectContext(ctx, &admins, query); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// Exists reports whether an admin with name is stored.
func (r *AdminRepository) Exists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM admins WHERE name = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		return false, fmt.Errorf("check admin exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new admin. ErrDuplicate is returned when the name is taken.
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	const query = `INSERT INTO admins (name, password_hash, role, created_at) VALUES (:name, :password_hash, :role, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		if mapped := mapUniqueViolation(err); mapped == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

// CreateIfAbsent inserts admin unless the name exists and reports whether a row was written.
func (r *AdminRepository) CreateIfAbsent(ctx context.Context, admin *models.Admin) (bool, error) {
	const query = `INSERT INTO admins (name, password_hash, role, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, admin.Name, admin.PasswordHash, admin.Role, admin.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed admin rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdatePassword stores a new hash. sql.ErrNoRows is returned for unknown admins.
func (r *AdminRepository) UpdatePassword(ctx context.Context, name, passwordHash string) error {
	const query = `UPDATE admins SET password_hash = $2 WHERE name = $1`
	res, err := r.db.ExecContext(ctx, query, name, passwordHash)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	return requireAffected(res, "update admin password")
}

// Delete removes the admin. sql.ErrNoRows is returned for unknown admins.
func (r *AdminRepository) Delete(ctx context.Context, name string) error {
	const query = `DELETE FROM admins WHERE name = $1`
	res, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	return requireAffected(res, "delete admin")
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
