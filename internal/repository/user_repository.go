package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-events-api/internal/models"
)

// UserRepository provides database access for users and their role profiles.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByCredentials returns the user matching name, plain-text password and role.
func (r *UserRepository) FindByCredentials(ctx context.Context, name, password string, role models.UserRole) (*models.User, error) {
	const query = `SELECT user_id, user_name, user_role, user_pass FROM users WHERE user_name = $1 AND user_pass = $2 AND user_role = $3 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, name, password, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by credentials: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error) {
	const query = `SELECT user_id, user_name, user_role, user_pass FROM users WHERE user_id = $1 LIMIT 1`
	var user models.User
	if err := sqlx.GetContext(ctx, target(r.db, exec), &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListByRole returns users of one role.
func (r *UserRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	const query = `SELECT user_id, user_name, user_role, user_pass FROM users WHERE user_role = $1 ORDER BY user_id ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// Create inserts a user.
func (r *UserRepository) Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	const query = `INSERT INTO users (user_id, user_name, user_role, user_pass) VALUES (:user_id, :user_name, :user_role, :user_pass)`
	if _, err := sqlx.NamedExecContext(ctx, target(r.db, exec), query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// CreateProfile inserts the teacher or student subtype row for a user.
func (r *UserRepository) CreateProfile(ctx context.Context, exec sqlx.ExtContext, role models.UserRole, profile *models.Profile) error {
	var table string
	switch role {
	case models.RoleTeacher:
		table = "teachers"
	case models.RoleStudent:
		table = "students"
	default:
		return fmt.Errorf("role %q has no profile table", role)
	}
	query := fmt.Sprintf(`INSERT INTO %s (user_id, first_name, last_name) VALUES (:user_id, :first_name, :last_name)`, table)
	if _, err := sqlx.NamedExecContext(ctx, target(r.db, exec), query, profile); err != nil {
		return fmt.Errorf("create %s profile: %w", table, err)
	}
	return nil
}
