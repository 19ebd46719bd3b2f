package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/internal/models"
	"github.com/noah-isme/sma-events-api/pkg/database"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
)

type userRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error
	CreateProfile(ctx context.Context, exec sqlx.ExtContext, role models.UserRole, profile *models.Profile) error
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// UserService lets administrators register teachers and students.
type UserService struct {
	tx        txProvider
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(tx txProvider, repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{tx: tx, repo: repo, validator: validate, logger: logger}
}

// CreateUser inserts the user row and its role profile atomically.
func (s *UserService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (user *models.User, err error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.UserName = strings.TrimSpace(req.UserName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classify(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			rollbackTx(tx, s.logger)
		}
	}()

	user = &models.User{ID: req.UserID, Name: req.UserName, Role: models.UserRole(req.Role), Password: req.Password}
	if err = s.repo.Create(ctx, tx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "user id already exists")
		}
		return nil, classify(err, "failed to create user")
	}
	profile := &models.Profile{UserID: user.ID, FirstName: strings.TrimSpace(req.FirstName), LastName: strings.TrimSpace(req.LastName)}
	if err = s.repo.CreateProfile(ctx, tx, user.Role, profile); err != nil {
		return nil, classify(err, "failed to create user profile")
	}
	if err = tx.Commit(); err != nil {
		return nil, classify(err, "failed to commit user")
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// ListByRole returns users of one role.
func (s *UserService) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	r := models.UserRole(role)
	if !r.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be Admin, Teacher or Student")
	}
	users, err := s.repo.ListByRole(ctx, r)
	if err != nil {
		return nil, classify(err, "failed to list users")
	}
	return users, nil
}
