package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
)

type userRepoStub struct {
	users      []models.User
	profiles   map[models.UserRole][]models.Profile
	createErr  error
	profileErr error
}

func (s *userRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.users = append(s.users, *user)
	return nil
}

func (s *userRepoStub) CreateProfile(ctx context.Context, exec sqlx.ExtContext, role models.UserRole, profile *models.Profile) error {
	if s.profileErr != nil {
		return s.profileErr
	}
	if s.profiles == nil {
		s.profiles = map[models.UserRole][]models.Profile{}
	}
	s.profiles[role] = append(s.profiles[role], *profile)
	return nil
}

func (s *userRepoStub) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	out := []models.User{}
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func validUserRequest() dto.CreateUserRequest {
	return dto.CreateUserRequest{UserID: " S10 ", UserName: "carol", Password: "pw", Role: "Student", FirstName: "Carol", LastName: "Danvers"}
}

func TestUserServiceCreateUser(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &userRepoStub{}
	svc := NewUserService(tx, repo, nil, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()
	user, err := svc.CreateUser(context.Background(), validUserRequest())
	require.NoError(t, err)
	assert.Equal(t, "S10", user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, []models.Profile{{UserID: "S10", FirstName: "Carol", LastName: "Danvers"}}, repo.profiles[models.RoleStudent])

	students, err := svc.ListByRole(context.Background(), "Student")
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserServiceCreateUserRejects(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &userRepoStub{}
	svc := NewUserService(tx, repo, nil, nil)
	ctx := context.Background()

	req := validUserRequest()
	req.Role = "Admin"
	_, err := svc.CreateUser(ctx, req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	repo.createErr = &pq.Error{Code: "23505"}
	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.CreateUser(ctx, validUserRequest())
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.createErr = nil
	repo.profileErr = errors.New("insert failed")
	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.CreateUser(ctx, validUserRequest())
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	_, err = svc.ListByRole(ctx, "Janitor")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
