package services_test

import (
	"context"
	"testing"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/core/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/finopsd/recon_backend/internal/utils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type UserServiceTestSuite struct {
	suite.Suite
	mockUserRepo *MockUserRepository
	service      portssvc.UserSvcFacade
	ctx          context.Context
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.mockUserRepo = new(MockUserRepository)
	auditSvc := services.NewAuditService(new(MockAuditRepository))
	suite.service = services.NewUserService(suite.mockUserRepo, auditSvc)
	suite.ctx = context.Background()
}

func (suite *UserServiceTestSuite) TestCreateUserHashesPassword() {
	req := dto.CreateUserRequest{
		Name:     "Dana Analyst",
		Email:    "dana@example.com",
		Password: "correct horse battery",
		Role:     domain.RoleAnalyst,
	}

	suite.mockUserRepo.On("SaveUser", suite.ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == req.Email &&
			u.Role == domain.RoleAnalyst &&
			u.PasswordHash != req.Password &&
			utils.CheckPasswordHash(req.Password, u.PasswordHash)
	}), mock.MatchedBy(func(a domain.AuditEvent) bool {
		return a.Action == domain.ActionUserCreated && a.Entity == domain.EntityUser
	})).Return(nil).Once()

	user, err := suite.service.CreateUser(suite.ctx, req, "admin-1")

	suite.Require().NoError(err)
	suite.NotEmpty(user.UserID)
	suite.Equal("admin-1", user.CreatedBy)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestCreateUserInvalidRole() {
	req := dto.CreateUserRequest{Name: "X", Email: "x@example.com", Password: "password123", Role: "SUPERUSER"}

	_, err := suite.service.CreateUser(suite.ctx, req, "admin-1")

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
	suite.mockUserRepo.AssertNotCalled(suite.T(), "SaveUser", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *UserServiceTestSuite) TestCreateUserDuplicateEmail() {
	req := dto.CreateUserRequest{Name: "X", Email: "taken@example.com", Password: "password123", Role: domain.RoleManager}

	suite.mockUserRepo.On("SaveUser", suite.ctx, mock.Anything, mock.Anything).
		Return(apperrors.ErrDuplicate).Once()

	_, err := suite.service.CreateUser(suite.ctx, req, "admin-1")

	suite.Require().ErrorIs(err, apperrors.ErrDuplicate)
}

func (suite *UserServiceTestSuite) TestUpdateUserAppliesPartialFields() {
	existing := &domain.User{
		UserID: "user-1",
		Name:   "Old Name",
		Email:  "user@example.com",
		Role:   domain.RoleAnalyst,
	}
	newName := "New Name"

	suite.mockUserRepo.On("FindUserByID", suite.ctx, "user-1").Return(existing, nil).Once()
	suite.mockUserRepo.On("UpdateUser", suite.ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Name == newName && u.Role == domain.RoleAnalyst && u.LastUpdatedBy == "admin-1"
	}), mock.MatchedBy(func(a domain.AuditEvent) bool {
		return a.Action == domain.ActionUserUpdated && a.OldValue != nil && a.NewValue != nil
	})).Return(nil).Once()

	updated, err := suite.service.UpdateUser(suite.ctx, "user-1", dto.UpdateUserRequest{Name: &newName}, "admin-1")

	suite.Require().NoError(err)
	suite.Equal(newName, updated.Name)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestDeleteUser() {
	suite.mockUserRepo.On("MarkUserDeleted", suite.ctx, "user-1", mock.AnythingOfType("time.Time"), "admin-1",
		mock.MatchedBy(func(a domain.AuditEvent) bool {
			return a.Action == domain.ActionUserDeactivated
		})).Return(nil).Once()

	err := suite.service.DeleteUser(suite.ctx, "user-1", "admin-1")

	suite.Require().NoError(err)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestAuthenticateUser() {
	hash, err := utils.HashPassword("s3cret-pass")
	suite.Require().NoError(err)
	user := &domain.User{UserID: "user-1", Email: "user@example.com", PasswordHash: hash, Role: domain.RoleManager}

	suite.mockUserRepo.On("FindUserByEmail", suite.ctx, "user@example.com").Return(user, nil).Once()

	authenticated, err := suite.service.AuthenticateUser(suite.ctx, "user@example.com", "s3cret-pass")

	suite.Require().NoError(err)
	suite.Equal("user-1", authenticated.UserID)
}

func (suite *UserServiceTestSuite) TestAuthenticateUserWrongPassword() {
	hash, err := utils.HashPassword("s3cret-pass")
	suite.Require().NoError(err)
	user := &domain.User{UserID: "user-1", Email: "user@example.com", PasswordHash: hash}

	suite.mockUserRepo.On("FindUserByEmail", suite.ctx, "user@example.com").Return(user, nil).Once()

	_, err = suite.service.AuthenticateUser(suite.ctx, "user@example.com", "wrong")

	suite.Require().ErrorIs(err, apperrors.ErrUnauthorized)
}

func (suite *UserServiceTestSuite) TestAuthenticateUserUnknownEmail() {
	suite.mockUserRepo.On("FindUserByEmail", suite.ctx, "ghost@example.com").
		Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.AuthenticateUser(suite.ctx, "ghost@example.com", "whatever")

	suite.Require().ErrorIs(err, apperrors.ErrUnauthorized)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
