package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/finopsd/recon_backend/internal/utils"
	"github.com/google/uuid"
)

type userService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
	auditSvc portssvc.AuditSvcFacade
}

// NewUserService creates a new user service.
func NewUserService(userRepo portsrepo.UserRepositoryFacade, auditSvc portssvc.AuditSvcFacade) portssvc.UserSvcFacade {
	return &userService{userRepo: userRepo, auditSvc: auditSvc}
}

// Ensure userService implements portssvc.UserSvcFacade
var _ portssvc.UserSvcFacade = (*userService)(nil)

// CreateUser provisions a new user with a bcrypt-hashed password.
func (s *userService) CreateUser(ctx context.Context, req dto.CreateUserRequest, creatorUserID string) (*domain.User, error) {
	if !req.Role.Valid() {
		return nil, apperrors.ErrValidation
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		UserID:       uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	audit := s.auditSvc.NewEvent(creatorUserID, domain.ActionUserCreated, domain.EntityUser, user.UserID,
		nil, dto.ToUserResponse(&user))

	if err := s.userRepo.SaveUser(ctx, user, audit); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, err
		}
		s.LogError(ctx, err, "failed to create user", slog.String("email", req.Email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.LogInfo(ctx, "user created", slog.String("user_id", user.UserID), slog.String("role", string(user.Role)))
	return &user, nil
}

func (s *userService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.FindUserByID(ctx, userID)
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.FindUserByEmail(ctx, email)
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return s.userRepo.FindUsers(ctx, limit, offset)
}

// UpdateUser applies the non-nil fields of the request.
func (s *userService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, requestingUserID string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	before := dto.ToUserResponse(user)
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, apperrors.ErrValidation
		}
		user.Role = *req.Role
	}

	now := time.Now().UTC()
	user.LastUpdatedAt = now
	user.LastUpdatedBy = requestingUserID

	audit := s.auditSvc.NewEvent(requestingUserID, domain.ActionUserUpdated, domain.EntityUser, userID,
		before, dto.ToUserResponse(user))

	if err := s.userRepo.UpdateUser(ctx, *user, audit); err != nil {
		s.LogError(ctx, err, "failed to update user", slog.String("user_id", userID))
		return nil, err
	}
	return user, nil
}

// DeleteUser soft deletes a user; the record is retained for the audit trail.
func (s *userService) DeleteUser(ctx context.Context, userID string, requestingUserID string) error {
	now := time.Now().UTC()
	audit := s.auditSvc.NewEvent(requestingUserID, domain.ActionUserDeactivated, domain.EntityUser, userID, nil, nil)

	if err := s.userRepo.MarkUserDeleted(ctx, userID, now, requestingUserID, audit); err != nil {
		s.LogError(ctx, err, "failed to delete user", slog.String("user_id", userID))
		return err
	}
	s.LogInfo(ctx, "user deactivated", slog.String("user_id", userID))
	return nil
}

// AuthenticateUser verifies email/password credentials. Lookup and compare
// failures both map to ErrUnauthorized so the response does not reveal which
// part was wrong.
func (s *userService) AuthenticateUser(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}
