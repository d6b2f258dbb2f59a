package services

import (
	"context"
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/platform/config"
	"github.com/finopsd/recon_backend/internal/utils"
)

// tokenService implements TokenSvcFacade for issuing JWT access tokens. The
// role claim carried in the token drives capability checks at the API boundary.
type tokenService struct {
	cfg *config.Config
}

// NewTokenService creates a new instance of tokenService.
func NewTokenService(cfg *config.Config) portssvc.TokenSvcFacade {
	return &tokenService{cfg: cfg}
}

// Ensure tokenService implements portssvc.TokenSvcFacade
var _ portssvc.TokenSvcFacade = (*tokenService)(nil)

// GenerateAccessToken creates a new JWT access token for the given user.
func (s *tokenService) GenerateAccessToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	return utils.GenerateJWT(user.UserID, string(user.Role), s.cfg.JWTSecret, s.cfg.JWTExpiryDuration, s.cfg.JWTIssuer)
}
