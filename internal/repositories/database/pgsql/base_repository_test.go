package pgsql

import (
	"errors"
	"testing"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestApperrBadTokenMatchesValidation(t *testing.T) {
	err := apperrBadToken(errors.New("illegal base64 data at input byte 0"))

	// Listing handlers branch on ErrValidation to return 400.
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "invalid nextToken")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}
