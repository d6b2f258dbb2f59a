package domain_test

import (
	"testing"
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestExceptionAgingDays(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	exc := domain.Exception{}

	exc.CreatedAt = now.AddDate(0, 0, -10)
	assert.Equal(t, 10, exc.AgingDays(now))

	exc.CreatedAt = now.Add(-36 * time.Hour)
	assert.Equal(t, 1, exc.AgingDays(now), "partial days round down")

	exc.CreatedAt = now
	assert.Equal(t, 0, exc.AgingDays(now))

	// Clock skew between writer and reader must not go negative.
	exc.CreatedAt = now.Add(2 * time.Hour)
	assert.Equal(t, 0, exc.AgingDays(now))
}

func TestExceptionCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.ExceptionStatus
		to      domain.ExceptionStatus
		allowed bool
	}{
		{"open to investigating", domain.ExceptionOpen, domain.ExceptionInvestigating, true},
		{"open to resolved", domain.ExceptionOpen, domain.ExceptionResolved, true},
		{"open to open", domain.ExceptionOpen, domain.ExceptionOpen, false},
		{"investigating to resolved", domain.ExceptionInvestigating, domain.ExceptionResolved, true},
		{"investigating back to open", domain.ExceptionInvestigating, domain.ExceptionOpen, false},
		{"resolved is terminal", domain.ExceptionResolved, domain.ExceptionOpen, false},
		{"resolved to investigating", domain.ExceptionResolved, domain.ExceptionInvestigating, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exc := domain.Exception{Status: tt.from}
			assert.Equal(t, tt.allowed, exc.CanTransitionTo(tt.to))
		})
	}
}

func TestUserRoleAtLeast(t *testing.T) {
	assert.True(t, domain.RoleAdmin.AtLeast(domain.RoleManager))
	assert.True(t, domain.RoleManager.AtLeast(domain.RoleManager))
	assert.True(t, domain.RoleAuditor.AtLeast(domain.RoleAnalyst))
	assert.False(t, domain.RoleAnalyst.AtLeast(domain.RoleManager))
	assert.False(t, domain.RoleAnalyst.AtLeast(domain.RoleAuditor))
	assert.False(t, domain.UserRole("UNKNOWN").AtLeast(domain.RoleAnalyst))
}

func TestUserRoleValid(t *testing.T) {
	assert.True(t, domain.RoleAnalyst.Valid())
	assert.True(t, domain.RoleAdmin.Valid())
	assert.False(t, domain.UserRole("SUPERUSER").Valid())
	assert.False(t, domain.UserRole("").Valid())
}
