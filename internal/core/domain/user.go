package domain

import "time"

// UserRole determines which operations a user may perform at the API boundary.
type UserRole string

const (
	RoleAnalyst UserRole = "ANALYST"
	RoleAuditor UserRole = "AUDITOR"
	RoleManager UserRole = "MANAGER"
	RoleAdmin   UserRole = "ADMIN"
)

// roleRank orders roles for capability checks. Auditors sit above analysts
// because they can read everything analysts can, plus the full audit trail.
var roleRank = map[UserRole]int{
	RoleAnalyst: 1,
	RoleAuditor: 2,
	RoleManager: 3,
	RoleAdmin:   4,
}

// AtLeast reports whether the role grants the capabilities of the required role.
func (r UserRole) AtLeast(required UserRole) bool {
	return roleRank[r] >= roleRank[required]
}

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// User represents a finance operations user of the application.
type User struct {
	UserID       string   `json:"userID"` // Primary Key (e.g., UUID)
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role"`
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"` // Used for soft delete
}
