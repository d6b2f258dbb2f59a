package models

import "time"

// User is the persisted form of an application user.
type User struct {
	UserID       string `db:"user_id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
	AuditFields
	DeletedAt *time.Time `db:"deleted_at"`
}
