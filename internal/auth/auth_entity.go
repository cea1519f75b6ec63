package auth

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin    = "admin"
	RoleRecorder = "recorder"
	RoleViewer   = "viewer"

	// MaxLoginAttempts consecutive failures lock the account for LockDuration.
	MaxLoginAttempts = 5
	LockDuration     = 2 * time.Hour
)

type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SecretID      string     `gorm:"type:varchar(100);uniqueIndex;not null"`
	Password      string     `gorm:"not null"`
	Role          string     `gorm:"type:varchar(20);not null;default:viewer"`
	IsActive      bool       `gorm:"not null;default:true"`
	LoginAttempts int        `gorm:"not null;default:0"`
	LockUntil     *time.Time `gorm:"default:null"`
	LastLogin     *time.Time `gorm:"default:null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// registerFailure counts one failed login. A lock that has already run out
// starts the count again from one.
func (u *User) registerFailure(now time.Time) {
	if u.LockUntil != nil && !u.LockUntil.After(now) {
		u.LoginAttempts = 1
		u.LockUntil = nil
		return
	}
	u.LoginAttempts++
	if u.LoginAttempts >= MaxLoginAttempts && !u.IsLocked(now) {
		until := now.Add(LockDuration)
		u.LockUntil = &until
	}
}

func (u *User) registerSuccess(now time.Time) {
	u.LoginAttempts = 0
	u.LockUntil = nil
	u.LastLogin = &now
}

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleRecorder, RoleViewer:
		return true
	}
	return false
}
