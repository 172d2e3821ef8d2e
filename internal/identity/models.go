// Package identity implements components B/C/D/E: the credential store,
// verification-code ledger, token ledger, and session tracker. Follows
// a JWT issuance/validation shape with a context-key accessor pattern,
// and a mutex-guarded map + TTL sweep generalized here into a persisted
// table so session state survives process restarts.
package identity

import "time"

type UserStatus string

const (
	StatusActive     UserStatus = "active"
	StatusInactive   UserStatus = "inactive"
	StatusSuspended  UserStatus = "suspended"
)

type User struct {
	UserID      int64
	DisplayName string
	Status      UserStatus
	CreatedAt   time.Time
	LastActive  time.Time
}

type Provider string

const (
	ProviderPhone  Provider = "phone"
	ProviderEmail  Provider = "email"
	ProviderWeChat Provider = "wechat"
	ProviderGoogle Provider = "google"
)

type AuthBinding struct {
	ID             int64
	UserID         int64
	Provider       Provider
	ProviderID     string
	PasswordHash   *string
	IsVerified     bool
	IsPrimary      bool
	FailedAttempts int
	LockedUntil    *time.Time
	LastLogin      *time.Time
	CreatedAt      time.Time
}

type CodePurpose string

const (
	PurposeRegister CodePurpose = "register"
	PurposeLogin    CodePurpose = "login"
	PurposeReset    CodePurpose = "reset"
	PurposeVerify   CodePurpose = "verify"
)

type VerificationCode struct {
	ID          int64
	Provider    Provider
	ProviderID  string
	CodeHash    string
	Purpose     CodePurpose
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UsedAt      *time.Time
	Attempts    int
	MaxAttempts int
}

type RefreshToken struct {
	TokenHash        string
	UserID           int64
	DeviceDescriptor string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	LastUsed         *time.Time
	Revoked          bool
	ParentToken      *string
}

type Session struct {
	SessionID    string
	UserID       int64
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
	Device       string
	IP           string
	Active       bool
}

// TokenPair is returned by every operation that mints credentials.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds, access-token TTL
}
