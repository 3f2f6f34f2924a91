package farmAuth

import (
	"context"
	"net/http"
	"time"

	internalaudit "github.com/MrEthical07/farmAuth/internal/audit"
	internalmetrics "github.com/MrEthical07/farmAuth/internal/metrics"
)

// Role is one of the fixed account roles.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleExpert Role = "expert"
	RoleAdmin  Role = "admin"
)

// ParseRole maps s to a Role. Matching is exact; an unknown value reports false.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleFarmer, RoleExpert, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Valid reports whether r is one of the fixed roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// SessionClaims is the payload of a session token. Claims are values; a refresh
// produces new claims and leaves the old ones untouched.
type SessionClaims struct {
	SubjectID string
	Email     string
	Role      Role
	ExpiresAt time.Time
}

// VerifiedIdentity is what a CredentialVerifier returns on success.
type VerifiedIdentity struct {
	SubjectID string
	Email     string
	Role      Role
}

// UserRecord is the account record owned by the UserStore.
type UserRecord struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	Location     string
	Role         Role
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
}

// CreateUserInput is passed to UserStore.CreateUser after validation and hashing.
type CreateUserInput struct {
	Email        string
	Name         string
	Phone        string
	Location     string
	Role         Role
	PasswordHash string
}

// UserStore is the user-record collaborator. Lookups of a missing record return
// ErrUserNotFound; CreateUser returns ErrConflict for a duplicate email. Any
// other error is treated as the store being unavailable.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, id string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
}

// PasswordHashUpdater is optionally implemented by a UserStore. When present,
// hashes in a legacy format are replaced after a successful sign-in.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// RegisterRequest is the registration form. Phone and Location are optional;
// Role defaults to the configured default role.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Role     string
	Phone    string
	Location string
}

// SessionResult is a freshly minted session and the cookie that carries it.
type SessionResult struct {
	Token  string
	Claims SessionClaims
	Cookie *http.Cookie
}

// RegisterResult is returned by Engine.Register.
type RegisterResult struct {
	User    UserRecord
	Session *SessionResult
}

// AuditEvent is a security-relevant occurrence delivered to an AuditSink.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the Engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink writes events through a logrus logger.
type LogSink = internalaudit.LogSink

// MetricID names one engine counter or latency histogram.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess           = internalmetrics.MetricLoginSuccess
	MetricLoginFailure           = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited       = internalmetrics.MetricLoginRateLimited
	MetricCredentialsUnavailable = internalmetrics.MetricCredentialsUnavailable
	MetricRegisterSuccess        = internalmetrics.MetricRegisterSuccess
	MetricRegisterInvalid        = internalmetrics.MetricRegisterInvalid
	MetricRegisterConflict       = internalmetrics.MetricRegisterConflict
	MetricRegisterRateLimited    = internalmetrics.MetricRegisterRateLimited
	MetricRegisterFailure        = internalmetrics.MetricRegisterFailure
	MetricLogout                 = internalmetrics.MetricLogout
	MetricSessionIssued          = internalmetrics.MetricSessionIssued
	MetricSessionRefreshed       = internalmetrics.MetricSessionRefreshed
	MetricSessionInvalid         = internalmetrics.MetricSessionInvalid
	MetricRateLimitHit           = internalmetrics.MetricRateLimitHit
	MetricRateLimitStoreError    = internalmetrics.MetricRateLimitStoreError
	MetricAccessAllowed          = internalmetrics.MetricAccessAllowed
	MetricAccessRedirectLogin    = internalmetrics.MetricAccessRedirectLogin
	MetricAccessRedirectLanding  = internalmetrics.MetricAccessRedirectLanding
	MetricAccessRejected         = internalmetrics.MetricAccessRejected
	MetricAccessRecovered        = internalmetrics.MetricAccessRecovered
	MetricLoginLatency           = internalmetrics.MetricLoginLatency
	MetricDecideLatency          = internalmetrics.MetricDecideLatency
)

// Metrics is the engine's lock-free counter set.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics returns a Metrics configured by cfg. When Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
