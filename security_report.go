package farmAuth

import (
	"time"

	"github.com/MrEthical07/farmAuth/internal/rate"
)

// SecurityReport summarizes the engine's effective security posture. It holds
// no secrets and is suitable for logging at startup.
type SecurityReport struct {
	ProductionMode     bool
	SigningAlgorithm   string
	DevelopmentSecret  bool
	KeyRotationActive  bool
	SessionTTL         time.Duration
	SlidingExpiration  bool
	CredentialMode     CredentialMode
	UserStoreAttached  bool
	Password           PasswordConfigReport
	LoginRateLimit     RateLimitReport
	RegistrationActive bool
	RegisterRateLimit  RateLimitReport
	SelfServiceRoles   []Role
	AuditActive        bool
}

type PasswordConfigReport struct {
	Algorithm      string
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	BcryptCost     int
	UpgradeOnLogin bool
}

// RateLimitReport describes one fixed-window limiter. Backend is "redis" or
// "memory".
type RateLimitReport struct {
	MaxAttempts int
	Window      time.Duration
	PerIP       bool
	FailOpen    bool
	Backend     string
}

// SecurityReport returns the posture derived from the built configuration.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	backend := "memory"
	if _, ok := e.counters.(*rate.RedisStore); ok {
		backend = "redis"
	}

	report := SecurityReport{
		ProductionMode:    cfg.Security.ProductionMode,
		SigningAlgorithm:  "HS256",
		DevelopmentSecret: string(cfg.Session.Secret) == DevelopmentSigningSecret,
		KeyRotationActive: len(cfg.Session.PreviousSecrets) > 0,
		SessionTTL:        cfg.Session.TTL,
		SlidingExpiration: cfg.Session.SlidingExpiration,
		CredentialMode:    cfg.Credentials.Mode,
		UserStoreAttached: e.users != nil,
		Password: PasswordConfigReport{
			Algorithm:      cfg.Password.Algorithm,
			Memory:         cfg.Password.Memory,
			Time:           cfg.Password.Time,
			Parallelism:    cfg.Password.Parallelism,
			BcryptCost:     cfg.Password.BcryptCost,
			UpgradeOnLogin: cfg.Password.UpgradeOnLogin,
		},
		LoginRateLimit: RateLimitReport{
			MaxAttempts: cfg.Security.MaxLoginAttempts,
			Window:      cfg.Security.LoginWindow,
			PerIP:       cfg.Security.EnableIPThrottle,
			FailOpen:    cfg.Security.RateLimitFailOpen,
			Backend:     backend,
		},
		RegistrationActive: e.registerLimiter != nil && e.users != nil,
		AuditActive:        cfg.Audit.Enabled,
	}

	if report.RegistrationActive {
		report.RegisterRateLimit = RateLimitReport{
			MaxAttempts: cfg.Account.MaxAttempts,
			Window:      cfg.Account.Window,
			PerIP:       cfg.Account.EnableIPThrottle,
			FailOpen:    cfg.Security.RateLimitFailOpen,
			Backend:     backend,
		}
		report.SelfServiceRoles = append([]Role(nil), cfg.Account.AllowedRoles...)
	}

	return report
}
