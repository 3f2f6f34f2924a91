package farmAuth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DevelopmentSigningSecret signs sessions when no secret is configured outside
// production. Tokens signed with it must never be trusted in a deployment.
const DevelopmentSigningSecret = "farmauth-development-only-signing-secret"

const minProductionSecretBytes = 32

// Config is the complete engine configuration. Build copies it; later changes
// to the caller's value have no effect.
type Config struct {
	Session     SessionConfig
	Password    PasswordConfig
	Credentials CredentialsConfig
	Security    SecurityConfig
	Account     AccountConfig
	Routes      RoutesConfig
	RateLimit   RateLimitConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls token signing and the session cookie.
type SessionConfig struct {
	// Secret signs HS256 session tokens. Required in production.
	Secret []byte
	// KeyID is written to the token header when set. PreviousSecrets maps the
	// kid of retired secrets so their tokens keep verifying until expiry.
	KeyID           string
	PreviousSecrets map[string][]byte
	TTL             time.Duration
	Issuer          string
	CookieName      string
	// SlidingExpiration re-issues the cookie with a fresh expiry on every
	// authenticated request that passes the access controller.
	SlidingExpiration bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// Password hashing algorithms accepted by PasswordConfig.Algorithm.
const (
	PasswordArgon2id = "argon2id"
	PasswordBcrypt   = "bcrypt"
)

// PasswordConfig selects the hasher used for new hashes. Hashes in the other
// format still verify.
type PasswordConfig struct {
	Algorithm   string
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	BcryptCost  int
	// UpgradeOnLogin re-hashes legacy or weaker hashes after a successful
	// sign-in when the UserStore implements PasswordHashUpdater.
	UpgradeOnLogin bool
}

/*
====================================
CREDENTIALS CONFIG
====================================
*/

// CredentialMode selects the CredentialVerifier built by the Builder.
type CredentialMode string

const (
	// CredentialsHash checks passwords against UserStore hashes.
	CredentialsHash CredentialMode = "hash"
	// CredentialsMock accepts the fixed development accounts. Refused in
	// production.
	CredentialsMock CredentialMode = "mock"
)

type CredentialsConfig struct {
	Mode CredentialMode
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the production switch and the login limiter policy.
type SecurityConfig struct {
	// ProductionMode makes the signing secret mandatory, marks cookies Secure,
	// adds Strict-Transport-Security and forbids mock credentials.
	ProductionMode   bool
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginWindow      time.Duration
	// RateLimitFailOpen allows attempts when the counter store fails.
	RateLimitFailOpen bool
	// TrustForwardedFor takes the client IP from X-Forwarded-For. Enable it
	// only behind a proxy that overwrites the header.
	TrustForwardedFor bool
}

// AccountConfig controls self-registration.
type AccountConfig struct {
	Enabled     bool
	DefaultRole Role
	// AllowedRoles lists the roles a registrant may pick. Admin is not in the
	// default list.
	AllowedRoles             []Role
	EnableIPThrottle         bool
	EnableIdentifierThrottle bool
	MaxAttempts              int
	Window                   time.Duration
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig holds the redirect targets used by the access controller.
type RoutesConfig struct {
	LoginPath   string
	LandingPath string
	// RejectPrefix marks API paths answered with 401/403 instead of a redirect.
	// Empty disables it.
	RejectPrefix string
	// File is an optional YAML route table replacing the built-in one.
	File string
}

// RateLimitConfig tunes the counter store.
type RateLimitConfig struct {
	RedisPrefix   string
	MemoryMaxKeys int
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the development defaults: 24h sessions, five login
// attempts per fifteen minutes, argon2id hashing and the hash-backed verifier.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:               24 * time.Hour,
			CookieName:        "session",
			SlidingExpiration: true,
		},
		Password: PasswordConfig{
			Algorithm:      PasswordArgon2id,
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			BcryptCost:     12,
			UpgradeOnLogin: true,
		},
		Credentials: CredentialsConfig{
			Mode: CredentialsHash,
		},
		Security: SecurityConfig{
			ProductionMode:    false,
			EnableIPThrottle:  false,
			MaxLoginAttempts:  5,
			LoginWindow:       15 * time.Minute,
			RateLimitFailOpen: true,
		},
		Account: AccountConfig{
			Enabled:                  true,
			DefaultRole:              RoleFarmer,
			AllowedRoles:             []Role{RoleFarmer, RoleExpert},
			EnableIPThrottle:         true,
			EnableIdentifierThrottle: true,
			MaxAttempts:              5,
			Window:                   15 * time.Minute,
		},
		Routes: RoutesConfig{
			LoginPath:    "/auth/login",
			LandingPath:  "/dashboard",
			RejectPrefix: "/api/",
		},
		RateLimit: RateLimitConfig{
			RedisPrefix:   "farmauth:rl:",
			MemoryMaxKeys: 100_000,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Secret = cloneBytes(cfg.Session.Secret)
	if cfg.Session.PreviousSecrets != nil {
		out.Session.PreviousSecrets = make(map[string][]byte, len(cfg.Session.PreviousSecrets))
		for kid, key := range cfg.Session.PreviousSecrets {
			out.Session.PreviousSecrets[kid] = cloneBytes(key)
		}
	}
	out.Account.AllowedRoles = append([]Role(nil), cfg.Account.AllowedRoles...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration. A missing secret is accepted outside
// production; Build substitutes DevelopmentSigningSecret.
func (c *Config) Validate() error {
	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("Session CookieName is required")
	}
	if c.Security.ProductionMode {
		if len(c.Session.Secret) == 0 {
			return ErrSigningSecretRequired
		}
		if len(c.Session.Secret) < minProductionSecretBytes {
			return fmt.Errorf("Session Secret must be at least %d bytes in production", minProductionSecretBytes)
		}
		if string(c.Session.Secret) == DevelopmentSigningSecret {
			return errors.New("Session Secret must not be the development secret in production")
		}
	}
	if len(c.Session.PreviousSecrets) > 0 && strings.TrimSpace(c.Session.KeyID) == "" {
		return errors.New("Session PreviousSecrets requires KeyID")
	}

	// Password
	switch c.Password.Algorithm {
	case PasswordArgon2id:
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case PasswordBcrypt:
		if c.Password.BcryptCost < 10 || c.Password.BcryptCost > 31 {
			return errors.New("Password BcryptCost must be between 10 and 31")
		}
	default:
		return errors.New("Password Algorithm must be 'argon2id' or 'bcrypt'")
	}

	// Credentials
	switch c.Credentials.Mode {
	case CredentialsHash:
	case CredentialsMock:
		if c.Security.ProductionMode {
			return errors.New("mock credentials are not allowed in production")
		}
	default:
		return errors.New("Credentials Mode must be 'hash' or 'mock'")
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginWindow <= 0 {
		return errors.New("LoginWindow must be > 0")
	}

	// Account
	if c.Account.Enabled {
		if !c.Account.DefaultRole.Valid() {
			return errors.New("Account DefaultRole is invalid")
		}
		if !containsRole(c.Account.AllowedRoles, c.Account.DefaultRole) {
			return errors.New("Account DefaultRole must be in AllowedRoles")
		}
		for _, r := range c.Account.AllowedRoles {
			if !r.Valid() {
				return fmt.Errorf("Account AllowedRoles contains invalid role %q", r)
			}
		}
		if c.Account.MaxAttempts <= 0 {
			return errors.New("Account MaxAttempts must be > 0")
		}
		if c.Account.Window <= 0 {
			return errors.New("Account Window must be > 0")
		}
	}

	// Routes
	if !strings.HasPrefix(c.Routes.LoginPath, "/") {
		return errors.New("Routes LoginPath must start with '/'")
	}
	if !strings.HasPrefix(c.Routes.LandingPath, "/") {
		return errors.New("Routes LandingPath must start with '/'")
	}
	if c.Routes.LoginPath == c.Routes.LandingPath {
		return errors.New("Routes LoginPath and LandingPath must differ")
	}
	if c.Routes.RejectPrefix != "" && !strings.HasPrefix(c.Routes.RejectPrefix, "/") {
		return errors.New("Routes RejectPrefix must start with '/'")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.RateLimit.MemoryMaxKeys < 0 {
		return errors.New("RateLimit MemoryMaxKeys must be >= 0")
	}

	return nil
}

func containsRole(roles []Role, r Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}
