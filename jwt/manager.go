package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretBytes = 16

// Config holds the codec settings. It is copied by [NewManager] and treated as
// immutable afterwards.
type Config struct {
	// Secret signs new tokens and verifies tokens carrying KeyID (or no kid).
	Secret []byte
	// TTL is the fixed session lifetime applied by Mint and Refresh.
	TTL    time.Duration
	Issuer string
	// KeyID is written to the kid header when set. VerifyKeys holds additional
	// secrets by kid so tokens signed before a rotation keep verifying.
	KeyID        string
	VerifyKeys   map[string][]byte
	MaxFutureIAT time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Claims is the decoded payload of a session token. It is a value: Refresh
// returns new Claims and never mutates the receiver's input.
type Claims struct {
	SubjectID string
	Email     string
	Role      string
	ExpiresAt time.Time
}

type wireClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Manager encodes and decodes session tokens. It is safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg and returns a codec. Only HS256 is supported; there is
// no way to configure an unsigned algorithm.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid session TTL configuration")
	}
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) < minSecretBytes {
			return nil, fmt.Errorf("verify key for kid %q is too short", kid)
		}
	}
	if cfg.KeyID == "" && len(cfg.VerifyKeys) > 0 {
		return nil, errors.New("VerifyKeys requires KeyID")
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{config: cfg, now: now}, nil
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Mint builds fresh claims expiring one TTL from now and encodes them.
func (m *Manager) Mint(subjectID, email, role string) (string, Claims, error) {
	claims := Claims{
		SubjectID: subjectID,
		Email:     email,
		Role:      role,
		ExpiresAt: m.now().Add(m.config.TTL).Truncate(time.Second),
	}
	token, err := m.Encode(claims)
	if err != nil {
		return "", Claims{}, err
	}
	return token, claims, nil
}

// Encode signs claims as they are, including an ExpiresAt in the past. Expiry is
// stored as whole Unix seconds.
func (m *Manager) Encode(c Claims) (string, error) {
	if strings.TrimSpace(c.SubjectID) == "" {
		return "", errors.New("session subject is required")
	}
	if c.Role == "" {
		return "", errors.New("session role is required")
	}
	if c.ExpiresAt.IsZero() {
		return "", errors.New("session expiry is required")
	}

	wire := wireClaims{
		Email: c.Email,
		Role:  c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.SubjectID,
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(m.now()),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, wire)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	return token.SignedString(m.config.Secret)
}

// Decode verifies tokenStr and returns its claims. Every failure is a
// [*DecodeError] wrapping [ErrInvalidSession].
func (m *Manager) Decode(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, invalid(ReasonMalformed, errors.New("empty token"))
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &wireClaims{}, m.keyFunc)
	if err != nil {
		return Claims{}, classify(token, err)
	}

	wire, ok := token.Claims.(*wireClaims)
	if !ok || !token.Valid {
		return Claims{}, invalid(ReasonClaims, jwt.ErrTokenInvalidClaims)
	}
	if wire.Subject == "" || wire.Role == "" {
		return Claims{}, invalid(ReasonClaims, errors.New("missing subject or role"))
	}
	if wire.IssuedAt != nil && wire.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
		return Claims{}, invalid(ReasonClaims, errors.New("token iat too far in the future"))
	}

	return Claims{
		SubjectID: wire.Subject,
		Email:     wire.Email,
		Role:      wire.Role,
		ExpiresAt: wire.ExpiresAt.Time,
	}, nil
}

// Refresh re-issues still-valid claims with ExpiresAt = now + TTL. Expired claims
// are rejected with ErrInvalidSession.
func (m *Manager) Refresh(c Claims) (string, Claims, error) {
	now := m.now()
	if !c.ExpiresAt.After(now) {
		return "", Claims{}, invalid(ReasonExpired, errors.New("cannot refresh expired claims"))
	}

	next := Claims{
		SubjectID: c.SubjectID,
		Email:     c.Email,
		Role:      c.Role,
		ExpiresAt: now.Add(m.config.TTL).Truncate(time.Second),
	}
	token, err := m.Encode(next)
	if err != nil {
		return "", Claims{}, err
	}
	return token, next, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	if m.config.KeyID == "" {
		if kid != "" {
			return nil, errors.New("unknown kid")
		}
		return m.config.Secret, nil
	}

	if kid == "" {
		return nil, errors.New("missing kid")
	}
	if kid == m.config.KeyID {
		return m.config.Secret, nil
	}
	key, ok := m.config.VerifyKeys[kid]
	if !ok {
		return nil, errors.New("unknown kid")
	}
	return key, nil
}

func classify(token *jwt.Token, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return invalid(ReasonMalformed, err)
	case token != nil && token.Method != nil && token.Method.Alg() != jwt.SigningMethodHS256.Alg():
		return invalid(ReasonAlgorithm, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return invalid(ReasonExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return invalid(ReasonSignature, err)
	default:
		return invalid(ReasonClaims, err)
	}
}
