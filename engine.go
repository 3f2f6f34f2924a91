package farmAuth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	internalaudit "github.com/MrEthical07/farmAuth/internal/audit"
	"github.com/MrEthical07/farmAuth/internal/rate"
	"github.com/MrEthical07/farmAuth/jwt"
	"github.com/MrEthical07/farmAuth/password"
	"github.com/sirupsen/logrus"
)

// Engine is the session lifecycle manager. It signs users in and out, registers
// accounts and decodes or refreshes session tokens. An Engine is created by
// [Builder.Build] and is safe for concurrent use.
type Engine struct {
	config          Config
	logger          logrus.FieldLogger
	now             func() time.Time
	jwtManager      *jwt.Manager
	hasher          password.Hasher
	verifier        CredentialVerifier
	users           UserStore
	counters        rate.CounterStore
	loginLimiter    *rate.Limiter
	registerLimiter *rate.Limiter
	audit           *internalaudit.Dispatcher
	metrics         *Metrics
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics returns the engine's counter set for exporters and middleware.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) Logger() logrus.FieldLogger {
	if e == nil || e.logger == nil {
		return logrus.StandardLogger()
	}
	return e.logger
}

// Config returns a copy of the configuration the engine was built with. The
// signing secrets are included.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

/*
====================================
LOGIN / LOGOUT
====================================
*/

// Login checks the rate limiter, verifies the credentials and mints a session.
// A rate-limited attempt returns ErrRateLimited without consulting the
// verifier. Unknown email and wrong password both return ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, email, pass string) (*SessionResult, error) {
	if e == nil || e.verifier == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		defer e.observe(MetricLoginLatency, time.Now())
	}

	email = NormalizeEmail(email)
	ip := ClientIPFromContext(ctx)

	if scope, ok := e.allowLogin(ctx, email, ip); !ok {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrRateLimited, func() map[string]string {
			return map[string]string{"identifier": email}
		})
		e.emitRateLimit(ctx, scope, email)
		return nil, ErrRateLimited
	}

	identity, err := e.verifier.Verify(ctx, email, pass)
	if err != nil {
		err = normalizeVerifyError(err)
		if errors.Is(err, ErrAuthUnavailable) {
			e.metricInc(MetricCredentialsUnavailable)
			e.logger.WithError(err).Warn("credential check unavailable")
		} else {
			e.metricInc(MetricLoginFailure)
		}
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"identifier": email}
		})
		return nil, err
	}

	result, err := e.issue(identity)
	if err != nil {
		e.logger.WithError(err).Error("session mint failed")
		return nil, err
	}

	if e.loginLimiter != nil {
		_ = e.loginLimiter.Reset(ctx, rate.LoginAccountKey(email))
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, identity.SubjectID, identity.Role, nil, nil)
	return result, nil
}

// allowLogin counts the attempt against the account key and, when IP
// throttling is on and the caller's IP is known, the IP key. It returns the
// scope that tripped.
func (e *Engine) allowLogin(ctx context.Context, email, ip string) (string, bool) {
	if e.loginLimiter == nil {
		return "", true
	}
	if !e.loginLimiter.Allow(ctx, rate.LoginAccountKey(email)) {
		return "login_account", false
	}
	if e.config.Security.EnableIPThrottle && ip != "" {
		if !e.loginLimiter.Allow(ctx, rate.LoginIPKey(ip)) {
			return "login_ip", false
		}
	}
	return "", true
}

func normalizeVerifyError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAuthUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
}

// HashPassword hashes plain with the engine's primary algorithm. It is meant
// for seeding stores; Register hashes on its own.
func (e *Engine) HashPassword(plain string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(plain)
}

// Logout returns the cookie that clears the session. It holds no server state,
// so calling it repeatedly is harmless.
func (e *Engine) Logout(ctx context.Context) *http.Cookie {
	if e == nil {
		return nil
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", "", nil, nil)
	return e.ClearSessionCookie()
}

/*
====================================
SESSIONS
====================================
*/

// DecodeSession verifies token and returns its claims. An empty token returns
// ErrNoSession; every other failure wraps ErrInvalidSession.
func (e *Engine) DecodeSession(token string) (SessionClaims, error) {
	if e == nil || e.jwtManager == nil {
		return SessionClaims{}, ErrEngineNotReady
	}
	if token == "" {
		return SessionClaims{}, ErrNoSession
	}

	claims, err := e.jwtManager.Decode(token)
	if err != nil {
		e.metricInc(MetricSessionInvalid)
		return SessionClaims{}, err
	}

	role, ok := ParseRole(claims.Role)
	if !ok {
		e.metricInc(MetricSessionInvalid)
		return SessionClaims{}, fmt.Errorf("%w: unknown role %q", ErrInvalidSession, claims.Role)
	}

	return SessionClaims{
		SubjectID: claims.SubjectID,
		Email:     claims.Email,
		Role:      role,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// RefreshSession re-issues still-valid claims with a full TTL. Expired claims
// return ErrInvalidSession.
func (e *Engine) RefreshSession(claims SessionClaims) (*SessionResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	token, next, err := e.jwtManager.Refresh(jwt.Claims{
		SubjectID: claims.SubjectID,
		Email:     claims.Email,
		Role:      string(claims.Role),
		ExpiresAt: claims.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSessionRefreshed)
	return e.sessionResult(token, next)
}

func (e *Engine) issue(identity VerifiedIdentity) (*SessionResult, error) {
	token, claims, err := e.jwtManager.Mint(identity.SubjectID, identity.Email, string(identity.Role))
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricSessionIssued)
	return e.sessionResult(token, claims)
}

func (e *Engine) sessionResult(token string, claims jwt.Claims) (*SessionResult, error) {
	role, ok := ParseRole(claims.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidSession, claims.Role)
	}
	return &SessionResult{
		Token: token,
		Claims: SessionClaims{
			SubjectID: claims.SubjectID,
			Email:     claims.Email,
			Role:      role,
			ExpiresAt: claims.ExpiresAt,
		},
		Cookie: e.SessionCookie(token, claims.ExpiresAt),
	}, nil
}

// CookieName returns the configured session cookie name.
func (e *Engine) CookieName() string {
	if e == nil || e.config.Session.CookieName == "" {
		return "session"
	}
	return e.config.Session.CookieName
}

// SessionCookie builds the cookie carrying token. It is HttpOnly, SameSite=Lax,
// scoped to "/", and Secure in production.
func (e *Engine) SessionCookie(token string, expires time.Time) *http.Cookie {
	maxAge := int(expires.Sub(e.now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     e.CookieName(),
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   e.config.Security.ProductionMode,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie returns an expired, empty session cookie.
func (e *Engine) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.CookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   e.config.Security.ProductionMode,
		SameSite: http.SameSiteLaxMode,
	}
}

// CurrentUser loads the record behind claims. Without a UserStore (mock
// credentials) the record is synthesized from the claims.
func (e *Engine) CurrentUser(ctx context.Context, claims SessionClaims) (UserRecord, error) {
	if e == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	if e.users == nil {
		return UserRecord{
			ID:       claims.SubjectID,
			Email:    claims.Email,
			Role:     claims.Role,
			Verified: true,
		}, nil
	}

	rec, err := e.users.GetUserByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, err
		}
		return UserRecord{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	rec.PasswordHash = ""
	return rec, nil
}
