package farmAuth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/farmAuth/internal/rate"
)

// Register validates req, creates the account and signs the new user in.
//
// Rate limiting runs first, then every field validator; nothing is persisted
// unless all of them pass. A taken email returns ErrConflict. Store failures
// return ErrPersistence.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.jwtManager == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.Enabled || e.users == nil {
		return nil, fmt.Errorf("%w: registration is disabled", ErrForbidden)
	}

	email := NormalizeEmail(req.Email)
	ip := ClientIPFromContext(ctx)

	if scope, ok := e.allowRegister(ctx, email, ip); !ok {
		e.metricInc(MetricRegisterRateLimited)
		e.emitAudit(ctx, auditEventAccountCreationRateLimited, false, "", "", ErrRateLimited, func() map[string]string {
			return map[string]string{"identifier": email}
		})
		e.emitRateLimit(ctx, scope, email)
		return nil, ErrRateLimited
	}

	input, err := validateRegistration(req, e.config.Account)
	if err != nil {
		e.metricInc(MetricRegisterInvalid)
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", err, nil)
		return nil, err
	}

	if _, err := e.users.GetUserByEmail(ctx, input.Email); err == nil {
		return nil, e.registerConflict(ctx, input.Email)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, e.registerFailure(ctx, fmt.Errorf("%w: lookup: %v", ErrPersistence, err))
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, e.registerFailure(ctx, fmt.Errorf("%w: hash password: %v", ErrPersistence, err))
	}
	input.PasswordHash = hash

	rec, err := e.users.CreateUser(ctx, input)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, e.registerConflict(ctx, input.Email)
		}
		return nil, e.registerFailure(ctx, fmt.Errorf("%w: create: %v", ErrPersistence, err))
	}
	rec.PasswordHash = ""

	session, err := e.issue(VerifiedIdentity{SubjectID: rec.ID, Email: rec.Email, Role: rec.Role})
	if err != nil {
		e.logger.WithError(err).Error("session mint failed after registration")
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventAccountCreationSuccess, true, rec.ID, rec.Role, nil, nil)
	return &RegisterResult{User: rec, Session: session}, nil
}

func (e *Engine) allowRegister(ctx context.Context, email, ip string) (string, bool) {
	if e.registerLimiter == nil {
		return "", true
	}
	if e.config.Account.EnableIPThrottle && ip != "" {
		if !e.registerLimiter.Allow(ctx, rate.RegisterIPKey(ip)) {
			return "register_ip", false
		}
	}
	if e.config.Account.EnableIdentifierThrottle && email != "" {
		if !e.registerLimiter.Allow(ctx, rate.RegisterAccountKey(email)) {
			return "register_account", false
		}
	}
	return "", true
}

func (e *Engine) registerConflict(ctx context.Context, email string) error {
	e.metricInc(MetricRegisterConflict)
	e.emitAudit(ctx, auditEventAccountCreationDuplicate, false, "", "", ErrConflict, func() map[string]string {
		return map[string]string{"identifier": email}
	})
	return ErrConflict
}

func (e *Engine) registerFailure(ctx context.Context, err error) error {
	e.metricInc(MetricRegisterFailure)
	e.logger.WithError(err).Error("account creation failed")
	e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", err, nil)
	return err
}
