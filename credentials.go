package farmAuth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/MrEthical07/farmAuth/password"
	"github.com/sirupsen/logrus"
)

// CredentialVerifier checks an email/password pair. Implementations return
// ErrInvalidCredentials for both an unknown email and a wrong password, and
// ErrAuthUnavailable when the check itself cannot be performed. They never
// retry.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (VerifiedIdentity, error)
}

// HashVerifier looks records up in a UserStore and compares the stored hash.
type HashVerifier struct {
	store          UserStore
	hasher         password.Hasher
	logger         logrus.FieldLogger
	upgradeOnLogin bool
	// dummyHash is compared when the email is unknown so both failure paths
	// cost one hash computation.
	dummyHash string
}

// NewHashVerifier returns a verifier over store. When upgradeOnLogin is set and
// store implements PasswordHashUpdater, hashes the hasher reports as needing an
// upgrade are rewritten after a successful check.
func NewHashVerifier(store UserStore, hasher password.Hasher, logger logrus.FieldLogger, upgradeOnLogin bool) (*HashVerifier, error) {
	if store == nil {
		return nil, errors.New("hash verifier requires a user store")
	}
	if hasher == nil {
		return nil, errors.New("hash verifier requires a password hasher")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dummy, err := hasher.Hash("dummy-Password-1")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &HashVerifier{
		store:          store,
		hasher:         hasher,
		logger:         logger,
		upgradeOnLogin: upgradeOnLogin,
		dummyHash:      dummy,
	}, nil
}

func (v *HashVerifier) Verify(ctx context.Context, email, pass string) (VerifiedIdentity, error) {
	email = NormalizeEmail(email)
	if email == "" || pass == "" {
		return VerifiedIdentity{}, ErrInvalidCredentials
	}

	rec, err := v.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_, _ = v.hasher.Verify(pass, v.dummyHash)
			return VerifiedIdentity{}, ErrInvalidCredentials
		}
		v.logger.WithError(err).Warn("user lookup failed")
		return VerifiedIdentity{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	if rec.PasswordHash == "" {
		v.logger.WithField("subject", rec.ID).Error("user record has no password hash")
		return VerifiedIdentity{}, fmt.Errorf("%w: missing password hash", ErrAuthUnavailable)
	}

	ok, err := v.hasher.Verify(pass, rec.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return VerifiedIdentity{}, ErrInvalidCredentials
		}
		v.logger.WithField("subject", rec.ID).WithError(err).Error("stored password hash unusable")
		return VerifiedIdentity{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if !ok {
		return VerifiedIdentity{}, ErrInvalidCredentials
	}

	if !rec.Role.Valid() {
		v.logger.WithField("subject", rec.ID).WithField("role", string(rec.Role)).Error("user record has unknown role")
		return VerifiedIdentity{}, ErrInvalidCredentials
	}

	if v.upgradeOnLogin {
		v.maybeUpgrade(ctx, rec, pass)
	}

	return VerifiedIdentity{SubjectID: rec.ID, Email: rec.Email, Role: rec.Role}, nil
}

func (v *HashVerifier) maybeUpgrade(ctx context.Context, rec UserRecord, pass string) {
	updater, ok := v.store.(PasswordHashUpdater)
	if !ok {
		return
	}
	needs, err := v.hasher.NeedsUpgrade(rec.PasswordHash)
	if err != nil || !needs {
		return
	}
	newHash, err := v.hasher.Hash(pass)
	if err != nil {
		v.logger.WithField("subject", rec.ID).WithError(err).Warn("password rehash failed")
		return
	}
	if err := updater.UpdatePasswordHash(ctx, rec.ID, newHash); err != nil {
		v.logger.WithField("subject", rec.ID).WithError(err).Warn("password hash update failed")
	}
}

// MockPassword is the password of every MockVerifier account.
const MockPassword = "password123"

// MockAccounts are the development accounts accepted by MockVerifier. The
// subject id of each is its email.
var MockAccounts = []VerifiedIdentity{
	{SubjectID: "farmer@example.com", Email: "farmer@example.com", Role: RoleFarmer},
	{SubjectID: "expert@example.com", Email: "expert@example.com", Role: RoleExpert},
	{SubjectID: "admin@example.com", Email: "admin@example.com", Role: RoleAdmin},
}

// MockVerifier accepts the fixed development accounts. The Builder refuses to
// create one in production.
type MockVerifier struct{}

func (MockVerifier) Verify(_ context.Context, email, pass string) (VerifiedIdentity, error) {
	email = NormalizeEmail(email)
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(MockPassword)) == 1
	for _, acct := range MockAccounts {
		if acct.Email == email && passOK {
			return acct, nil
		}
	}
	return VerifiedIdentity{}, ErrInvalidCredentials
}

// FallbackVerifier tries each verifier in order and returns the first success.
// Only ErrInvalidCredentials moves on to the next verifier; any other failure
// stops the chain and is returned, so an unavailable store never hands the
// attempt to a later verifier. Development builds use it to accept the mock
// accounts alongside registered ones.
type FallbackVerifier []CredentialVerifier

func (f FallbackVerifier) Verify(ctx context.Context, email, pass string) (VerifiedIdentity, error) {
	for _, v := range f {
		identity, err := v.Verify(ctx, email, pass)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, ErrInvalidCredentials) {
			return VerifiedIdentity{}, err
		}
	}
	return VerifiedIdentity{}, ErrInvalidCredentials
}
