package farmAuth

import (
	"context"
	"testing"
)

func TestSecurityReportDefaults(t *testing.T) {
	cfg := testConfig()
	engine := buildTestEngine(t, cfg, newFakeUserStore())

	r := engine.SecurityReport()
	if r.ProductionMode || r.DevelopmentSecret || r.KeyRotationActive {
		t.Fatalf("unexpected flags: %+v", r)
	}
	if r.SigningAlgorithm != "HS256" || r.SessionTTL != cfg.Session.TTL || !r.SlidingExpiration {
		t.Fatalf("unexpected session report: %+v", r)
	}
	if r.LoginRateLimit.MaxAttempts != 5 || r.LoginRateLimit.Backend != "memory" || !r.LoginRateLimit.FailOpen {
		t.Fatalf("unexpected login limit report: %+v", r.LoginRateLimit)
	}
	if !r.RegistrationActive || len(r.SelfServiceRoles) != 2 || r.RegisterRateLimit.MaxAttempts != 5 {
		t.Fatalf("unexpected registration report: %+v", r)
	}
	if r.Password.Algorithm != PasswordArgon2id || r.Password.Memory != 8*1024 {
		t.Fatalf("unexpected password report: %+v", r.Password)
	}
}

func TestSecurityReportRedisAndDevSecret(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Session.Secret = nil
	cfg.Credentials.Mode = CredentialsMock
	cfg.Account.Enabled = false

	engine := buildTestEngine(t, cfg, nil, func(b *Builder) { b.WithRedis(rdb) })

	r := engine.SecurityReport()
	if !r.DevelopmentSecret || r.LoginRateLimit.Backend != "redis" {
		t.Fatalf("unexpected report: %+v", r)
	}
	if r.RegistrationActive || r.UserStoreAttached || r.SelfServiceRoles != nil {
		t.Fatalf("registration should be inactive: %+v", r)
	}
}

func TestSecurityReportNilEngine(t *testing.T) {
	var e *Engine
	if r := e.SecurityReport(); r.SigningAlgorithm != "" {
		t.Fatalf("expected zero report, got %+v", r)
	}
}

func TestHashPasswordSignsIn(t *testing.T) {
	store := newFakeUserStore()
	engine := buildTestEngine(t, testConfig(), store)

	hash, err := engine.HashPassword("Seeded2026")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	store.put(UserRecord{ID: "seeded", Email: "seeded@example.com", Role: RoleExpert, PasswordHash: hash})

	res, err := engine.Login(context.Background(), "seeded@example.com", "Seeded2026")
	if err != nil || res.Claims.SubjectID != "seeded" {
		t.Fatalf("expected sign-in with seeded hash, got %+v %v", res, err)
	}

	var nilEngine *Engine
	if _, err := nilEngine.HashPassword("x"); err != ErrEngineNotReady {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
