package farmAuth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestEnvironmentFromLookup(t *testing.T) {
	env, err := environmentFromLookup(lookupFrom(map[string]string{
		EnvMode:              "production",
		EnvSessionSecret:     testSecret,
		EnvSessionTTL:        "12h",
		EnvLoginMaxAttempts:  "3",
		EnvLoginWindow:       "10m",
		EnvIPThrottle:        "true",
		EnvTrustProxy:        "1",
		EnvCredentials:       "HASH",
		EnvPasswordAlgorithm: "bcrypt",
		EnvRoutesFile:        "routes.yaml",
		EnvRedisAddr:         "localhost:6379",
		EnvLogLevel:          "DEBUG",
	}))
	if err != nil {
		t.Fatalf("environmentFromLookup: %v", err)
	}

	cfg := env.Config
	if !cfg.Security.ProductionMode || string(cfg.Session.Secret) != testSecret {
		t.Fatalf("unexpected security settings: %+v", cfg.Security)
	}
	if cfg.Session.TTL != 12*time.Hour || cfg.Security.MaxLoginAttempts != 3 || cfg.Security.LoginWindow != 10*time.Minute {
		t.Fatalf("unexpected parsed values: ttl=%v attempts=%d window=%v", cfg.Session.TTL, cfg.Security.MaxLoginAttempts, cfg.Security.LoginWindow)
	}
	if !cfg.Security.EnableIPThrottle || !cfg.Security.TrustForwardedFor || cfg.Credentials.Mode != CredentialsHash || cfg.Password.Algorithm != PasswordBcrypt {
		t.Fatalf("unexpected switches: %+v", cfg)
	}
	if cfg.Routes.File != "routes.yaml" || env.RedisAddr != "localhost:6379" || env.LogLevel != "debug" {
		t.Fatalf("unexpected env: %+v", env)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestEnvironmentFromLookupDefaults(t *testing.T) {
	env, err := environmentFromLookup(lookupFrom(map[string]string{EnvSessionTTL: "  "}))
	if err != nil {
		t.Fatalf("environmentFromLookup: %v", err)
	}
	if env.Config.Session.TTL != 24*time.Hour || env.LogLevel != "info" || env.RedisAddr != "" {
		t.Fatalf("unexpected defaults: %+v", env)
	}
}

func TestEnvironmentFromLookupErrorsNameVariable(t *testing.T) {
	tests := map[string]string{
		EnvMode:             "staging",
		EnvSessionTTL:       "forever",
		EnvLoginMaxAttempts: "five",
		EnvLoginWindow:      "soon",
		EnvIPThrottle:       "maybe",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := environmentFromLookup(lookupFrom(map[string]string{key: value}))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("error %q does not name %s", err, key)
			}
		})
	}
}

func TestLoadEnvironmentReadsDotenvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "FARMAUTH_LOGIN_MAX_ATTEMPTS=7\nFARMAUTH_CREDENTIALS=mock\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(EnvLoginMaxAttempts, "")
	t.Setenv(EnvCredentials, "")
	os.Unsetenv(EnvLoginMaxAttempts)
	os.Unsetenv(EnvCredentials)

	cfg, err := LoadConfig(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Security.MaxLoginAttempts != 7 || cfg.Credentials.Mode != CredentialsMock {
		t.Fatalf("dotenv values not applied: attempts=%d mode=%s", cfg.Security.MaxLoginAttempts, cfg.Credentials.Mode)
	}
}

func TestLoadEnvironmentValidates(t *testing.T) {
	t.Setenv(EnvMode, "production")
	t.Setenv(EnvSessionSecret, "")

	if _, err := LoadEnvironment(filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Fatal("expected production without secret to fail validation")
	}
}
