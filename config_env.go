package farmAuth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadEnvironment.
const (
	EnvMode              = "FARMAUTH_ENV"
	EnvSessionSecret     = "FARMAUTH_SESSION_SECRET"
	EnvSessionTTL        = "FARMAUTH_SESSION_TTL"
	EnvLoginMaxAttempts  = "FARMAUTH_LOGIN_MAX_ATTEMPTS"
	EnvLoginWindow       = "FARMAUTH_LOGIN_WINDOW"
	EnvIPThrottle        = "FARMAUTH_IP_THROTTLE"
	EnvTrustProxy        = "FARMAUTH_TRUST_PROXY"
	EnvCredentials       = "FARMAUTH_CREDENTIALS"
	EnvPasswordAlgorithm = "FARMAUTH_PASSWORD_ALGORITHM"
	EnvRoutesFile        = "FARMAUTH_ROUTES_FILE"
	EnvRedisAddr         = "FARMAUTH_REDIS_ADDR"
	EnvLogLevel          = "FARMAUTH_LOG_LEVEL"
	defaultEnvFile       = ".env"
	defaultEnvLocalFile  = ".env.local"
	modeProduction       = "production"
	modeDevelopment      = "development"
)

// Environment is the process configuration: the engine Config plus the settings
// consumed by the server binary.
type Environment struct {
	Config    Config
	RedisAddr string
	LogLevel  string
}

// LoadEnvironment reads dotenv files (default .env.local then .env; missing
// files are skipped, variables already set win) and then the FARMAUTH_*
// variables on top of DefaultConfig. The result is validated.
func LoadEnvironment(files ...string) (*Environment, error) {
	if len(files) == 0 {
		files = []string{defaultEnvLocalFile, defaultEnvFile}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	env, err := environmentFromLookup(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if err := env.Config.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// LoadConfig is LoadEnvironment without the server settings.
func LoadConfig(files ...string) (Config, error) {
	env, err := LoadEnvironment(files...)
	if err != nil {
		return Config{}, err
	}
	return env.Config, nil
}

func environmentFromLookup(lookup func(string) (string, bool)) (*Environment, error) {
	cfg := DefaultConfig()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvMode); ok {
		switch strings.ToLower(v) {
		case modeProduction:
			cfg.Security.ProductionMode = true
		case modeDevelopment:
			cfg.Security.ProductionMode = false
		default:
			return nil, fmt.Errorf("%s must be %q or %q", EnvMode, modeDevelopment, modeProduction)
		}
	}
	if v, ok := get(EnvSessionSecret); ok {
		cfg.Session.Secret = []byte(v)
	}
	if v, ok := get(EnvSessionTTL); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSessionTTL, err)
		}
		cfg.Session.TTL = d
	}
	if v, ok := get(EnvLoginMaxAttempts); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLoginMaxAttempts, err)
		}
		cfg.Security.MaxLoginAttempts = n
	}
	if v, ok := get(EnvLoginWindow); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLoginWindow, err)
		}
		cfg.Security.LoginWindow = d
	}
	if v, ok := get(EnvIPThrottle); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvIPThrottle, err)
		}
		cfg.Security.EnableIPThrottle = b
	}
	if v, ok := get(EnvTrustProxy); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTrustProxy, err)
		}
		cfg.Security.TrustForwardedFor = b
	}
	if v, ok := get(EnvCredentials); ok {
		cfg.Credentials.Mode = CredentialMode(strings.ToLower(v))
	}
	if v, ok := get(EnvPasswordAlgorithm); ok {
		cfg.Password.Algorithm = strings.ToLower(v)
	}
	if v, ok := get(EnvRoutesFile); ok {
		cfg.Routes.File = v
	}

	env := &Environment{Config: cfg, LogLevel: "info"}
	if v, ok := get(EnvRedisAddr); ok {
		env.RedisAddr = v
	}
	if v, ok := get(EnvLogLevel); ok {
		env.LogLevel = strings.ToLower(v)
	}
	return env, nil
}
