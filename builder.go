package farmAuth

import (
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/farmAuth/internal/audit"
	"github.com/MrEthical07/farmAuth/internal/rate"
	"github.com/MrEthical07/farmAuth/jwt"
	"github.com/MrEthical07/farmAuth/password"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an [Engine]. Configure it during initialization and call
// Build once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserStore
	verifier  CredentialVerifier
	logger    logrus.FieldLogger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores rate-limit counters in Redis instead of process memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the user-record collaborator. It is required for hash
// credentials and for registration.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithCredentialVerifier overrides the verifier selected by Credentials.Mode.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for token expiry, cookie lifetimes and rate-limit
// windows.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can be
// used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	if len(cfg.Session.Secret) == 0 {
		logger.Warn("no session secret configured; using the development secret")
		cfg.Session.Secret = []byte(DevelopmentSigningSecret)
	}

	// -------- SESSION CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		Secret:     cloneBytes(cfg.Session.Secret),
		TTL:        cfg.Session.TTL,
		Issuer:     cfg.Session.Issuer,
		KeyID:      cfg.Session.KeyID,
		VerifyKeys: cfg.Session.PreviousSecrets,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD HASHING --------
	hasher, err := newPasswordHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	// -------- CREDENTIALS --------
	verifier := b.verifier
	if verifier == nil {
		verifier, err = newCredentialVerifier(cfg, b.users, hasher, logger)
		if err != nil {
			return nil, err
		}
	}

	// -------- METRICS --------
	metrics := NewMetrics(cfg.Metrics)

	// -------- RATE LIMITING --------
	var counters rate.CounterStore
	if b.redis != nil {
		counters = rate.NewRedisStore(b.redis, cfg.RateLimit.RedisPrefix, now)
	} else {
		retention := cfg.Security.LoginWindow
		if cfg.Account.Window > retention {
			retention = cfg.Account.Window
		}
		counters = rate.NewMemoryStore(rate.MemoryConfig{
			MaxKeys:   cfg.RateLimit.MemoryMaxKeys,
			Retention: retention,
			Now:       now,
		})
	}

	onStoreError := func(key string, err error) {
		metrics.Inc(MetricRateLimitStoreError)
		logger.WithError(err).WithField("key", key).Warn("rate limit store unavailable")
	}

	loginLimiter, err := rate.New(counters, rate.Config{
		MaxAttempts:  cfg.Security.MaxLoginAttempts,
		Window:       cfg.Security.LoginWindow,
		FailOpen:     cfg.Security.RateLimitFailOpen,
		OnStoreError: onStoreError,
	})
	if err != nil {
		return nil, err
	}

	var registerLimiter *rate.Limiter
	if cfg.Account.Enabled {
		registerLimiter, err = rate.New(counters, rate.Config{
			MaxAttempts:  cfg.Account.MaxAttempts,
			Window:       cfg.Account.Window,
			FailOpen:     cfg.Security.RateLimitFailOpen,
			OnStoreError: onStoreError,
		})
		if err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:          cfg,
		logger:          logger,
		now:             now,
		jwtManager:      jm,
		hasher:          hasher,
		verifier:        verifier,
		users:           b.users,
		counters:        counters,
		loginLimiter:    loginLimiter,
		registerLimiter: registerLimiter,
		metrics:         metrics,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	b.built = true
	return engine, nil
}

// newPasswordHasher hashes with the configured algorithm and keeps the other
// one for verifying existing hashes.
func newPasswordHasher(cfg PasswordConfig) (password.Hasher, error) {
	argon, err := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
		// Same cap as bcrypt so a hash can move between algorithms.
		MaxPasswordBytes: maxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	bc, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	if cfg.Algorithm == PasswordBcrypt {
		return password.NewChain(bc, argon)
	}
	return password.NewChain(argon, bc)
}

func newCredentialVerifier(cfg Config, users UserStore, hasher password.Hasher, logger logrus.FieldLogger) (CredentialVerifier, error) {
	switch cfg.Credentials.Mode {
	case CredentialsMock:
		logger.Warn("mock credentials enabled; development accounts accept password123")
		if users == nil {
			return MockVerifier{}, nil
		}
		hv, err := NewHashVerifier(users, hasher, logger, cfg.Password.UpgradeOnLogin)
		if err != nil {
			return nil, err
		}
		return FallbackVerifier{hv, MockVerifier{}}, nil
	default:
		if users == nil {
			return nil, errors.New("user store required for hash credentials")
		}
		return NewHashVerifier(users, hasher, logger, cfg.Password.UpgradeOnLogin)
	}
}
