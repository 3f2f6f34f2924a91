// Command farmauth-server runs the farm-advisory front door: the access
// controller in front of every route, the sign-in, registration and sign-out
// endpoints, placeholder pages for each route class and a Prometheus
// endpoint.
//
// Configuration comes from FARMAUTH_* variables and .env/.env.local files.
// Without FARMAUTH_REDIS_ADDR the rate limiter counts in memory, or in an
// embedded miniredis when --miniredis is set.
//
// Run:
//
//	FARMAUTH_CREDENTIALS=mock go run ./cmd/farmauth-server
//
// Then:
//
//	curl -i -c jar.txt -X POST localhost:8080/auth/login \
//	  -H 'Content-Type: application/json' \
//	  -d '{"email":"farmer@example.com","password":"password123"}'
//
//	curl -i -b jar.txt localhost:8080/api/me
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	farmAuth "github.com/MrEthical07/farmAuth"
	"github.com/MrEthical07/farmAuth/handlers"
	"github.com/MrEthical07/farmAuth/metrics/export/prometheus"
	"github.com/MrEthical07/farmAuth/middleware"
	"github.com/MrEthical07/farmAuth/userstore"

	"github.com/alicebob/miniredis/v2"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

type options struct {
	addr       string
	envFiles   []string
	logLevel   string
	routesFile string
	miniredis  bool
	audit      bool
	seedDemo   bool
}

func main() {
	opts := options{}
	flag.StringVar(&opts.addr, "addr", ":8080", "listen address")
	flag.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env.local,.env)")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level; overrides FARMAUTH_LOG_LEVEL")
	flag.StringVar(&opts.routesFile, "routes", "", "YAML route table; overrides FARMAUTH_ROUTES_FILE")
	flag.BoolVar(&opts.miniredis, "miniredis", false, "use an embedded miniredis when no Redis address is configured")
	flag.BoolVar(&opts.audit, "audit", true, "write audit events to the log")
	flag.BoolVar(&opts.seedDemo, "seed-demo", false, "create the demo accounts in the user store")
	flag.Parse()

	logger := logrus.New()
	if err := run(opts, logger); err != nil {
		logger.WithError(err).Fatal("farmauth-server stopped")
	}
}

func run(opts options, logger *logrus.Logger) error {
	env, err := farmAuth.LoadEnvironment(opts.envFiles...)
	if err != nil {
		return err
	}

	level := env.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	if env.Config.Security.ProductionMode {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	cfg := env.Config
	if opts.routesFile != "" {
		cfg.Routes.File = opts.routesFile
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Audit.Enabled = opts.audit

	// ---------- infrastructure ----------
	rdb, closeRedis, err := openRedis(env.RedisAddr, opts.miniredis, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	users := userstore.NewMemory()

	// ---------- engine ----------
	builder := farmAuth.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithUserStore(users).
		WithAuditSink(farmAuth.NewLogSink(logger.WithField("component", "audit")))
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if opts.seedDemo {
		if err := seedDemoAccounts(context.Background(), engine, users); err != nil {
			return err
		}
	}

	// ---------- routes ----------
	controller, err := middleware.ControllerFromEngine(engine)
	if err != nil {
		return err
	}
	auth, err := handlers.FromEngine(engine)
	if err != nil {
		return err
	}

	mux := newMux(auth, metricsHandler(engine))
	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           middleware.Guard(controller)(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"addr":       opts.addr,
		"production": cfg.Security.ProductionMode,
		"mode":       cfg.Credentials.Mode,
	}).Info("listening")
	logger.WithField("report", engine.SecurityReport()).Debug("security posture")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// metricsHandler serves the engine series together with the Go runtime and
// process collectors.
func metricsHandler(engine *farmAuth.Engine) http.Handler {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewCollector(engine),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// openRedis returns nil when neither an address nor the embedded server is
// requested; the engine then keeps counters in memory.
func openRedis(addr string, embedded bool, logger logrus.FieldLogger) (redis.UniversalClient, func(), error) {
	if addr == "" && !embedded {
		logger.Info("no Redis configured; rate-limit counters are per process")
		return nil, func() {}, nil
	}

	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		addr = mr.Addr()
		logger.WithField("addr", addr).Info("using embedded miniredis")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("redis ping failed; limiter will follow its fail-open policy")
	}

	return client, func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}

// seedDemoAccounts stores the mock accounts with real hashes so hash mode can
// sign them in. Ids match the mock subjects.
func seedDemoAccounts(ctx context.Context, engine *farmAuth.Engine, users *userstore.Memory) error {
	for _, acct := range farmAuth.MockAccounts {
		hash, err := engine.HashPassword(farmAuth.MockPassword)
		if err != nil {
			return err
		}
		users.Seed(farmAuth.UserRecord{
			ID:           acct.SubjectID,
			Email:        acct.Email,
			Name:         string(acct.Role) + " demo",
			Role:         acct.Role,
			PasswordHash: hash,
			Verified:     true,
		})
	}
	return nil
}
