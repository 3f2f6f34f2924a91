// Command farmauth-loadtest measures access decisions and rate-limited sign-ins
// under concurrency, against Redis or an embedded miniredis.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	farmAuth "github.com/MrEthical07/farmAuth"
	otelexport "github.com/MrEthical07/farmAuth/metrics/export/otel"
	"github.com/MrEthical07/farmAuth/metrics/export/prometheus"
	"github.com/MrEthical07/farmAuth/middleware"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var samplePaths = []string{
	"/", "/about", "/dashboard", "/farms/12", "/sensors/3/readings",
	"/admin", "/api/farms", "/api/admin/users", "/auth/login", "/unknown",
}

func main() {
	var (
		identities  = flag.Int("identities", 10000, "number of distinct sign-in identities")
		tokens      = flag.Int("tokens", 1000, "number of session tokens to mint for the decide phase")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (decide + login)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, FARMAUTH_REDIS_ADDR or miniredis is used")
		report      = flag.String("report", "summary", "final metrics report: summary, prometheus or otel")
	)
	flag.Parse()

	if *identities <= 0 || *tokens <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "identities, tokens, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv(farmAuth.EnvRedisAddr)
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cfg := farmAuth.DefaultConfig()
	cfg.Session.Secret = []byte("loadtest-secret-not-for-production-use")
	cfg.Credentials.Mode = farmAuth.CredentialsMock
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := farmAuth.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	controller, err := middleware.ControllerFromEngine(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "controller failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("minting %d session tokens...\n", *tokens)
	startMint := time.Now()
	minted := make([]string, 0, *tokens)
	for i := 0; i < *tokens; i++ {
		acct := farmAuth.MockAccounts[i%len(farmAuth.MockAccounts)]
		res, err := engine.Login(ctx, acct.Email, farmAuth.MockPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		minted = append(minted, res.Token)
	}
	fmt.Printf("minted in %s\n", time.Since(startMint).Round(time.Millisecond))

	decideStats := runDecidePhase(ctx, controller, minted, *ops, *concurrency)
	loginStats := runLoginPhase(ctx, engine, *identities, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("decide", decideStats)
	printStats("login", loginStats)

	if err := printReport(ctx, *report, engine); err != nil {
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}
}

func printReport(ctx context.Context, kind string, engine *farmAuth.Engine) error {
	switch kind {
	case "prometheus":
		fmt.Print(prometheus.New(engine).Render())
		return nil
	case "otel":
		return printOTel(ctx, engine)
	default:
		snap := engine.MetricsSnapshot()
		fmt.Printf("rate limited=%d redirects=%d rejected=%d\n",
			snap.Counters[farmAuth.MetricLoginRateLimited],
			snap.Counters[farmAuth.MetricAccessRedirectLogin]+snap.Counters[farmAuth.MetricAccessRedirectLanding],
			snap.Counters[farmAuth.MetricAccessRejected],
		)
		return nil
	}
}

// printOTel collects once through an in-process reader and prints every
// int64 data point.
func printOTel(ctx context.Context, engine *farmAuth.Engine) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	exp, err := otelexport.New(provider.Meter("farmauth-loadtest"), engine)
	if err != nil {
		return err
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return err
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					fmt.Printf("%s %d\n", m.Name, dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					fmt.Printf("%s %d\n", m.Name, dp.Value)
				}
			}
		}
	}
	return nil
}

// runDecidePhase sends a quarter of the requests without a cookie.
func runDecidePhase(ctx context.Context, c *middleware.Controller, tokens []string, ops, concurrency int) phaseStats {
	run := func(r *rand.Rand, _ int) error {
		req := middleware.Request{Path: samplePaths[r.Intn(len(samplePaths))]}
		if r.Intn(4) != 0 {
			req.HasSession = true
			req.SessionToken = tokens[r.Intn(len(tokens))]
		}
		c.Decide(ctx, req)
		return nil
	}
	return runPhase(ops, concurrency, 7919, run)
}

// runLoginPhase mixes good and bad passwords across identities so the limiter
// sees both resets and denials. Only backend failures count as failures.
func runLoginPhase(ctx context.Context, engine *farmAuth.Engine, identities, ops, concurrency int) phaseStats {
	run := func(r *rand.Rand, _ int) error {
		email := fmt.Sprintf("grower-%d@example.com", r.Intn(identities))
		pass := "wrong-password"
		if r.Intn(10) == 0 {
			acct := farmAuth.MockAccounts[r.Intn(len(farmAuth.MockAccounts))]
			email, pass = acct.Email, farmAuth.MockPassword
		}
		_, err := engine.Login(ctx, email, pass)
		if err == nil || errors.Is(err, farmAuth.ErrInvalidCredentials) || errors.Is(err, farmAuth.ErrRateLimited) {
			return nil
		}
		return err
	}
	return runPhase(ops, concurrency, 6151, run)
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
