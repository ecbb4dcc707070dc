// Command goguard-loadtest drives the Redis-backed token store and rate
// limiter under concurrency and reports latency percentiles. The rate-limit
// phase also checks that no client was admitted more than the limit.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goGuard/cache"
	"github.com/MrEthical07/goGuard/identity"
	"github.com/MrEthical07/goGuard/internal/rate"
	"github.com/MrEthical07/goGuard/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		tokens      = flag.Int("tokens", 20000, "number of bearer tokens to seed")
		clients     = flag.Int("clients", 500, "distinct client addresses in the rate-limit phase")
		maxAttempts = flag.Int64("max-attempts", 10, "rate limit per client per window")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *tokens <= 0 || *clients <= 0 || *maxAttempts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, clients, max-attempts, concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
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

	store := token.NewRedisStore(client, "loadtest:tok")
	seeded := make([]string, *tokens)
	fmt.Printf("seeding %d tokens...\n", *tokens)
	startSeed := time.Now()
	for i := range seeded {
		tok, err := store.Issue(ctx, &identity.Identity{UserID: fmt.Sprintf("u%d", i)}, time.Hour)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		seeded[i] = tok
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runResolvePhase(ctx, store, seeded, *ops, *concurrency)

	limiter, err := rate.New(cache.NewRedisCache(client, "loadtest"), rate.Policy{
		MaxAttempts: *maxAttempts,
		Window:      time.Hour,
	}, "rl:")
	if err != nil {
		fmt.Fprintf(os.Stderr, "limiter: %v\n", err)
		os.Exit(1)
	}
	limitStats, admitted := runRateLimitPhase(ctx, limiter, *clients, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("rate-limit", limitStats)

	violations := 0
	for _, n := range admitted {
		if n > *maxAttempts {
			violations++
		}
	}
	fmt.Printf("rate-limit: clients=%d max=%d violations=%d\n", len(admitted), *maxAttempts, violations)
	if violations > 0 {
		os.Exit(1)
	}
}

// runPhase spreads ops over concurrency workers and times each call to op.
func runPhase(concurrency, ops, seed int, op func(r *rand.Rand, i int) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker*seed)))
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

func runResolvePhase(ctx context.Context, store *token.RedisStore, seeded []string, ops, concurrency int) phaseStats {
	return runPhase(concurrency, ops, 7919, func(r *rand.Rand, _ int) error {
		id, err := store.Resolve(ctx, seeded[r.Intn(len(seeded))])
		if err != nil {
			return err
		}
		if id == nil {
			return fmt.Errorf("seeded token did not resolve")
		}
		return nil
	})
}

func runRateLimitPhase(ctx context.Context, limiter *rate.Limiter, clients, ops, concurrency int) (phaseStats, []int64) {
	admitted := make([]int64, clients)
	stats := runPhase(concurrency, ops, 6151, func(r *rand.Rand, _ int) error {
		c := r.Intn(clients)
		d, err := limiter.Hit(ctx, fmt.Sprintf("10.%d.%d.%d", c>>16&0xff, c>>8&0xff, c&0xff), "/login")
		if err != nil {
			return err
		}
		if d.Allowed {
			atomic.AddInt64(&admitted[c], 1)
		}
		return nil
	})
	return stats, admitted
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
