// rotalog-stress writes paced records from several goroutines so rotation can
// be observed under contention.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/orgoj/rotalog/internal/config"
	"github.com/orgoj/rotalog/internal/format"
	"github.com/orgoj/rotalog/internal/level"
	"github.com/orgoj/rotalog/internal/logger"
)

type options struct {
	Workers  int
	Rate     float64 // records per second across all workers, 0 = unlimited
	Duration time.Duration
	Records  int // per worker, 0 = until Duration elapses
	Size     int // message bytes
	Level    level.Level
}

type stats struct {
	Written int64
	Failed  int64
	Elapsed time.Duration
}

func main() {
	configPath := flag.String("config", "", "Path to the configuration file (defaults are used when empty)")
	workers := flag.Int("workers", 4, "Concurrent writers")
	rps := flag.Float64("rate", 1000, "Records per second across all writers (0 = unlimited)")
	duration := flag.Duration("duration", 5*time.Second, "How long to write")
	records := flag.Int("records", 0, "Records per writer (0 = until duration elapses)")
	size := flag.Int("size", 100, "Message size in bytes")
	levelName := flag.String("level", "info", "Level of the generated records")
	flag.Parse()

	lvl, err := level.Parse(*levelName)
	if err != nil {
		fmt.Printf("[CRITICAL] %v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Printf("[CRITICAL] %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	d, err := logger.New(cfg)
	if err != nil {
		fmt.Printf("[CRITICAL] failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	prof, err := logger.NewProfilerFromConfig(cfg.Profiler)
	if err != nil {
		fmt.Printf("[CRITICAL] failed to initialize profiler: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := runStress(ctx, d, prof, options{
		Workers:  *workers,
		Rate:     *rps,
		Duration: *duration,
		Records:  *records,
		Size:     *size,
		Level:    lvl,
	})
	_ = prof.Close()
	_ = d.Close()
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
	}
	fmt.Printf("written=%d failed=%d elapsed=%s (%.0f records/s)\n",
		res.Written, res.Failed, res.Elapsed.Round(time.Millisecond), float64(res.Written)/res.Elapsed.Seconds())
	if err != nil {
		os.Exit(1)
	}
}

// runStress returns when every worker has written its records, the duration
// has elapsed or ctx is cancelled. Write errors are counted, not fatal.
func runStress(ctx context.Context, d *logger.Dispatcher, prof *logger.Profiler, opts options) (stats, error) {
	if opts.Workers < 1 {
		return stats{}, fmt.Errorf("workers must be positive, got %d", opts.Workers)
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	limit := rate.Inf
	burst := 0
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
		burst = opts.Workers
	}
	limiter := rate.NewLimiter(limit, burst)

	var written, failed atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		payload := fmt.Sprintf("worker-%02d ", w)
		if pad := opts.Size - len(payload); pad > 0 {
			payload += strings.Repeat("x", pad)
		}
		g.Go(func() error {
			defer prof.Start()()
			site := format.Caller(0)
			for i := 0; opts.Records == 0 || i < opts.Records; i++ {
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}
				if err := d.WriteLog(site, opts.Level, payload); err != nil {
					failed.Add(1)
					continue
				}
				written.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	return stats{Written: written.Load(), Failed: failed.Load(), Elapsed: time.Since(start)}, err
}
