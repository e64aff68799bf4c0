package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/camtable/cam"
	"github.com/IvanBrykalov/camtable/internal/config"
	pmet "github.com/IvanBrykalov/camtable/metrics/prom"
)

type benchOptions struct {
	capacity    int
	keyWidth    int
	writePolicy string
	eviction    string

	workers  int
	duration time.Duration
	readPct  int
	keys     uint64
	zipfS    float64
	zipfV    float64
	seed     int64

	pprofAddr   string
	metricsAddr string
}

func newBenchCmd(ro *rootOptions) *cobra.Command {
	o := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic search/write workload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), ro.log, o)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.capacity, "cap", 4096, "table capacity (slots)")
	f.IntVar(&o.keyWidth, "key-width", 48, "key width in bits")
	f.StringVar(&o.writePolicy, "write-policy", "confirm", "write policy: simple | confirm | maxlenprefix")
	f.StringVar(&o.eviction, "policy", "plru", "eviction policy: none | wraparound | nru2 | plru")
	f.IntVar(&o.workers, "workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
	f.DurationVar(&o.duration, "duration", 10*time.Second, "benchmark duration")
	f.IntVar(&o.readPct, "reads", 90, "search percentage [0..100]")
	f.Uint64Var(&o.keys, "keys", 1<<16, "keyspace size")
	f.Float64Var(&o.zipfS, "zipf-s", 1.1, "Zipf s > 1 (skew)")
	f.Float64Var(&o.zipfV, "zipf-v", 1.0, "Zipf v")
	f.Int64Var(&o.seed, "seed", time.Now().UnixNano(), "random seed")
	f.StringVar(&o.pprofAddr, "pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
	f.StringVar(&o.metricsAddr, "http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
	return cmd
}

func runBench(ctx context.Context, log *zap.Logger, o *benchOptions) error {
	if o.workers <= 0 {
		o.workers = 1
	}
	if o.keys < 2 {
		return fmt.Errorf("keys must be >= 2, got %d", o.keys)
	}

	cfg := config.Config{
		Capacity:    o.capacity,
		KeyWidth:    o.keyWidth,
		WritePolicy: o.writePolicy,
		Eviction:    o.eviction,
		KeyFormat:   config.FormatUint,
	}
	metrics := pmet.New(nil, "camtable", "bench", nil)
	opt, err := cfg.Options(log, metrics)
	if err != nil {
		return err
	}
	tb, err := cam.New(opt)
	if err != nil {
		return err
	}

	serve := func(name, addr string) {
		go func() {
			log.Info("serving", zap.String("endpoint", name), zap.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Error("http server stopped", zap.String("endpoint", name), zap.Error(err))
			}
		}()
	}
	if o.metricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		serve("metrics", o.metricsAddr)
	}
	if o.pprofAddr != "" && o.pprofAddr != o.metricsAddr {
		serve("pprof", o.pprofAddr)
	}

	keyMask := uint64(1)<<o.keyWidth - 1
	if o.keyWidth >= 64 {
		keyMask = ^uint64(0)
	}
	lpm := opt.WritePolicy == cam.MaxLenPrefix

	var reads, writes, hits, rejected, failed atomic.Uint64
	ctx, cancel := context.WithTimeout(ctx, o.duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < o.workers; w++ {
		w := w
		g.Go(func() error {
			// rand.Rand is not goroutine-safe: one source per worker.
			r := rand.New(rand.NewSource(o.seed + int64(w)*9973))
			zipf := rand.NewZipf(r, o.zipfS, o.zipfV, o.keys-1)
			key := func() uint64 { return (zipf.Uint64() * 0x9E3779B97F4A7C15) & keyMask }

			for gctx.Err() == nil {
				if r.Intn(100) < o.readPct {
					reads.Add(1)
					res, err := tb.Search(key())
					if errors.Is(err, cam.ErrIntegrity) {
						tb.Clear()
						continue
					}
					if res.Found {
						hits.Add(1)
					}
					continue
				}

				writes.Add(1)
				wr := cam.Write{Index: cam.AutoIndex, Key: key(), Metadata: uint64(w)}
				if lpm {
					wr.PrefixLen = 1 + r.Intn(o.keyWidth)
				}
				res, err := tb.ProposeWrite(wr)
				switch {
				case errors.Is(err, cam.ErrIntegrity):
					tb.Clear()
				case err != nil:
					failed.Add(1)
				case res.RejectedDuplicate:
					rejected.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	ops := reads.Load() + writes.Load()
	hitRate := 0.0
	if n := reads.Load(); n > 0 {
		hitRate = float64(hits.Load()) / float64(n) * 100
	}
	st := tb.Stats()

	fmt.Printf("policy=%s write-policy=%s cap=%d workers=%d keys=%d dur=%v seed=%d\n",
		opt.Policy.Name(), opt.WritePolicy, o.capacity, o.workers, o.keys, elapsed, o.seed)
	fmt.Printf("ops=%d (%.0f ops/s)  searches=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), reads.Load(), writes.Load())
	fmt.Printf("hit-rate=%.2f%%  duplicates=%d  failed=%d  integrity=%d\n",
		hitRate, rejected.Load(), failed.Load(), st.Integrity)
	fmt.Printf("valid=%d/%d state=%s\n", st.Valid, tb.Capacity(), tb.State())
	return nil
}
