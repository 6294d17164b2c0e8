// Command unit-bench measures Observe throughput and latency against a
// configured sink set.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inwatch/obs"
	"github.com/inwatch/obs/config"
)

const (
	defaultUnits   = 100000
	defaultWorkers = 4
	defaultWrites  = 8

	percentileP50 = 0.50
	percentileP95 = 0.95
	percentileP99 = 0.99

	msPerSecond = 1e3
)

var errUnitsPositive = errors.New("unit-bench: units must be positive")

type result struct {
	Units         int           `json:"units"`
	Workers       int           `json:"workers"`
	WritesPerUnit int           `json:"writes_per_unit"`
	Failed        int64         `json:"failed"`
	Duration      time.Duration `json:"duration"`
	Throughput    float64       `json:"throughput_units_per_sec"`
	LatencyP50Ms  float64       `json:"latency_p50_ms"`
	LatencyP95Ms  float64       `json:"latency_p95_ms"`
	LatencyP99Ms  float64       `json:"latency_p99_ms"`
	LatencyMeanMs float64       `json:"latency_mean_ms"`
}

func main() {
	var (
		configPath string
		units      int
		workers    int
		writes     int
		scope      string
		jsonOut    bool
	)

	flag.StringVar(&configPath, "config", "", "Path to a YAML sink configuration (empty benches the bare pipeline)")
	flag.IntVar(&units, "units", defaultUnits, "Number of units to observe")
	flag.IntVar(&workers, "workers", defaultWorkers, "Concurrent workers")
	flag.IntVar(&writes, "writes", defaultWrites, "Mutation calls per unit")
	flag.StringVar(&scope, "scope", "bench", "Scope label for generated units")
	flag.BoolVar(&jsonOut, "json", false, "Print JSON result")
	flag.Parse()

	if err := run(configPath, units, workers, writes, scope, jsonOut); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, units, workers, writes int, scope string, jsonOut bool) error {
	if units <= 0 {
		return errUnitsPositive
	}
	if workers <= 0 {
		workers = 1
	}

	registry, closeAll, err := buildRegistry(configPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeAll(); closeErr != nil {
			fmt.Fprintln(os.Stderr, "unit-bench: close:", closeErr)
		}
	}()

	latencies := make([]time.Duration, units)
	var next atomic.Int64
	var failed atomic.Int64

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			for {
				i := int(next.Add(1)) - 1
				if i >= units {
					return
				}
				unitStart := time.Now()
				err := registry.Observe(ctx, obs.UnitConfig{Name: "bench.unit", Scope: scope}, func(ctx context.Context) error {
					for n := 0; n < writes; n++ {
						if err := obs.Set(ctx, fmt.Sprintf("key_%d", n), n); err != nil {
							return err
						}
					}

					return nil
				})
				latencies[i] = time.Since(unitStart)
				if err != nil {
					failed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	res := summarize(latencies, elapsed, units, workers, writes, failed.Load())

	return report(res, jsonOut)
}

func buildRegistry(configPath string) (*obs.Registry, func() error, error) {
	if configPath == "" {
		return obs.NewRegistry(), func() error { return nil }, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	return config.Build(cfg)
}

func summarize(latencies []time.Duration, elapsed time.Duration, units, workers, writes int, failed int64) result {
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, lat := range sorted {
		total += lat
	}

	return result{
		Units:         units,
		Workers:       workers,
		WritesPerUnit: writes,
		Failed:        failed,
		Duration:      elapsed,
		Throughput:    float64(units) / elapsed.Seconds(),
		LatencyP50Ms:  percentileMs(sorted, percentileP50),
		LatencyP95Ms:  percentileMs(sorted, percentileP95),
		LatencyP99Ms:  percentileMs(sorted, percentileP99),
		LatencyMeanMs: total.Seconds() * msPerSecond / float64(len(sorted)),
	}
}

func percentileMs(sorted []time.Duration, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))

	return sorted[idx].Seconds() * msPerSecond
}

func report(res result, jsonOut bool) error {
	if jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(res)
	}

	fmt.Printf("units=%d workers=%d writes=%d failed=%d\n", res.Units, res.Workers, res.WritesPerUnit, res.Failed)
	fmt.Printf("duration=%s throughput=%.0f units/s\n", res.Duration.Round(time.Millisecond), res.Throughput)
	fmt.Printf("latency p50=%.3fms p95=%.3fms p99=%.3fms mean=%.3fms\n",
		res.LatencyP50Ms, res.LatencyP95Ms, res.LatencyP99Ms, res.LatencyMeanMs)

	return nil
}
