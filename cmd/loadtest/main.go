// Command loadtest stress-drives a manager instance: direct writes,
// transaction cycles and bus emissions, reporting throughput and the
// final Prometheus counters.
//
// Configuration is taken from the environment:
//
//	WRITES=50000 TXS=10000 HANDLERS=4 LOG_LEVEL=info go run ./cmd/loadtest
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"

	promadapter "github.com/codewandler/statebus-go/adapters/prometheus"
	"github.com/codewandler/statebus-go/core/bus"
	"github.com/codewandler/statebus-go/core/manager"
	"github.com/codewandler/statebus-go/core/store"
)

type config struct {
	Writes   int        `env:"WRITES" envDefault:"50000"`
	Txs      int        `env:"TXS" envDefault:"10000"`
	Handlers int        `env:"HANDLERS" envDefault:"4"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"warn"`
}

type benchState struct {
	Writes  int            `json:"writes"`
	Commits int            `json:"commits"`
	Metrics map[string]int `json:"metrics"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad config:", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	reg := prometheus.NewRegistry()
	all := promadapter.NewAllMetrics(reg)

	m, err := manager.New(manager.Config[benchState]{
		Log:          log,
		Initial:      benchState{Metrics: map[string]int{}},
		StoreMetrics: all.Store,
		BusConfig:    bus.Config{Metrics: all.Bus, LeakWarnCeiling: 64},
	})
	if err != nil {
		log.Error("failed to create manager", slog.Any("error", err))
		os.Exit(1)
	}
	defer m.Cleanup()

	changed := 0
	for i := 0; i < cfg.Handlers; i++ {
		m.On(store.EventStateChanged, func(...any) { changed++ })
	}

	start := time.Now()
	for i := 0; i < cfg.Writes; i++ {
		if err := m.UpdateState(func(s benchState) (benchState, error) {
			s.Writes++
			return s, nil
		}); err != nil {
			log.Error("write failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
	writeDur := time.Since(start)

	start = time.Now()
	for i := 0; i < cfg.Txs; i++ {
		id, err := m.BeginTransaction("")
		if err != nil {
			log.Error("begin failed", slog.Any("error", err))
			os.Exit(1)
		}
		if err := m.UpdateTransaction(id, func(s benchState) (benchState, error) {
			s.Commits++
			return s, nil
		}); err != nil {
			log.Error("update failed", slog.Any("error", err))
			os.Exit(1)
		}
		if err := m.CommitTransaction(id); err != nil {
			log.Error("commit failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
	txDur := time.Since(start)

	final := m.GetState()
	fmt.Printf("writes:  %d in %s (%.0f/s)\n", cfg.Writes, writeDur, float64(cfg.Writes)/writeDur.Seconds())
	fmt.Printf("txs:     %d in %s (%.0f/s)\n", cfg.Txs, txDur, float64(cfg.Txs)/txDur.Seconds())
	fmt.Printf("state:   writes=%d commits=%d\n", final.Writes, final.Commits)
	fmt.Printf("handled: %d state:changed deliveries across %d handlers\n", changed, cfg.Handlers)

	families, err := reg.Gather()
	if err != nil {
		log.Error("gather failed", slog.Any("error", err))
		os.Exit(1)
	}
	for _, f := range families {
		fmt.Printf("metric:  %s (%d series)\n", f.GetName(), len(f.GetMetric()))
	}
}
