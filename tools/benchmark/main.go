package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-stamp-market/internal/adapter"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/dto"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/executor"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/types"
	"github.com/feral-file/ff-stamp-market/internal/composer"
	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/membership"
	"github.com/feral-file/ff-stamp-market/internal/store"
)

const (
	defaultStamps      = 2000
	defaultCollections = 20
	defaultConcurrency = 4
)

type Config struct {
	DSN          string // Postgres DSN; empty uses the in-memory store
	Stamps       int
	Collections  int
	Users        int
	Iterations   int // Iterations per scenario
	Concurrency  int // Number of concurrent workers
	PoolSize     int // Composer pool size
	PageLimit    int
	Seed         int64
	OutputFile   string // Output markdown file path (optional)
	Debug        bool
	QueryTimeout time.Duration
}

// scenario is one read path measured by the benchmark
type scenario struct {
	Name string
	Run  func(ctx context.Context, exec executor.Executor) error
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	st, err := openStore(cfg)
	if err != nil {
		fmt.Printf("Error opening store: %v\n", err)
		os.Exit(1)
	}

	clock := adapter.NewClock()
	index := membership.NewIndex(st, clock)
	comp := composer.New(st, index, cfg.PoolSize)
	defer comp.Close()
	exec := executor.NewExecutor(st, index, comp, clock, executor.Config{
		DefaultLimit: cfg.PageLimit,
		MaxLimit:     domain.MAX_LIMIT,
		TrendingSize: domain.DEFAULT_TRENDING_SIZE,
	})

	fmt.Printf("Seeding %d stamps across %d collections...\n", cfg.Stamps, cfg.Collections)
	seedStart := time.Now()
	fixture, err := seed(ctx, exec, cfg)
	if err != nil {
		fmt.Printf("Error seeding data: %v\n", err)
		os.Exit(1)
	}
	seedDuration := time.Since(seedStart)
	fmt.Printf("✓ Seeded in %s (%s)\n\n", formatDuration(seedDuration), formatRate(cfg.Stamps, seedDuration))

	report := &Report{
		Config:       cfg,
		SeedDuration: seedDuration,
	}
	for _, sc := range scenarios(fixture, cfg.PageLimit) {
		if ctx.Err() != nil {
			break
		}
		result := runScenario(ctx, exec, sc, cfg)
		report.Results = append(report.Results, result)
		fmt.Printf("\r✓ %-28s %d runs, p50 %s\n", sc.Name, result.Runs, formatDuration(result.P50))
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	if ctx.Err() != nil {
		fmt.Println("INTERRUPTED - PARTIAL RESULTS")
	} else {
		fmt.Println("BENCHMARK RESULTS")
	}
	fmt.Println(strings.Repeat("=", 80))
	printReport(report)

	if cfg.OutputFile != "" {
		if err := writeMarkdownReport(cfg.OutputFile, report); err != nil {
			fmt.Printf("\n⚠️  Warning: Failed to write markdown file: %v\n", err)
		} else {
			fmt.Printf("\n✓ Report written to: %s\n", cfg.OutputFile)
		}
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DSN, "dsn", "", "Postgres DSN (optional, default: in-memory store)")
	flag.IntVar(&cfg.Stamps, "stamps", defaultStamps, "Number of stamps to seed")
	flag.IntVar(&cfg.Collections, "collections", defaultCollections, "Number of collections to seed")
	flag.IntVar(&cfg.Users, "users", 50, "Number of users to seed")
	flag.IntVar(&cfg.Iterations, "iterations", 200, "Iterations per scenario")
	flag.IntVar(&cfg.Concurrency, "concurrency", defaultConcurrency, "Number of concurrent workers")
	flag.IntVar(&cfg.PoolSize, "pool-size", 8, "Composer worker pool size")
	flag.IntVar(&cfg.PageLimit, "limit", domain.DEFAULT_LIMIT, "Page size for listing scenarios")
	flag.Int64Var(&cfg.Seed, "seed", 1, "Random seed for the fixture")
	flag.StringVar(&cfg.OutputFile, "output", "", "Output markdown file path (optional)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Print every failed run")

	var queryTimeoutSeconds int
	flag.IntVar(&queryTimeoutSeconds, "query-timeout", 10, "Timeout for each query in seconds")

	configFile := flag.String("config", "", "Path to config file (optional)")

	flag.Parse()

	cfg.QueryTimeout = time.Duration(queryTimeoutSeconds) * time.Second

	if *configFile != "" {
		fileCfg, err := LoadConfig(*configFile)
		if err != nil {
			fmt.Printf("Warning: failed to load config file: %v\n", err)
		} else {
			// Override with file values if not set via flags
			if cfg.DSN == "" {
				cfg.DSN = fileCfg.DSN
			}
			if cfg.Stamps == defaultStamps && fileCfg.Stamps > 0 {
				cfg.Stamps = fileCfg.Stamps
			}
			if cfg.Collections == defaultCollections && fileCfg.Collections > 0 {
				cfg.Collections = fileCfg.Collections
			}
			if cfg.Concurrency == defaultConcurrency && fileCfg.Concurrency > 0 {
				cfg.Concurrency = fileCfg.Concurrency
			}
		}
	}

	normalizeConfig(cfg)
	return cfg
}

// normalizeConfig clamps flag values into usable ranges
func normalizeConfig(cfg *Config) {
	if cfg.Stamps <= 0 {
		cfg.Stamps = defaultStamps
	}
	if cfg.Users <= 0 {
		cfg.Users = 1
	}
	if cfg.Collections < 0 {
		cfg.Collections = 0
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = 1
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Concurrency > 32 {
		cfg.Concurrency = 32
	}
	if cfg.PageLimit <= 0 || cfg.PageLimit > domain.MAX_LIMIT {
		cfg.PageLimit = domain.DEFAULT_LIMIT
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 10 * time.Second
	}
}

func openStore(cfg *Config) (store.Store, error) {
	if cfg.DSN == "" {
		return store.NewMemoryStore(), nil
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		return nil, err
	}
	return store.NewPGStore(db), nil
}

// fixture holds the ids the scenarios query against
type fixture struct {
	UserIDs       []string
	StampIDs      []string
	CollectionIDs []string
}

var (
	issuers   = []string{"Royal Mail", "USPS", "La Poste", "Deutsche Post", "Japan Post"}
	functions = []string{"postage", "commemorative", "airmail", "revenue"}
	colors    = []string{"red", "blue", "green", "violet", "black"}
)

// seed populates the store through the executor so every write path runs its validation
func seed(ctx context.Context, exec executor.Executor, cfg *Config) (*fixture, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	fx := &fixture{}

	for i := range cfg.Users {
		user, err := exec.CreateUser(ctx, dto.CreateUserRequest{Username: fmt.Sprintf("collector-%04d", i)})
		if err != nil {
			return nil, fmt.Errorf("create user %d: %w", i, err)
		}
		fx.UserIDs = append(fx.UserIDs, user.ID)
	}

	for i := range cfg.Collections {
		coll, err := exec.CreateCollection(ctx, dto.CreateCollectionRequest{
			Name:    fmt.Sprintf("Album %03d", i),
			OwnerID: fx.UserIDs[rng.Intn(len(fx.UserIDs))],
			Status:  domain.CollectionStatusPublished,
		})
		if err != nil {
			return nil, fmt.Errorf("create collection %d: %w", i, err)
		}
		fx.CollectionIDs = append(fx.CollectionIDs, coll.ID)
	}

	for i := range cfg.Stamps {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		req := dto.CreateStampRequest{
			Title:     fmt.Sprintf("Stamp %05d", i),
			Issuer:    issuers[rng.Intn(len(issuers))],
			Function:  functions[rng.Intn(len(functions))],
			Color:     colors[rng.Intn(len(colors))],
			CreatorID: fx.UserIDs[rng.Intn(len(fx.UserIDs))],
		}
		if rng.Intn(3) > 0 {
			price := fmt.Sprintf("%d.%02d", rng.Intn(500), rng.Intn(100))
			req.Price = &price
		}
		stamp, err := exec.CreateStamp(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("create stamp %d: %w", i, err)
		}
		fx.StampIDs = append(fx.StampIDs, stamp.ID)

		// Roughly one stamp in three joins a collection
		if len(fx.CollectionIDs) > 0 && rng.Intn(3) == 0 {
			collectionID := fx.CollectionIDs[rng.Intn(len(fx.CollectionIDs))]
			if _, err := exec.AddToCollection(ctx, collectionID, stamp.ID); err != nil {
				return nil, fmt.Errorf("add stamp %d to collection: %w", i, err)
			}
		}

		for range rng.Intn(5) {
			if err := exec.IncrementCounter(ctx, domain.EntityKindStamp, stamp.ID, domain.MetricViewCount); err != nil {
				return nil, fmt.Errorf("record view of stamp %d: %w", i, err)
			}
		}
		if rng.Intn(4) == 0 {
			if err := exec.IncrementCounter(ctx, domain.EntityKindStamp, stamp.ID, domain.MetricFavouriteCount); err != nil {
				return nil, fmt.Errorf("record favourite of stamp %d: %w", i, err)
			}
		}
	}

	return fx, nil
}

func scenarios(fx *fixture, limit int) []scenario {
	listed := true
	minPrice := "100"
	out := []scenario{
		{"list newest", func(ctx context.Context, exec executor.Executor) error {
			_, err := exec.QueryStamps(ctx, types.StampQuery{Limit: limit})
			return err
		}},
		{"list deep page", func(ctx context.Context, exec executor.Executor) error {
			_, err := exec.QueryStamps(ctx, types.StampQuery{Page: 10, Limit: limit})
			return err
		}},
		{"sort by price", func(ctx context.Context, exec executor.Executor) error {
			_, err := exec.QueryStamps(ctx, types.StampQuery{SortBy: types.StampSortByPrice, Order: types.OrderAsc, Limit: limit})
			return err
		}},
		{"filter listed, min price", func(ctx context.Context, exec executor.Executor) error {
			_, err := exec.QueryStamps(ctx, types.StampQuery{IsListed: &listed, MinPrice: &minPrice, Limit: limit})
			return err
		}},
		{"filter title", func(ctx context.Context, exec executor.Executor) error {
			_, err := exec.QueryStamps(ctx, types.StampQuery{Title: "00", Color: "red", Limit: limit})
			return err
		}},
		{"trending by views", func(ctx context.Context, exec executor.Executor) error {
			_, err := exec.TrendingStamps(ctx, domain.MetricViewCount, 0)
			return err
		}},
		{"get stamp", func(ctx context.Context, exec executor.Executor) error {
			_, err := exec.GetStamp(ctx, fx.StampIDs[rand.Intn(len(fx.StampIDs))])
			return err
		}},
	}
	if len(fx.CollectionIDs) > 0 {
		out = append(out,
			scenario{"filter collection", func(ctx context.Context, exec executor.Executor) error {
				_, err := exec.QueryStamps(ctx, types.StampQuery{
					CollectionIDs: []string{fx.CollectionIDs[rand.Intn(len(fx.CollectionIDs))]},
					Limit:         limit,
				})
				return err
			}},
			scenario{"get collection", func(ctx context.Context, exec executor.Executor) error {
				_, err := exec.GetCollection(ctx, fx.CollectionIDs[rand.Intn(len(fx.CollectionIDs))])
				return err
			}},
		)
	}
	return out
}

// runScenario runs sc cfg.Iterations times spread over cfg.Concurrency workers
func runScenario(ctx context.Context, exec executor.Executor, sc scenario, cfg *Config) ScenarioResult {
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		latencies = make([]time.Duration, 0, cfg.Iterations)
		failures  int
	)

	// Worker pool pattern
	workChan := make(chan struct{}, cfg.Concurrency*2)
	start := time.Now()
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for range workChan {
				queryCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
				runStart := time.Now()
				err := sc.Run(queryCtx, exec)
				elapsed := time.Since(runStart)
				cancel()

				mu.Lock()
				latencies = append(latencies, elapsed)
				if err != nil {
					failures++
					if cfg.Debug {
						fmt.Printf("\n[DEBUG] Worker %d %s failed: %v\n", workerID, sc.Name, err)
					}
				}
				mu.Unlock()
			}
		}(i)
	}

feed:
	for range cfg.Iterations {
		select {
		case <-ctx.Done():
			break feed
		case workChan <- struct{}{}:
		}
	}
	close(workChan)
	wg.Wait()

	return summarize(sc.Name, latencies, failures, time.Since(start))
}
