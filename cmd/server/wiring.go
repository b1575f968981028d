package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kitties/internal/admin"
	jwttoken "kitties/internal/jwt_token"
	"kitties/internal/kitties/genome"
	kittyhandler "kitties/internal/kitties/handler"
	kittymetrics "kitties/internal/kitties/metrics"
	"kitties/internal/kitties/models"
	"kitties/internal/kitties/ports"
	kittyservice "kitties/internal/kitties/service"
	kittymemory "kitties/internal/kitties/store/memory"
	kittypostgres "kitties/internal/kitties/store/postgres"
	ledgerhandler "kitties/internal/ledger/handler"
	ledgermetrics "kitties/internal/ledger/metrics"
	ledgerservice "kitties/internal/ledger/service"
	ledgermemory "kitties/internal/ledger/store/memory"
	ledgerpostgres "kitties/internal/ledger/store/postgres"
	ledgerredis "kitties/internal/ledger/store/redis"
	"kitties/internal/platform/config"
	"kitties/internal/platform/metrics"
	"kitties/internal/platform/postgres"
	redisclient "kitties/internal/platform/redis"
	ratelimitmetrics "kitties/internal/ratelimit/metrics"
	ratelimitmw "kitties/internal/ratelimit/middleware"
	ratelimitmodels "kitties/internal/ratelimit/models"
	ratelimitservice "kitties/internal/ratelimit/service"
	"kitties/internal/ratelimit/store/bucket"
	"kitties/pkg/platform/circuit"
	"kitties/pkg/platform/events"
	"kitties/pkg/platform/events/kafka"
	"kitties/pkg/platform/events/publisher"
	eventsmemory "kitties/pkg/platform/events/store/memory"
	"kitties/pkg/platform/httputil"
	adminmw "kitties/pkg/platform/middleware/admin"
	authmw "kitties/pkg/platform/middleware/auth"
	"kitties/pkg/platform/middleware/metadata"
	"kitties/pkg/platform/middleware/request"
	"kitties/pkg/platform/middleware/requesttime"
)

type app struct {
	router    http.Handler
	publisher *publisher.Publisher
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type infra struct {
	db    *sql.DB
	redis *redisclient.Client
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*app, error) {
	a := &app{}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	in, err := buildInfra(ctx, cfg, a)
	if err != nil {
		a.close()
		return nil, err
	}

	ledger, err := buildLedger(ctx, cfg, in, reg, log)
	if err != nil {
		a.close()
		return nil, err
	}

	sink, lister, err := buildSink(ctx, cfg, a, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.publisher = buildPublisher(cfg, sink, reg, log)

	registry := buildRegistry(cfg, in)
	svc, err := kittyservice.New(registry, ledger, genome.NewDeriver(genome.CryptoSeed{}),
		kittyservice.WithLogger(log),
		kittyservice.WithEventPublisher(a.publisher),
		kittyservice.WithMetrics(kittymetrics.New(reg)),
		kittyservice.WithMaxInventory(cfg.Registry.MaxInventory),
		kittyservice.WithReserveAmount(cfg.Registry.ReserveAmount),
		kittyservice.WithMaxKittyID(models.KittyID(cfg.Registry.MaxKittyID)),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	limiter, err := buildRateLimiter(cfg, in, reg, log)
	if err != nil {
		a.close()
		return nil, err
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	requireAuth := authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), log)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))
	r.Use(metrics.New(reg).Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := in.health(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	kittyhandler.New(svc, log, requireAuth, kittyhandler.WithThrottle(limiter.ForOperation)).Register(r)
	ledgerhandler.New(ledger, lister, log).Register(r)
	if cfg.AdminToken != "" {
		admin.New(ledger, log, adminmw.RequireAdminToken(cfg.AdminToken, log)).Register(r)
	}

	a.router = r
	return a, nil
}

func buildInfra(ctx context.Context, cfg config.Server, a *app) (*infra, error) {
	in := &infra{}
	if cfg.StorageBackend == config.BackendPostgres {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		in.db = db
		a.closers = append(a.closers, func() { _ = db.Close() })
	}
	if cfg.NeedsRedis() {
		client, err := redisclient.New(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		in.redis = client
		a.closers = append(a.closers, func() { _ = client.Close() })
	}
	return in, nil
}

func (in *infra) health(ctx context.Context) error {
	if in.db != nil {
		if err := in.db.PingContext(ctx); err != nil {
			return err
		}
	}
	if in.redis != nil {
		if err := in.redis.Health(ctx); err != nil {
			return err
		}
	}
	return nil
}

func buildRateLimiter(cfg config.Server, in *infra, reg prometheus.Registerer, log *slog.Logger) (*ratelimitmw.Middleware, error) {
	rl := cfg.RateLimit
	opts := []ratelimitservice.Option{
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithMetrics(ratelimitmetrics.New(reg)),
	}
	for class, budget := range map[ratelimitmodels.Class]int{
		ratelimitmodels.ClassMint:     rl.Mint,
		ratelimitmodels.ClassBreed:    rl.Breed,
		ratelimitmodels.ClassTransfer: rl.Transfer,
	} {
		if budget > 0 {
			opts = append(opts, ratelimitservice.WithLimit(class, ratelimitmodels.Limit{Requests: budget, Window: rl.Window}))
		}
	}

	var store ratelimitservice.BucketStore = bucket.New()
	if rl.Enabled && rl.Backend == config.BackendRedis {
		store = bucket.NewRedis(in.redis.Client)
		opts = append(opts, ratelimitservice.WithFallback(bucket.New(), circuit.New("ratelimit-redis")))
	}

	limiter, err := ratelimitservice.New(store, opts...)
	if err != nil {
		return nil, fmt.Errorf("build rate limiter: %w", err)
	}
	return ratelimitmw.New(limiter, log, ratelimitmw.WithDisabled(!rl.Enabled)), nil
}

func buildLedger(ctx context.Context, cfg config.Server, in *infra, reg prometheus.Registerer, log *slog.Logger) (*ledgerservice.Service, error) {
	var store ledgerservice.Store
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		store = ledgerpostgres.New(in.db)
	case config.BackendRedis:
		store = ledgerredis.New(in.redis.Client)
	default:
		store = ledgermemory.New()
	}

	ledger, err := ledgerservice.New(store,
		ledgerservice.WithLogger(log),
		ledgerservice.WithMetrics(ledgermetrics.New(reg)),
	)
	if err != nil {
		return nil, err
	}

	genesis := make([]ledgerservice.Genesis, 0, len(cfg.Genesis))
	for _, g := range cfg.Genesis {
		genesis = append(genesis, ledgerservice.Genesis{Account: g.Account, Amount: g.Amount})
	}
	if err := ledger.SeedGenesis(ctx, genesis); err != nil {
		return nil, fmt.Errorf("seed genesis balances: %w", err)
	}
	return ledger, nil
}

// buildSink returns the event sink and, for the in-memory sink, the store
// that answers account event queries.
func buildSink(ctx context.Context, cfg config.Server, a *app, log *slog.Logger) (events.Sink, ledgerhandler.EventLister, error) {
	if cfg.EventSink == config.BackendKafka {
		sink, err := kafka.NewSink(ctx, kafka.Config{
			Brokers:           cfg.Kafka.Brokers,
			Topic:             cfg.Kafka.Topic,
			Partitions:        cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka sink: %w", err)
		}
		a.closers = append(a.closers, sink.Close)
		return sink, nil, nil
	}
	store := eventsmemory.NewInMemoryStore()
	return store, store, nil
}

func buildPublisher(cfg config.Server, sink events.Sink, reg prometheus.Registerer, log *slog.Logger) *publisher.Publisher {
	opts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
	}
	if cfg.EventSink == config.BackendKafka {
		opts = append(opts,
			publisher.WithAsyncBuffer(4096),
			publisher.WithBreaker(circuit.New("kafka-events")),
		)
	}
	return publisher.New(sink, opts...)
}

func buildRegistry(cfg config.Server, in *infra) ports.Registry {
	maxID := models.KittyID(cfg.Registry.MaxKittyID)
	if cfg.StorageBackend == config.BackendPostgres {
		return kittypostgres.New(in.db, cfg.Registry.MaxInventory,
			kittypostgres.WithMaxKittyID(maxID),
			kittypostgres.WithTxTimeout(cfg.Registry.TxTimeout),
		)
	}
	return kittymemory.New(cfg.Registry.MaxInventory,
		kittymemory.WithMaxKittyID(maxID),
		kittymemory.WithTxTimeout(cfg.Registry.TxTimeout),
	)
}
