package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cachemetrics "askdata/internal/cache/metrics"
	cacheservice "askdata/internal/cache/service"
	cachestore "askdata/internal/cache/store"
	"askdata/internal/catalogue"
	"askdata/internal/catalogue/loader"
	credentialservice "askdata/internal/credential/service"
	credentialstore "askdata/internal/credential/store"
	"askdata/internal/credential/vault"
	"askdata/internal/events"
	"askdata/internal/interpreter"
	interpretermetrics "askdata/internal/interpreter/metrics"
	"askdata/internal/matcher"
	"askdata/internal/platform/config"
	"askdata/internal/platform/logger"
	platformmetrics "askdata/internal/platform/metrics"
	"askdata/internal/platform/postgres"
	platformredis "askdata/internal/platform/redis"
	quotametrics "askdata/internal/quota/metrics"
	quotaservice "askdata/internal/quota/service"
	quotastore "askdata/internal/quota/store"
	resolutionmetrics "askdata/internal/resolution/metrics"
	resolutionservice "askdata/internal/resolution/service"
	httptransport "askdata/internal/transport/http"
	"askdata/pkg/platform/circuit"
)

// app holds every wired component of one process.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	catalogue  *catalogue.Catalogue
	matcher    *matcher.Matcher
	cache      *cacheservice.Service
	quota      *quotaservice.Governor
	credential *credentialservice.Service
	resolution *resolutionservice.Service
	health     map[string]httptransport.HealthCheck
	closers    []func()
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}

// loadCatalogue parses the data directory and builds the catalogue.
func loadCatalogue(ctx context.Context, cfg config.Config, log *slog.Logger) (*catalogue.Catalogue, error) {
	start := time.Now()
	datasets, report, err := loader.New(cfg.Catalogue.Dir,
		loader.WithConcurrency(cfg.Catalogue.Concurrency),
		loader.WithLogger(log),
	).Load(ctx)
	if err != nil {
		return nil, err
	}
	cat, build := catalogue.NewBuilder(catalogue.WithBuildLogger(log)).Build(datasets)
	log.Info("catalogue loaded",
		"dir", cfg.Catalogue.Dir,
		"files", report.Files,
		"failed_files", len(report.FailedFiles),
		"datasets", build.Datasets,
		"indicators", cat.Len(),
		"derived", build.Derived,
		"not_enough_data", len(build.NotEnoughData),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if cat.Len() == 0 {
		return nil, errors.New("catalogue is empty")
	}
	return cat, nil
}

// newApp wires storage, services and the interpreter from cfg.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   log,
		registry: platformmetrics.NewRegistry(),
		matcher:  matcher.New(),
		health:   map[string]httptransport.HealthCheck{},
	}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	cat, err := loadCatalogue(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.catalogue = cat

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		a.closers = append(a.closers, func() { _ = rc.Close() })
		a.health["redis"] = rc.Health
	}
	pg, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if pg != nil {
		a.closers = append(a.closers, pg.Close)
		a.health["postgres"] = pg.Health
	}

	publisher, err := a.newPublisher(ctx)
	if err != nil {
		return nil, err
	}

	cacheStore, err := newCacheStore(ctx, cfg.Cache.Backend, rc, pg)
	if err != nil {
		return nil, err
	}
	a.cache, err = cacheservice.New(cacheStore,
		cacheservice.WithLogger(log),
		cacheservice.WithPublisher(publisher),
		cacheservice.WithMetrics(cachemetrics.New(a.registry)),
	)
	if err != nil {
		return nil, err
	}

	quotaStore, err := newQuotaStore(ctx, cfg.Quota.Backend, rc, pg)
	if err != nil {
		return nil, err
	}
	a.quota, err = quotaservice.New(quotaStore,
		quotaservice.WithLimits(quotaservice.Limits{Account: cfg.Quota.AccountLimit, Anonymous: cfg.Quota.AnonymousLimit}),
		quotaservice.WithLocation(cfg.Quota.Location()),
		quotaservice.WithLogger(log),
		quotaservice.WithPublisher(publisher),
		quotaservice.WithMetrics(quotametrics.New(a.registry)),
	)
	if err != nil {
		return nil, err
	}

	v, err := newVault(cfg.Credential.Secret, log)
	if err != nil {
		return nil, err
	}
	var credStore credentialservice.Store = credentialstore.NewInMemoryStore()
	if cfg.Credential.Backend == config.BackendRedis {
		credStore = credentialstore.NewRedisStore(rc.Client)
	}
	// Personal keys are verified against the provider even when the
	// server has no key of its own.
	client := interpreter.New(interpreter.Config{
		APIKey:            cfg.Interpreter.APIKey,
		Endpoint:          cfg.Interpreter.Endpoint,
		PrimaryModel:      cfg.Interpreter.PrimaryModel,
		SecondaryModel:    cfg.Interpreter.SecondaryModel,
		MaxAttempts:       cfg.Interpreter.MaxAttempts,
		AttemptTimeout:    cfg.Interpreter.AttemptTimeout,
		MaxConcurrent:     cfg.Interpreter.MaxConcurrent,
		RequestsPerSecond: cfg.Interpreter.RequestsPerSecond,
	},
		interpreter.WithLogger(log),
		interpreter.WithMetrics(interpretermetrics.New(a.registry)),
	)
	a.credential, err = credentialservice.New(credStore, v, client,
		credentialservice.WithLogger(log),
		credentialservice.WithPublisher(publisher),
		credentialservice.WithQuota(a.quota),
	)
	if err != nil {
		return nil, err
	}

	opts := []resolutionservice.Option{
		resolutionservice.WithMatcher(a.matcher),
		resolutionservice.WithCache(a.cache),
		resolutionservice.WithQuota(a.quota),
		resolutionservice.WithCredentials(a.credential),
		resolutionservice.WithPublisher(publisher),
		resolutionservice.WithMetrics(resolutionmetrics.New(a.registry)),
		resolutionservice.WithLogger(log),
	}
	if cfg.Interpreter.APIKey != "" {
		breaker := circuit.New("interpreter",
			circuit.WithFailureThreshold(cfg.Interpreter.BreakerFailures),
			circuit.WithCooldown(cfg.Interpreter.BreakerCooldown),
		)
		opts = append(opts, resolutionservice.WithInterpreter(client), resolutionservice.WithBreaker(breaker))
	} else {
		log.Warn("GEMINI_API_KEY not set; interpreter tier disabled")
	}

	a.resolution, err = resolutionservice.New(cat, opts...)
	if err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

func (a *app) newPublisher(ctx context.Context) (events.Publisher, error) {
	if len(a.cfg.Kafka.Brokers) == 0 {
		return events.NewLogPublisher(a.logger), nil
	}
	kp, err := events.NewKafkaPublisher(a.cfg.Kafka.Brokers,
		events.WithTopicPrefix(a.cfg.Kafka.TopicPrefix),
		events.WithKafkaLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, kp.Close)
	if err := kp.EnsureTopics(ctx, a.cfg.Kafka.Partitions, a.cfg.Kafka.Replication); err != nil {
		return nil, err
	}
	a.health["kafka"] = kp.Ping

	async := events.NewAsyncPublisher(kp,
		events.WithBufferSize(a.cfg.Kafka.BufferSize),
		events.WithAsyncLogger(a.logger),
		events.WithAsyncRegistry(a.registry),
	)
	a.closers = append(a.closers, async.Close)
	return async, nil
}

func newCacheStore(ctx context.Context, b config.Backend, rc *platformredis.Client, pg *postgres.Handles) (cacheservice.Store, error) {
	switch b {
	case config.BackendRedis:
		return cachestore.NewRedisStore(rc.Client), nil
	case config.BackendPostgres:
		s := cachestore.NewPostgresStore(pg.Pool)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return cachestore.NewInMemoryStore(), nil
	}
}

func newQuotaStore(ctx context.Context, b config.Backend, rc *platformredis.Client, pg *postgres.Handles) (quotaservice.Store, error) {
	switch b {
	case config.BackendRedis:
		return quotastore.NewRedisStore(rc.Client), nil
	case config.BackendPostgres:
		s := quotastore.NewPostgresStore(pg.DB)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return quotastore.NewInMemoryStore(), nil
	}
}

// newVault uses the configured secret, or a process-local one when unset.
// Credentials sealed with a process-local secret do not survive a restart.
func newVault(secret string, log *slog.Logger) (*vault.Vault, error) {
	if secret == "" {
		generated, err := vault.Generate()
		if err != nil {
			return nil, err
		}
		log.Warn("ASKDATA_CREDENTIAL_SECRET not set; using an ephemeral secret")
		secret = generated
	}
	return vault.New([]byte(secret))
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
