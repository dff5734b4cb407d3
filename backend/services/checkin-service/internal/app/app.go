package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "suctracker/backend/libs/db"
	libredis "suctracker/backend/libs/redis"
	"suctracker/backend/services/checkin-service/internal/auth"
	appconfig "suctracker/backend/services/checkin-service/internal/config"
	"suctracker/backend/services/checkin-service/internal/db"
	"suctracker/backend/services/checkin-service/internal/http"
	"suctracker/backend/services/checkin-service/internal/http/handlers"
	"suctracker/backend/services/checkin-service/internal/http/middleware"
	"suctracker/backend/services/checkin-service/internal/listing"
	"suctracker/backend/services/checkin-service/internal/metrics"
	redisstore "suctracker/backend/services/checkin-service/internal/redis"
	"suctracker/backend/services/checkin-service/internal/repository"
	"suctracker/backend/services/checkin-service/internal/service"
	"suctracker/backend/services/checkin-service/internal/validation"
)

// App wires dependencies for the checkin service.
type App struct {
	server    *httpserver.Server
	directory *service.DirectoryService
	db        *sql.DB
	redis     *redis.Client
	cfg       *appconfig.Config
	logger    *zap.Logger
}

// New builds application graph.
func New(ctx context.Context, cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(ctx, cfg.Database.DSN, libdb.PoolOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.EnsureSchema(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	parser, err := validation.NewTimeParser(cfg.Checkins.ReferenceTimezone)
	if err != nil {
		sqlDB.Close()
		redisClient.Close()
		return nil, err
	}

	clock := clockwork.NewRealClock()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	stationRepo := repository.NewStationRepository(sqlDB)
	checkinRepo := repository.NewCheckinRepository(sqlDB)
	stationCache := redisstore.NewStationCache(redisClient, cfg.Redis.CacheTTL)
	stations := service.NewCachedStations(stationRepo, stationCache, logger)

	statsSvc := service.NewStatsService(
		checkinRepo,
		stationRepo,
		redisstore.NewStatsCache(redisClient, cfg.Redis.CacheTTL),
		service.StatsOptions{
			MinCountryStations: cfg.Checkins.MinCountryStations,
			OverviewWindow:     cfg.Checkins.OverviewWindow,
		},
		clock,
		m,
		logger.Named("stats"),
	)
	writes := service.InvalidateOnWrite(checkinRepo, statsSvc.Invalidate)
	checkinSvc := service.NewCheckinService(
		writes,
		stations,
		parser,
		validation.Window{MaxAge: cfg.Checkins.MaxAge, FutureSkew: cfg.Checkins.FutureSkew},
		clock,
		m,
		logger.Named("checkins"),
	)
	importSvc := service.NewImportService(writes, stationRepo, parser, cfg.Import.Region, clock, m, logger.Named("import"))
	directorySvc := service.NewDirectoryService(
		stationRepo,
		listing.NewClient(cfg.Listing.Timeout, logger.Named("listing")),
		service.ListingSources{
			SuperchargerURL: cfg.Listing.SuperchargerURL,
			DestinationURL:  cfg.Listing.DestinationURL,
		},
		redisstore.NewRefreshLock(redisClient, cfg.Listing.LockTTL),
		stationCache,
		clock,
		m,
		logger.Named("directory"),
	)

	authenticator := auth.NewAuthenticator(
		cfg.Auth.AdminPasswordHash,
		auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clock),
	)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Checkins:     handlers.NewCheckinsHandlers(checkinSvc, logger),
		Stats:        handlers.NewStatsHandlers(statsSvc, logger),
		Stations:     handlers.NewStationsHandlers(directorySvc, logger),
		Car:          handlers.NewCarHandlers(checkinSvc, stations, clock, parser.Location(), logger),
		Admin:        handlers.NewAdminHandlers(authenticator, importSvc, directorySvc, logger.Named("admin")),
		Health:       handlers.NewHealthHandler(),
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		RequireAdmin: middleware.RequireAdmin(authenticator),
		Instruments:  m,
	})
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	return &App{
		server:    server,
		directory: directorySvc,
		db:        sqlDB,
		redis:     redisClient,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Run serves HTTP traffic and, when configured, refreshes the station
// directory periodically, until context cancellation.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if interval := a.cfg.Listing.RefreshInterval; interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.directory.RunPeriodic(ctx, interval)
		}()
	}

	err := a.server.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
