package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/config"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/redis"
	"github.com/MrSnakeDoc/smartmarks/internal/scheduler"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
	"github.com/MrSnakeDoc/smartmarks/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/smartmarks/internal/store/redis"
	"github.com/MrSnakeDoc/smartmarks/internal/store/sqlite"
	"github.com/MrSnakeDoc/smartmarks/internal/utils"
	"github.com/MrSnakeDoc/smartmarks/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	store       store.Store
	feed        feed.Feed
	importer    *scheduler.ImportReloader
}

// New wires the server from the environment. Configuration errors panic
// in config.Load; unreachable backends are returned as errors.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()

	var logOpts []logger.Option
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logger.WithFile(cfg.LogFile))
	}
	log := logger.New(cfg.LogLevel, cfg.PrettyLog, logOpts...)

	a := &App{cfg: cfg, logger: log}

	// Redis is optional unless it backs the store; connect early to fail fast.
	if cfg.RedisEnabled() {
		client, err := redis.New(ctx, redis.ConnectOptions{
			ClientName:     "smartmarks",
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redisClient = client
	}

	st, err := a.openStore(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	a.store = st

	// With Redis every replica shares one feed; otherwise events stay in process.
	var revoker auth.Revoker
	if a.redisClient != nil {
		a.feed = feed.NewRedisFeed(a.redisClient, log)
		revoker = auth.NewRedisRevoker(a.redisClient)
	} else {
		a.feed = feed.NewHub(cfg.FeedBuffer)
		revoker = auth.NewMemoryRevoker()
		log.Warn("redis not configured: change feed and sign-out list are local to this process")
	}

	sessions, err := auth.NewSessions([]byte(cfg.SessionSecret), cfg.SessionTTL, revoker)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("failed to set up sessions: %w", err)
	}

	var provider auth.Provider
	switch cfg.AuthProvider {
	case config.ProviderGoogle:
		provider = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.CallbackURL())
	default:
		log.Warn("dev sign-in enabled: anyone reaching the server signs in as the dev user",
			logger.String("email", cfg.DevUserEmail))
		provider = auth.NewDevProvider(cfg.CallbackURL(), cfg.DevUserEmail)
	}

	svc := bookmarks.NewService(a.store, a.feed, log)
	if cfg.ImportFile != "" {
		a.importer = scheduler.NewImportReloader(cfg.ImportFile,
			domain.User{ID: cfg.ImportUser}, svc, log, cfg.ImportInterval)
	}

	d := deps.Deps{
		Logger:         log,
		StartTime:      time.Now(),
		Build:          version.Get(),
		TimeNow:        time.Now,
		BaseURL:        cfg.BaseURL,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		CORSOrigins:    cfg.CORSOrigins,
		RateBurst:      cfg.RateBurst,
		RatePerMin:     cfg.RatePerMin,
		RequestTimeout: cfg.RequestTimeout,
		Auth:           auth.NewService(sessions, cfg.SecureCookies(), provider),
		Bookmarks:      svc,
		Feed:           a.feed,
		StoreKind:      cfg.Store,
		RedisClient:    a.redisClient,
	}

	a.server = httpserver.New(cfg.ListenPort, d)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.Store {
	case config.StoreRedis:
		a.logger.Info("using redis store", logger.String("addr", a.cfg.RedisAddr))
		return redisstore.NewStore(a.redisClient), nil
	case config.StoreSQLite:
		a.logger.Info("using sqlite store", logger.String("path", a.cfg.SQLitePath))
		s, err := sqlite.Open(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	default:
		a.logger.Warn("using memory store: bookmarks are lost on restart")
		return memory.New(), nil
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting smartmarks %s on %s", version.Get(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.importer != nil {
		if err := a.importer.Start(ctx); err != nil {
			// the server keeps running without the import
			a.logger.Error("bookmark import disabled", logger.Error(err))
		} else {
			a.logger.Info("bookmark import started",
				logger.String("file", a.cfg.ImportFile),
				logger.Duration("interval", a.cfg.ImportInterval))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	if a.importer != nil {
		a.importer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	a.closeAll()
	_ = a.logger.Sync()

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ smartmarks stopped cleanly")
	return nil
}

// closeAll releases the feed (ending live websocket streams), the store
// and the Redis client, in that order.
func (a *App) closeAll() {
	var closers []utils.NamedCloser
	if a.feed != nil {
		closers = append(closers, utils.NamedCloser{Name: "feed", Closer: a.feed})
	}
	if a.store != nil {
		closers = append(closers, utils.NamedCloser{Name: "store", Closer: a.store})
	}
	if a.redisClient != nil {
		closers = append(closers, utils.NamedCloser{Name: "redis", Closer: a.redisClient})
	}
	_ = utils.CloseAll(a.logger, closers...)
}
