package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dailymanna/manna/internal/config"
	"github.com/dailymanna/manna/internal/dispatch"
	"github.com/dailymanna/manna/internal/httpserver"
	"github.com/dailymanna/manna/internal/httpserver/deps"
	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/mailer"
	"github.com/dailymanna/manna/internal/redis"
	"github.com/dailymanna/manna/internal/scheduler"
	"github.com/dailymanna/manna/internal/sources"
	filestore "github.com/dailymanna/manna/internal/store/file"
	redisstore "github.com/dailymanna/manna/internal/store/redis"
	"github.com/dailymanna/manna/internal/version"

	// Content source registrations.
	_ "github.com/dailymanna/manna/internal/sources/ezoe"
	_ "github.com/dailymanna/manna/internal/sources/stmn1"
	_ "github.com/dailymanna/manna/internal/sources/wix"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	dispatcher  *dispatch.Dispatcher
	purger      *scheduler.TokenPurger
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Optional Redis lesson cache - the pipeline runs fine without it.
	var redisClient *goredis.Client
	var lessonCache sources.LessonCache
	if cfg.RedisEnabled() {
		client, err := redis.Connect(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		redisClient = client
		lessonCache = redisstore.NewLessonCache(client, cfg.LessonCacheTTL, loggerClient)
		loggerClient.Info("Redis lesson cache initialized")
	} else {
		loggerClient.Info("Redis not configured, lesson index cache disabled")
	}

	source, err := sources.New(cfg.ContentSource, sources.Options{
		Logger:      loggerClient,
		Client:      sources.NewHTTPClient(cfg.FetchTimeout),
		LessonCache: lessonCache,
	})
	if err != nil {
		loggerClient.Errorf("Failed to initialize content source: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("content source initialized",
		logger.String("source", source.SourceName()),
		logger.String("selector_type", source.SelectorType()))

	store := filestore.NewStore(cfg.ScheduleFile)

	var mail mailer.Mailer
	if cfg.SMTPEnabled() {
		smtp, err := mailer.NewSMTPMailer(mailer.SMTPOptions{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			TLSMode:  cfg.TLSMode,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Invalid SMTP configuration: %v", err)
			os.Exit(1)
		}
		mail = smtp
	} else {
		loggerClient.Warn("SMTP not configured, emails will be logged only")
		mail = mailer.NewLogMailer(loggerClient)
	}

	sender := scheduler.NewDailySender(store, source, mail, cfg.EmailFrom, cfg.EmailTo, loggerClient)
	refresher := scheduler.NewCoverageRefresher(
		store,
		source,
		mail,
		cfg.AdminSummaryFrom,
		cfg.AdminSummaryTo,
		cfg.AdminSubjectPrefix,
		cfg.SummaryArchive,
		loggerClient,
	)
	purger := scheduler.NewTokenPurger(store, loggerClient, cfg.PurgeInterval)

	dispatchCfg, err := dispatch.LoadConfig(cfg.DispatchRulesFile)
	if err != nil {
		loggerClient.Errorf("Failed to load dispatch rules: %v", err)
		os.Exit(1)
	}
	dispatcher := dispatch.NewDispatcher(dispatchCfg, cfg.DispatchStateFile, loggerClient)
	dispatcher.Register(dispatch.JobDailySend, sender.Run)
	dispatcher.Register(dispatch.JobWeeklySummary, refresher.Run)

	d := deps.Deps{
		Logger:     loggerClient,
		StartTime:  time.Now(),
		Version:    version.Version,
		Commit:     version.Commit,
		BuildDate:  version.BuildDate,
		GoVersion:  version.GoVersion,
		TimeNow:    time.Now,
		Store:      store,
		Source:     source,
		Sender:     sender,
		Refresher:  refresher,
		Dispatcher: dispatcher,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		dispatcher:  dispatcher,
		purger:      purger,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting manna v%s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Infof("manna %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	if err := a.purger.Start(ctx); err != nil {
		return fmt.Errorf("failed to start token purger: %w", err)
	}
	a.logger.Info("token purger started",
		logger.Duration("interval", a.cfg.PurgeInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.dispatcher.Stop()
	a.purger.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ manna stopped cleanly")
	return nil
}
