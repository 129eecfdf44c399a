package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/multierr"

	"muxlti/internal/cache"
	"muxlti/internal/config"
	"muxlti/internal/logger"
	"muxlti/internal/mux"
	"muxlti/internal/repository"
	"muxlti/internal/service"
	"muxlti/internal/service/s3"
	"muxlti/internal/subtitles"
	"muxlti/internal/tasks"
)

const cachePrefix = "lti_apps:"

// app - общие зависимости всех команд
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *sqlx.DB

	cache      cache.Cache
	muxClient  *mux.Client
	subtitles  *subtitles.Service
	registry   *tasks.Registry
	dispatcher service.Dispatcher

	assets  *service.AssetService
	videos  *service.VideoService
	uploads *service.UploadService
	sync    *service.SyncService

	closers []func() error
}

// loadConfig читает конфигурацию. Без fields проверяется вся конфигурация,
// иначе только перечисленные поля.
func loadConfig(fields ...string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(appConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(fields) == 0 {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateFields(fields...)
	}
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// connectWithRetry создает базу, если ее нет, и подключается к ней с повторами
func connectWithRetry(cfg *config.DatabaseConfig, log *logger.Logger, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	system := *cfg
	system.Name = "postgres"

	var db *sqlx.DB
	var err error
	for i := 0; i < maxAttempts; i++ {
		if err = ensureDatabase(&system, cfg.Name, log); err == nil {
			db, err = sqlx.Connect("postgres", cfg.GetDSN())
			if err == nil {
				return db, nil
			}
		}
		log.Warn("Failed to connect to database", "attempt", i+1, "max_attempts", maxAttempts, "error", err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

func ensureDatabase(system *config.DatabaseConfig, name string, log *logger.Logger) error {
	pgDB, err := sqlx.Connect("postgres", system.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer pgDB.Close()

	var exists bool
	if err := pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", name); err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return nil
	}

	log.Info("Database does not exist, creating", "database", name)
	if _, err := pgDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	return nil
}

func openDatabase(cfg *config.Config, log *logger.Logger) (*sqlx.DB, error) {
	db, err := connectWithRetry(&cfg.Database, log, 5, 5*time.Second)
	if err != nil {
		return nil, err
	}

	if err := repository.RunMigrations(cfg.Database.GetURL(), log); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func newCache(cfg *config.Config, log *logger.Logger) (cache.Cache, func() error, error) {
	if cfg.Redis.Addr == "" {
		log.Warn("Redis is not configured, using in-process cache")
		return cache.NewMemoryCache(), func() error { return nil }, nil
	}
	rc, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cachePrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	return rc, rc.Close, nil
}

// newSigner возвращает nil, если подписанное воспроизведение выключено и ключ не задан.
// Nil-подписчик отдает ссылки только для публичных ассетов.
func newSigner(cfg *config.MuxConfig) (*mux.Signer, error) {
	signer, err := mux.NewSigner(cfg.SigningKeyID, cfg.SigningPrivateKey, cfg.SignedURLExpiry())
	if errors.Is(err, mux.ErrSigningDisabled) && !cfg.EnableSignedPlayback {
		return nil, nil
	}
	return signer, err
}

func newMuxClient(cfg *config.MuxConfig) (*mux.Client, error) {
	return mux.NewClient(mux.Config{
		TokenID:     cfg.TokenID,
		TokenSecret: cfg.TokenSecret,
	})
}

// newApp собирает сервисы. Диспетчер задач задается командой.
func newApp(ctx context.Context, dispatcher func(a *app) (service.Dispatcher, error)) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, registry: tasks.NewRegistry()}

	if err := a.init(ctx, dispatcher); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, dispatcher func(a *app) (service.Dispatcher, error)) error {
	cfg, log := a.cfg, a.log

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	c, closeCache, err := newCache(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.cache = c
	a.closers = append(a.closers, closeCache)

	if a.muxClient, err = newMuxClient(&cfg.Mux); err != nil {
		return fmt.Errorf("failed to create mux client: %w", err)
	}
	signer, err := newSigner(&cfg.Mux)
	if err != nil {
		return fmt.Errorf("failed to load url signing key: %w", err)
	}

	s3Config, err := s3.NewConfig(optionalFile(s3ConfigPath))
	if err != nil {
		return fmt.Errorf("failed to load S3 config: %w", err)
	}
	s3Client, err := s3.NewClient(ctx, s3Config)
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	a.subtitles = subtitles.NewService(s3Client, log)

	permissions, err := service.NewPermissionService(cfg.Mux.AssetInstructorAccessLimitedTo)
	if err != nil {
		return err
	}
	log.Info("Asset access restriction", "restriction", permissions.Restriction())

	d, err := dispatcher(a)
	if err != nil {
		return err
	}
	a.dispatcher = d

	assetRepo := repository.NewAssetRepository(db)
	contextRepo := repository.NewLtiContextRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	loader := service.NewAssetPropertiesLoader(a.cache, a.muxClient, cfg.Redis.CacheTTL(), log)
	a.videos = service.NewVideoService(loader, signer, log)
	a.assets = service.NewAssetService(assetRepo, permissions, loader, a.muxClient, a.subtitles, d, service.AssetServiceConfig{
		CanInstructorsDeleteAssets: cfg.Mux.CanInstructorsDeleteAssets,
		DefaultLanguageCode:        cfg.Mux.LanguageCode,
	}, log)
	a.uploads = service.NewUploadService(a.muxClient, contextRepo, uploadRepo, service.UploadServiceConfig{
		Validity:       cfg.Mux.UploadURLValidity(),
		SignedPlayback: cfg.Mux.EnableSignedPlayback,
	}, log)
	a.sync = service.NewSyncService(a.muxClient, uploadRepo, a.subtitles, cfg.Mux.UploadURLValidity(), log)

	a.registry.Register(service.TaskDeleteAsset, tasks.HandlerFor(a.assets.HandleDeleteAsset))
	a.registry.Register(service.TaskRefreshUpload, tasks.HandlerFor(a.sync.HandleRefreshUpload))
	a.registry.Register(service.TaskRefreshAsset, tasks.HandlerFor(a.assets.HandleRefreshAsset))

	return nil
}

func (a *app) Close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i]())
	}
	a.closers = nil
	if a.log != nil {
		a.log.Sync()
	}
	return errs
}

func inlineDispatcher(a *app) (service.Dispatcher, error) {
	return tasks.NewInline(a.registry), nil
}

// optionalFile возвращает путь, только если файл существует: значения можно задать и переменными окружения
func optionalFile(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
