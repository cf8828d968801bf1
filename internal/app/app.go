// Package app wires configuration into repositories, stores and services.
// Both the API server and tempspecctl build their dependencies here.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"tempspec/internal/config"
	"tempspec/internal/database"
	"tempspec/internal/docgen"
	"tempspec/internal/lock"
	"tempspec/internal/repository"
	"tempspec/internal/service"
	"tempspec/internal/storage"
	"tempspec/internal/websocket"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImagesDir is where inline narrative images live below the static root.
const ImagesDir = "static/uploads/images"

// App holds the wired services and the resources that need closing.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Hub      *websocket.Hub
	Users    service.UserService
	Specs    service.SpecService
	History  service.HistoryService
	Images   service.ImageService
	Stats    service.StatisticsService
	Activity service.ActivityService

	redis   *redis.Client
	closers []func() error
}

// openDB is replaced in tests to observe the pool New opens
var openDB = database.NewConnection

// New connects to the database and builds every service. The hub is created
// but not started.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	db, err := openDB(cfg.Database.Driver, cfg.Database.ConnString(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, DB: db}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	generated, files, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	images, err := storage.NewLocalStore(filepath.Join(cfg.Server.StaticRoot, ImagesDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open image store: %w", err)
	}

	generator, err := a.newGenerator(cfg.Docgen, logger.Named("docgen"))
	if err != nil {
		return nil, err
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if rdb := database.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger); rdb != nil {
		a.redis = rdb
		a.closers = append(a.closers, rdb.Close)
		locker = lock.NewRedisLocker(rdb, "tempspec:lock:", cfg.Redis.LockTTL, logger.Named("lock"))
	}

	a.Hub = websocket.NewHub(logger)

	userRepo := repository.NewUserRepository(db)
	specRepo := repository.NewSpecRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	a.Users = service.NewUserService(userRepo, service.TokenConfig{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	}, logger)
	a.Specs = service.NewSpecService(service.SpecDeps{
		TxManager: repository.NewTransactionManager(db),
		Specs:     specRepo,
		Uploads:   repository.NewUploadRepository(db),
		History:   historyRepo,
		Generator: generator,
		Generated: generated,
		Files:     files,
		Images:    images,
		Locker:    locker,
		Notifier:  a.Hub,
		Logger:    logger,
	})
	a.History = service.NewHistoryService(specRepo, historyRepo)
	a.Images = service.NewImageService(images, logger)
	a.Stats = service.NewStatisticsService(repository.NewStatisticsRepository(db))
	a.Activity = service.NewActivityService(repository.NewActivityRepository(db))
	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config) (generated, files storage.Store, err error) {
	if cfg.Storage.Backend == config.StorageS3 {
		s3cfg := storage.S3Config{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
		}
		s3cfg.Prefix = cfg.Storage.S3.Prefix + "/generated"
		gen, err := storage.NewS3Store(ctx, s3cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open s3 store: %w", err)
		}
		s3cfg.Prefix = cfg.Storage.S3.Prefix + "/uploads"
		up, err := storage.NewS3Store(ctx, s3cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open s3 store: %w", err)
		}
		return gen, up, nil
	}

	gen, err := storage.NewLocalStore(cfg.Storage.GeneratedDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open generated store: %w", err)
	}
	up, err := storage.NewLocalStore(cfg.Storage.UploadsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open upload store: %w", err)
	}
	return gen, up, nil
}

func (a *App) newGenerator(cfg config.DocgenConfig, logger *zap.Logger) (*docgen.Generator, error) {
	tmpl, err := docgen.OpenTemplate(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}
	binder, err := docgen.NewBinder(tmpl)
	if err != nil {
		return nil, err
	}
	resolver := docgen.NewImageResolver(a.Config.Server.StaticRoot)
	extractor := docgen.NewExtractor(resolver, logger)

	var converter docgen.Converter
	switch cfg.Converter {
	case config.ConverterChrome:
		chrome := docgen.NewChromeConverter(cfg.ChromeBin, cfg.ConvertTimeout)
		a.closers = append(a.closers, chrome.Close)
		converter = chrome
	default:
		converter = docgen.NewOfficeConverter(cfg.OfficeBin, logger)
	}

	return docgen.NewGenerator(extractor, binder, converter, logger,
		docgen.WithTempRoot(cfg.TempDir),
		docgen.WithConvertTimeout(cfg.ConvertTimeout),
	), nil
}

// HealthCheck pings the database and, when configured, Redis.
func (a *App) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	sqlDB, err := a.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
	}
	return nil
}

// Close releases the browser, Redis and database connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
