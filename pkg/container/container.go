// Package container wires every component of the order-processing pipeline
// (C1-C12) into one process-lifecycle-managed graph, replacing ad-hoc
// global singletons with constructor injection (§9 "Global state").
package container

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/storage"

	"github.com/ordering-helper/backend/db"
	"github.com/ordering-helper/backend/lifecycle"
	"github.com/ordering-helper/backend/logger"
	"github.com/ordering-helper/backend/ocr"
	"github.com/ordering-helper/backend/orders"
	"github.com/ordering-helper/backend/pipeline"
	"github.com/ordering-helper/backend/pkg/cache"
	"github.com/ordering-helper/backend/pkg/config"
	"github.com/ordering-helper/backend/pkg/errors"
	"github.com/ordering-helper/backend/pkg/middleware"
	"github.com/ordering-helper/backend/push"
	"github.com/ordering-helper/backend/store"
	"github.com/ordering-helper/backend/summary"
	"github.com/ordering-helper/backend/tasks"
	"github.com/ordering-helper/backend/translate"
	"github.com/ordering-helper/backend/users"
	"github.com/ordering-helper/backend/voice"
)

// ServiceContainer holds every component instance and manages their
// lifecycle (init at startup, drain at teardown, §9).
type ServiceContainer struct {
	config *config.Config

	database  *db.DatabaseManager
	migration *db.MigrationManager

	stores       *store.Resolver
	users        *users.Repo
	translations *translate.Facade
	ingestor     *ocr.Ingestor
	writer       *orders.Writer
	summaries    *summary.Store
	synthesizer  *voice.Synthesizer
	pusher       *push.Pusher
	coordinator  *pipeline.Coordinator
	janitor      *lifecycle.Janitor
	responseCache *middleware.ResponseCachingMiddleware
	tasksVerifier *tasks.Verifier

	janitorStop chan struct{}

	isInitialized    bool
	mu               sync.RWMutex
	shutdownHandlers []func(ctx context.Context) error
}

// janitorSweepInterval is how often the standalone periodic sweep runs,
// independent of the inline sweep each Synthesize call already performs.
const janitorSweepInterval = 10 * time.Minute

// responseCacheTTL bounds how long a cached /stores or /menu/{store_id}
// response is served before the next poll re-renders it.
const responseCacheTTL = 30 * time.Second

// NewServiceContainer builds and initializes the full dependency graph in
// dependency order (§2).
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidation, "configuration cannot be nil", errors.SeverityFatal)
	}

	c := &ServiceContainer{
		config:           cfg,
		shutdownHandlers: make([]func(ctx context.Context) error, 0),
	}

	if err := c.initLogger(); err != nil {
		return nil, err
	}
	if err := c.initDatabase(); err != nil {
		return nil, err
	}
	if err := c.initMigration(); err != nil {
		return nil, err
	}

	conn := c.database.GetConnection()
	translationCache := cache.NewInMemoryCache()

	c.stores = store.New(conn)
	c.users = users.New(conn)
	c.translations = translate.New(cfg.Translation, translationCache, cfg.Cache.TranslationTTL)
	c.ingestor = ocr.New(conn, nil, cfg.Vision) // VisionClient wired by main once a concrete backend is chosen
	c.writer = orders.New(conn)
	c.summaries = summary.NewStore(conn)
	c.janitor = lifecycle.New(cfg.TTS.ScratchDir, cfg.TTS.MaxFileAge)
	c.responseCache = middleware.NewResponseCachingMiddleware(cache.NewResponseCache(cache.NewInMemoryCache()), responseCacheTTL)

	c.janitorStop = make(chan struct{})
	go c.janitor.Run(janitorSweepInterval, c.janitorStop)
	c.registerShutdownHandler(func(ctx context.Context) error {
		close(c.janitorStop)
		return nil
	})

	storageCli, err := c.initStorage()
	if err != nil {
		logger.Warn("object storage client unavailable, voice uploads will fail", map[string]interface{}{"error": err.Error()})
	}
	c.synthesizer = voice.New(cfg.TTS, cfg.Storage, storageCli)

	pusher, err := push.New(cfg.Line)
	if err != nil {
		logger.Warn("line pusher unavailable", map[string]interface{}{"error": err.Error()})
		pusher = &push.Pusher{}
	}
	c.pusher = pusher

	c.coordinator = pipeline.New(pipeline.Deps{
		Stores:       c.stores,
		Writer:       c.writer,
		Summaries:    c.summaries,
		Translations: c.translations,
		Synthesizer:  c.synthesizer,
		Pusher:       c.pusher,
		Users:        c.users,
	})

	if cfg.Tasks.InvokerServiceAccount != "" {
		verifier, verr := tasks.NewVerifier(context.Background(), cfg.Tasks)
		if verr != nil {
			logger.Warn("oidc verifier unavailable, /orders/process-task will reject all requests", map[string]interface{}{"error": verr.Error()})
		} else {
			c.tasksVerifier = verifier
		}
	}

	c.isInitialized = true
	logger.Info("service container initialized", map[string]interface{}{
		"engine": c.database.Engine(),
	})

	return c, nil
}

func (c *ServiceContainer) initLogger() error {
	if err := logger.Init(logLevelToInt(c.config.Logger.Level), c.config.Logger.LogDir); err != nil {
		return errors.InitializationError("logger", err)
	}
	c.registerShutdownHandler(func(ctx context.Context) error {
		logger.Close()
		return nil
	})
	return nil
}

func (c *ServiceContainer) initDatabase() error {
	dm := db.GetDatabaseManager()
	dbCfg := db.DatabaseConfig{
		Type:        c.config.Database.Engine,
		DSN:         c.config.Database.DSN,
		MaxOpen:     c.config.Database.MaxOpenConns,
		MaxIdle:     c.config.Database.MaxIdleConns,
		MaxLifetime: c.config.Database.ConnMaxLifetime,
	}
	if err := dm.Init(dbCfg); err != nil {
		return errors.InitializationError("database", err)
	}
	c.database = dm
	c.registerShutdownHandler(func(ctx context.Context) error {
		return dm.Close()
	})
	return nil
}

func (c *ServiceContainer) initMigration() error {
	mm := db.GetMigrationManager()
	migCfg := db.MigrationConfig{
		MigrationsPath: c.config.Database.MigrationPath,
		DatabaseType:   c.config.Database.Engine,
	}
	if err := mm.Init(migCfg); err != nil {
		return errors.InitializationError("migration", err)
	}
	if c.config.Database.AutoMigrate {
		if err := mm.CreateDefaultMigrations(); err != nil {
			logger.Warn("failed to apply default migrations", map[string]interface{}{"error": err.Error()})
		}
	}
	c.migration = mm
	return nil
}

func (c *ServiceContainer) initStorage() (*storage.Client, error) {
	if c.config.Storage.BucketName == "" {
		return nil, errors.New(errors.CodeValidation, "GCS_BUCKET_NAME not configured", errors.SeverityWarning)
	}
	return storage.NewClient(context.Background())
}

// Getter methods

func (c *ServiceContainer) Config() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *ServiceContainer) Database() *db.DatabaseManager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.database
}

func (c *ServiceContainer) Migration() *db.MigrationManager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.migration
}

func (c *ServiceContainer) Stores() *store.Resolver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stores
}

func (c *ServiceContainer) Users() *users.Repo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.users
}

func (c *ServiceContainer) Translations() *translate.Facade {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.translations
}

func (c *ServiceContainer) Ingestor() *ocr.Ingestor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ingestor
}

func (c *ServiceContainer) Writer() *orders.Writer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writer
}

func (c *ServiceContainer) Summaries() *summary.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.summaries
}

func (c *ServiceContainer) Synthesizer() *voice.Synthesizer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synthesizer
}

func (c *ServiceContainer) Pusher() *push.Pusher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pusher
}

func (c *ServiceContainer) Coordinator() *pipeline.Coordinator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.coordinator
}

func (c *ServiceContainer) Janitor() *lifecycle.Janitor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.janitor
}

// ResponseCache returns the read-mostly endpoint response cache middleware.
func (c *ServiceContainer) ResponseCache() *middleware.ResponseCachingMiddleware {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.responseCache
}

// Ready reports whether the container can serve traffic: initialized and
// the database connection is live.
func (c *ServiceContainer) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isInitialized && c.database != nil && c.database.IsConnected()
}

// TasksVerifier returns the OIDC verifier guarding /orders/process-task, or
// nil if no invoker service account is configured.
func (c *ServiceContainer) TasksVerifier() *tasks.Verifier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tasksVerifier
}

func (c *ServiceContainer) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isInitialized
}

// SetVisionClient wires a concrete vision backend into the already-built
// ingestor; called by main once a VisionClient implementation is chosen,
// since the container itself does not depend on any particular vendor SDK.
func (c *ServiceContainer) SetVisionClient(vc ocr.VisionClient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingestor = ocr.New(c.database.GetConnection(), vc, c.config.Vision)
	c.coordinator = pipeline.New(pipeline.Deps{
		Stores:       c.stores,
		Writer:       c.writer,
		Summaries:    c.summaries,
		Translations: c.translations,
		Synthesizer:  c.synthesizer,
		Pusher:       c.pusher,
		Users:        c.users,
	})
}

// Shutdown gracefully drains all services in LIFO order.
func (c *ServiceContainer) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	handlers := c.shutdownHandlers
	c.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		if err := handlers[i](ctx); err != nil {
			logger.Warn("error during shutdown", map[string]interface{}{"error": err.Error()})
		}
	}

	c.mu.Lock()
	c.isInitialized = false
	c.mu.Unlock()

	logger.Info("service container shutdown complete", nil)
	return nil
}

func (c *ServiceContainer) registerShutdownHandler(handler func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdownHandlers = append(c.shutdownHandlers, handler)
}

// Health reports readiness of every wired component.
func (c *ServiceContainer) Health() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"initialized": c.isInitialized,
		"database":    c.database != nil && c.database.IsConnected(),
		"services": map[string]bool{
			"stores":      c.stores != nil,
			"users":       c.users != nil,
			"translation": c.translations != nil,
			"ocr":         c.ingestor != nil,
			"orders":      c.writer != nil,
			"summaries":   c.summaries != nil,
			"voice":       c.synthesizer != nil,
			"push":        c.pusher != nil,
			"pipeline":    c.coordinator != nil,
			"lifecycle":   c.janitor != nil,
			"tasks_auth":  c.tasksVerifier != nil,
		},
	}
}

func logLevelToInt(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.DEBUG
	case "info":
		return logger.INFO
	case "warn":
		return logger.WARN
	case "error":
		return logger.ERROR
	case "fatal":
		return logger.FATAL
	default:
		return logger.INFO
	}
}
