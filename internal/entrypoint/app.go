package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/cache"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/importers"
	"github.com/mrlokans/librarian/internal/services"
)

// App holds the components shared by the server and the CLI commands.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Provider *database.Provider
	Users    *users.Repository
	Books    *books.Repository
	Auth     *auth.Service
	Importer *services.ImportService
	Cache    *cache.Cache

	redis *redis.Client
}

// DatabaseConfig translates the application settings into provider settings.
func DatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		URL: cfg.Database.URL,
		Pool: database.PoolConfig{
			MaxSize: cfg.Database.MaxPoolSize,
			MinSize: cfg.Database.MinPoolSize,
			Recycle: cfg.Database.PoolRecycle,
			PrePing: cfg.Database.PoolPrePing,
			Timeout: cfg.Database.PoolTimeout,
		},
		Environment:   cfg.App.Environment,
		DropOnStartup: cfg.Database.DropOnStartup,
	}
}

// Build opens the database and wires repositories and services. The cache
// is optional: an unreachable Redis is logged and lookups go to the store.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	provider, err := database.NewProvider(ctx, DatabaseConfig(cfg), log, entities.All()...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		Config:   cfg,
		Log:      log,
		Provider: provider,
		Users:    users.NewRepository(provider.Store()),
		Books:    books.NewRepository(provider.Store()),
	}
	app.Auth = auth.NewService(app.Users, cfg.Auth)
	app.Importer = services.NewImportService(provider, app.Users, app.Books,
		importers.NewSpreadsheetReader(cfg.Ingest.SheetNames), log)

	if cfg.Cache.Enabled {
		client := cache.NewRedisClient(cfg.Cache)
		c := cache.New(client, cfg.Cache.KeyExpiry, log)
		if err := c.Ping(ctx); err != nil {
			log.Warn("cache disabled, redis unreachable", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
			_ = client.Close()
		} else {
			app.Cache = c
			app.redis = client
			log.Info("cache enabled", zap.String("addr", cfg.Cache.RedisAddr))
		}
	}

	return app, nil
}

// SessionManager creates the cookie session manager. Sessions share the
// application database when it is sqlite and live in memory otherwise.
func (a *App) SessionManager() (*auth.SessionManager, error) {
	if a.Provider.Engine() == database.EngineSQLite {
		return auth.NewSessionManager(a.Provider.SQLDB(), a.Config.Auth)
	}
	a.Log.Info("sign-in sessions kept in memory", zap.String("engine", string(a.Provider.Engine())))
	return auth.NewSessionManager(nil, a.Config.Auth)
}

// Close releases the cache client and the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.Provider.Close(ctx))
	return errors.Join(errs...)
}

// EnsureDirectories creates the upload and inbox directories.
func EnsureDirectories(cfg config.Ingest) error {
	for _, dir := range []string{cfg.UploadDir, cfg.InboxDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
