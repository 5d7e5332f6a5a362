package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnvironmentTest is the environment in which Close drops every table.
const EnvironmentTest = "test"

// PoolConfig sizes the process-wide connection pool.
type PoolConfig struct {
	MaxSize int           // upper bound on open connections, 0 for unlimited
	MinSize int           // connections opened at startup and kept idle
	Recycle time.Duration // maximum connection age, 0 to keep forever
	PrePing bool          // check liveness of every leased connection
	Timeout time.Duration // longest wait for a free connection, 0 to wait on the caller's context only
}

// Config is everything a Provider needs; nothing is read from globals.
type Config struct {
	URL           string
	Pool          PoolConfig
	Environment   string
	DropOnStartup bool
}

// Provider owns the connection pool and hands out sessions of one mode.
type Provider struct {
	db      *gorm.DB
	sqlDB   *sql.DB
	engine  Engine
	store   Store
	models  []any
	env     string
	prePing bool
	timeout time.Duration
	log     *zap.Logger
}

// NewProvider opens the pool described by cfg, prepares the schema for
// models and picks the session mode from the URL's driver token. It fails
// when the URL is malformed or the store cannot be reached.
func NewProvider(ctx context.Context, cfg Config, log *zap.Logger, models ...any) (*Provider, error) {
	if log == nil {
		log = zap.NewNop()
	}
	u, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(u.dialector(), &gorm.Config{
		Logger:                 newGormLogger(log),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, &OpError{Op: "connect", Kind: ErrConnectivity, Err: err}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, &OpError{Op: "connect", Kind: ErrConnectivity, Err: err}
	}

	pool := cfg.Pool
	if pool.MaxSize > 0 && pool.MinSize > pool.MaxSize {
		log.Warn("minimum pool size exceeds maximum, clamping",
			zap.Int("min", pool.MinSize), zap.Int("max", pool.MaxSize))
		pool.MinSize = pool.MaxSize
	}
	sqlDB.SetMaxOpenConns(pool.MaxSize)
	sqlDB.SetMaxIdleConns(pool.MinSize)
	sqlDB.SetConnMaxLifetime(pool.Recycle)

	p := &Provider{
		db:      db,
		sqlDB:   sqlDB,
		engine:  u.Engine,
		store:   NewStore(u.Mode),
		models:  models,
		env:     cfg.Environment,
		prePing: pool.PrePing,
		timeout: pool.Timeout,
		log:     log.Named("database"),
	}

	if err := p.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := p.warm(ctx, pool.MinSize); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := p.initSchema(ctx, cfg.DropOnStartup); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	p.log.Info("database ready",
		zap.String("engine", string(u.Engine)),
		zap.Stringer("mode", u.Mode),
		zap.Int("max_pool_size", pool.MaxSize),
		zap.Int("min_pool_size", pool.MinSize),
		zap.Bool("pre_ping", pool.PrePing),
		zap.Duration("pool_timeout", pool.Timeout),
	)
	return p, nil
}

// Mode reports the execution model of every session this provider yields.
func (p *Provider) Mode() Mode { return p.store.Mode() }

// Store returns the Store matching the provider's mode.
func (p *Provider) Store() Store { return p.store }

func (p *Provider) Engine() Engine { return p.engine }

// SQLDB exposes the pool for collaborators that keep their own tables on it,
// such as the HTTP session store.
func (p *Provider) SQLDB() *sql.DB { return p.sqlDB }

// Stats returns connection pool statistics.
func (p *Provider) Stats() sql.DBStats { return p.sqlDB.Stats() }

// Ping checks that the store is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	if err := p.sqlDB.PingContext(ctx); err != nil {
		return &OpError{Op: "ping", Kind: ErrConnectivity, Err: err}
	}
	return nil
}

// WithSession leases a connection, runs fn with a session bound to it and
// releases the session on every exit path: uncommitted work is rolled back
// and the connection goes back to the pool. The session must not be used
// after fn returns.
func (p *Provider) WithSession(ctx context.Context, fn func(Session) error) error {
	if p.store.Mode() == ModeNonBlocking {
		return p.withNonBlocking(ctx, fn)
	}
	return p.lease(ctx, func(u *unitOfWork) error {
		return fn(&blockingSession{uow: u})
	})
}

func (p *Provider) withNonBlocking(ctx context.Context, fn func(Session) error) error {
	s := newNonBlockingSession()
	ready := make(chan error, 1)

	go func() {
		defer close(s.done)
		err := p.lease(ctx, func(u *unitOfWork) error {
			ready <- nil
			s.serve(u)
			return nil
		})
		if err != nil {
			ready <- err
		}
	}()

	select {
	case err := <-ready:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		s.close(false)
		return &OpError{Op: "acquire", Kind: ErrConnectivity, Err: ctx.Err()}
	}

	// An abandoned caller does not wait for the owner goroutine to unwind.
	defer func() { s.close(ctx.Err() == nil) }()
	return fn(s)
}

// lease pins one pooled connection for the duration of fn.
func (p *Provider) lease(ctx context.Context, fn func(*unitOfWork) error) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}

	pinned := p.db.WithContext(ctx)
	pinned.Statement.ConnPool = conn
	u := newUnitOfWork(pinned)

	defer func() {
		if err := u.release(); err != nil {
			p.log.Warn("rollback on release failed", zap.Error(err))
		}
		if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			p.log.Warn("returning connection to pool failed", zap.Error(err))
		}
	}()
	return fn(u)
}

// acquire takes a connection from the pool. With pre-ping enabled a dead
// connection is discarded and a second one is tried once. The wait is bounded
// by the pool timeout even when ctx has no deadline.
func (p *Provider) acquire(ctx context.Context) (*sql.Conn, error) {
	waitCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		conn, err := p.sqlDB.Conn(waitCtx)
		if err != nil {
			return nil, p.acquireError(ctx, err)
		}
		if !p.prePing {
			return conn, nil
		}
		if err := conn.PingContext(waitCtx); err != nil {
			lastErr = err
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
			_ = conn.Close()
			if waitCtx.Err() != nil {
				break
			}
			continue
		}
		return conn, nil
	}
	return nil, p.acquireError(ctx, lastErr)
}

func (p *Provider) acquireError(ctx context.Context, err error) error {
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("pool exhausted, no connection within %s: %w", p.timeout, err)
	}
	return &OpError{Op: "acquire", Kind: ErrConnectivity, Err: err}
}

// warm opens n connections so the first requests do not pay for dialling.
func (p *Provider) warm(ctx context.Context, n int) error {
	conns := make([]*sql.Conn, 0, n)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()
	for i := 0; i < n; i++ {
		c, err := p.sqlDB.Conn(ctx)
		if err != nil {
			return &OpError{Op: "acquire", Kind: ErrConnectivity, Err: err}
		}
		conns = append(conns, c)
	}
	return nil
}

func (p *Provider) initSchema(ctx context.Context, drop bool) error {
	if len(p.models) == 0 {
		return nil
	}
	migrator := p.db.WithContext(ctx).Migrator()
	if drop {
		p.log.Warn("dropping all tables on startup")
		if err := migrator.DropTable(p.models...); err != nil {
			return opError("drop_tables", nil, nil, nil, err)
		}
	}
	if err := migrator.AutoMigrate(p.models...); err != nil {
		return opError("migrate", nil, nil, nil, err)
	}
	return nil
}

// Close disposes of the pool. In the test environment every declared table
// is dropped first.
func (p *Provider) Close(ctx context.Context) error {
	var errs []error
	if p.env == EnvironmentTest && len(p.models) > 0 {
		if err := p.db.WithContext(ctx).Migrator().DropTable(p.models...); err != nil {
			errs = append(errs, opError("drop_tables", nil, nil, nil, err))
		}
	}
	if err := p.sqlDB.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
