// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/clock/system"
	"github.com/JakeFAU/law-leads-crawler/internal/config"
	"github.com/JakeFAU/law-leads-crawler/internal/extract"
	"github.com/JakeFAU/law-leads-crawler/internal/fetcher"
	collyfetcher "github.com/JakeFAU/law-leads-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/law-leads-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/law-leads-crawler/internal/headless/detector"
	"github.com/JakeFAU/law-leads-crawler/internal/lead"
	"github.com/JakeFAU/law-leads-crawler/internal/storage/memory"
	"github.com/JakeFAU/law-leads-crawler/internal/storage/postgres"
)

// FirmStore resolves firms for workers and looks them up for operators.
type FirmStore interface {
	lead.FirmResolver
	Lookup(ctx context.Context, websiteURL string) (int64, error)
}

// EmailStore records and lists extracted addresses.
type EmailStore interface {
	lead.EmailRecorder
	List(ctx context.Context, firmID int64) ([]lead.ExtractedEmail, error)
}

// App holds the shared services for one process: the configured stores, the
// logger, and anything that must be released on shutdown.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	pool   postgres.Pool
	leads  lead.LeadStore
	firms  FirmStore
	emails EmailStore

	mu      sync.Mutex
	closers []func()
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetLeads returns the staging-table store.
func (a *App) GetLeads() lead.LeadStore {
	return a.leads
}

// GetFirms returns the firm store.
func (a *App) GetFirms() FirmStore {
	return a.firms
}

// GetEmails returns the extracted email store.
func (a *App) GetEmails() EmailStore {
	return a.emails
}

// NewApp builds the stores selected by cfg.Store.Driver. It fails fast when the
// database can not be reached.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		logger.Info("connecting to postgres")
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:             cfg.Store.DSN,
			MaxConns:        cfg.Store.MaxConns,
			MinConns:        cfg.Store.MinConns,
			MaxConnLifetime: cfg.Store.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := a.usePostgres(pool); err != nil {
			pool.Close()
			return nil, err
		}
	case config.DriverMemory:
		logger.Info("using in-memory store; nothing is persisted")
		store := memory.NewStore(system.New())
		a.leads, a.firms, a.emails = store, store, store
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}

	return a, nil
}

// NewWithPool builds an App over an existing Postgres pool.
func NewWithPool(cfg config.Config, pool postgres.Pool, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	if err := a.usePostgres(pool); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) usePostgres(pool postgres.Pool) error {
	leads, err := postgres.NewLeadStore(pool)
	if err != nil {
		return fmt.Errorf("init lead store: %w", err)
	}
	firms, err := postgres.NewFirmStore(pool)
	if err != nil {
		return fmt.Errorf("init firm store: %w", err)
	}
	emails, err := postgres.NewEmailStore(pool)
	if err != nil {
		return fmt.Errorf("init email store: %w", err)
	}
	a.pool, a.leads, a.firms, a.emails = pool, leads, firms, emails
	a.onClose(pool.Close)
	return nil
}

// Migrate applies pending schema migrations. The memory driver has no schema.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	if a.pool == nil {
		a.logger.Info("memory store selected; no migrations to apply")
		return nil, nil
	}
	return postgres.Migrate(ctx, a.pool, a.logger)
}

// NewFetcher builds the page fetcher selected by fetch.mode, wrapped with
// metrics. Headless browsers are shut down by Close.
func (a *App) NewFetcher() (lead.Fetcher, error) {
	switch a.cfg.Fetch.Mode {
	case config.FetchHeadless:
		f, err := a.newHeadless()
		if err != nil {
			return nil, err
		}
		return fetcher.Instrument(config.FetchHeadless, f), nil
	case config.FetchHTTP:
		return fetcher.Instrument(config.FetchHTTP, a.newHTTP()), nil
	case config.FetchAuto:
		f, err := a.newHeadless()
		if err != nil {
			return nil, err
		}
		return fetcher.NewPromoting(
			fetcher.Instrument(config.FetchHTTP, a.newHTTP()),
			fetcher.Instrument(config.FetchHeadless, f),
			detector.NewHeuristic(a.cfg.Fetch.PromoteBelowBytes),
			a.logger,
		), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s", a.cfg.Fetch.Mode)
	}
}

func (a *App) newHeadless() (*headless.Fetcher, error) {
	fc := a.cfg.Fetch
	f, err := headless.NewChromedp(headless.Config{
		MaxParallel:       fc.MaxParallel,
		UserAgent:         fc.UserAgent,
		NavigationTimeout: fc.Timeout,
		SettleDelay:       fc.SettleDelay,
		Headers:           fc.Headers,
	})
	if err != nil {
		return nil, fmt.Errorf("init headless fetcher: %w", err)
	}
	a.onClose(f.Close)
	return f, nil
}

func (a *App) newHTTP() *collyfetcher.Fetcher {
	fc := a.cfg.Fetch
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:     fc.UserAgent,
		RespectRobots: fc.RespectRobots,
		Timeout:       fc.Timeout,
		Headers:       fc.Headers,
	})
}

// NewExtractor builds the site extractor over f, adding MX validation when
// extract.mx_check is set.
func (a *App) NewExtractor(f lead.Fetcher) (*extract.Extractor, error) {
	var opts []extract.Option
	if a.cfg.Extract.MXCheck {
		opts = append(opts, extract.WithMXValidator(extract.NewMXValidator(net.DefaultResolver, a.cfg.Extract.MXTimeout)))
	}
	e, err := extract.New(f, a.cfg.ExtractorConfig(), a.logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	return e, nil
}

func (a *App) onClose(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Close releases services in reverse order of creation and flushes the logger.
// It is called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	// Sync fails on stderr/stdout for some platforms; nothing useful to do about it.
	_ = a.logger.Sync()
}
