package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-chi/httplog"
	"github.com/google/uuid"
	"github.com/marcelsud/vendor-relay/config"
	"github.com/marcelsud/vendor-relay/directory"
	"github.com/marcelsud/vendor-relay/dispatch"
	"github.com/marcelsud/vendor-relay/dispatch/memory"
	"github.com/marcelsud/vendor-relay/dispatch/postgres"
	"github.com/marcelsud/vendor-relay/idempotency"
	"github.com/marcelsud/vendor-relay/idempotency/redis"
	"github.com/marcelsud/vendor-relay/whatsapp"
	"github.com/rs/zerolog"
)

/* Components holds the collaborators shared by the api, the watchdog and the cli.
 * Imports flow one way: binaries import app, app imports the business packages,
 * which import their storage.
 */
type Components struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Ledger    idempotency.Store   // guarded by the fail-open policy
	Redis     *redis.Store        // nil with the memory backend
	Memory    *idempotency.Memory // nil with the redis backend
	Directory dispatch.Directory
	Logs      dispatch.LogRepository

	closers []func(context.Context) error
}

// NewLogger builds the JSON logger shared by HTTP and background components
func NewLogger(service string, cfg *config.Config) zerolog.Logger {
	return httplog.NewLogger(service, httplog.Options{
		JSON:     true,
		LogLevel: cfg.LogLevel,
	})
}

// New connects the ledger and the dispatch stores described by cfg
func New(ctx context.Context, service string, cfg *config.Config) (*Components, error) {
	c := &Components{
		Config: cfg,
		Logger: NewLogger(service, cfg),
	}

	if err := c.openLedger(ctx); err != nil {
		return nil, err
	}
	if err := c.openDispatchStores(ctx); err != nil {
		c.Close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *Components) openLedger(ctx context.Context) error {
	var store idempotency.Store
	switch c.Config.IdempotencyBackend {
	case "memory":
		c.Logger.Warn().Msg("in-memory idempotency ledger: deduplication is per process")
		mem := idempotency.NewMemory()
		sweepCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
		mem.StartSweeper(sweepCtx, c.Config.GetIdempotencySweepInterval())
		c.closers = append(c.closers, func(context.Context) error {
			stop()
			return nil
		})
		c.Memory = mem
		store = mem
	default:
		rs, err := redis.NewStore(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB, c.Config.IdempotencyPrefix)
		if err != nil {
			return fmt.Errorf("opening redis ledger: %w", err)
		}
		c.Redis = rs
		c.closers = append(c.closers, rs.Close)
		store = rs
	}

	c.Ledger = idempotency.NewGuard(store, c.Config.IdempotencyFailOpen, c.Logger)
	return nil
}

// Vendors come from PostgreSQL when it is configured, otherwise from VENDORS_FILE
func (c *Components) openDispatchStores(ctx context.Context) error {
	if c.Config.UsePostgres() {
		if err := c.Config.ValidatePostgres(); err != nil {
			return fmt.Errorf("validating postgres config: %w", err)
		}
		repo, err := postgres.NewRepositoryWithPoolConfig(
			c.Config.PostgresConnectionString(),
			c.Config.GetPostgresMaxOpenConns(),
			c.Config.GetPostgresMaxIdleConns(),
			c.Config.GetPostgresConnMaxLifeMinutes(),
		)
		if err != nil {
			return fmt.Errorf("opening postgres: %w", err)
		}
		c.closers = append(c.closers, repo.Close)
		c.Directory = repo
		c.Logs = repo
		return nil
	}

	c.Logger.Warn().Msg("no POSTGRES_HOST: dispatch log kept in memory")
	c.Logs = memory.NewLogRepository()

	file, err := directory.Load(c.Config.VendorsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.Logger.Warn().Str("file", c.Config.VendorsFile).Msg("vendors file not found: no reminders will be sent")
			c.Directory = directory.Empty()
			return nil
		}
		return fmt.Errorf("loading vendors: %w", err)
	}
	c.Directory = file
	return nil
}

// Scheduler builds the dispatch scheduler. recorder may be nil.
func (c *Components) Scheduler(recorder dispatch.Recorder) *dispatch.Scheduler {
	sender := whatsapp.NewClient(
		c.Config.WhatsAppAPIURL,
		c.Config.WhatsAppPhoneNumberID,
		c.Config.WhatsAppAccessToken,
		c.Config.WhatsAppLanguage,
	)
	rules := dispatch.DefaultRules(c.Config.GetPreOpenLead(), c.Config.PreOpenTemplate, c.Config.OpenTemplate)

	s := dispatch.NewScheduler(c.Directory, c.Logs, c.Ledger, sender, rules, c.Logger)
	s.Tolerance = c.Config.GetDispatchTolerance()
	s.DefaultLocation = c.Config.GetDefaultLocation()
	if c.Config.DispatchParallelism > 0 {
		s.Parallelism = c.Config.DispatchParallelism
	}
	if recorder != nil {
		s.Recorder = recorder
	}
	return s
}

// Heartbeater reports liveness under role; nil without Redis
func (c *Components) Heartbeater(role string) dispatch.Heartbeater {
	if c.Redis == nil {
		return nil
	}
	return redis.Heartbeat{
		Store:      c.Redis,
		Role:       role,
		InstanceID: InstanceID(role),
	}
}

// InstanceID identifies this process in heartbeats
func InstanceID(role string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = role
	}
	return host + "-" + uuid.NewString()[:8]
}

// Close releases the stores in reverse order of opening
func (c *Components) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
