// Package app wires the configured store, fetcher, pipeline, and poller
// into one process, following the lifecycle shape of the teacher's
// Application (New/Initialize/Run/waitForShutdown/Shutdown/Start).
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/uharev-ux/dex-dump-screener/internal/config"
	"github.com/uharev-ux/dex-dump-screener/internal/fetcher"
	"github.com/uharev-ux/dex-dump-screener/internal/lock"
	"github.com/uharev-ux/dex-dump-screener/internal/poller"
	"github.com/uharev-ux/dex-dump-screener/internal/store"
	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

// Application is the "collect-new" long-running process: it owns the store,
// the fetcher, the poller, and the file lock guarding them.
type Application struct {
	cfg    config.AppConfig
	store  *store.Store
	fetch  *fetcher.Fetcher
	poller *poller.Poller
	flock  *lock.FileLock
}

func New() *Application {
	return &Application{}
}

// Initialize loads configuration, sets up logging, takes the
// single-process file lock, and opens the store — in that order, matching
// the teacher's Initialize(configPath) split.
func (a *Application) Initialize(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	return a.initFromConfig(cfg)
}

// InitializeWithOverrides is the path the CLI's collect-new subcommand
// takes: it skips the config file entirely and builds an AppConfig from
// flag-supplied overrides plus every other component's own defaults.
func (a *Application) InitializeWithOverrides(dbPath string, intervalSec float64, limitPerCycle int, noPrune bool, pruneMaxAgeHours float64) error {
	cfg, err := config.Load("")
	if err != nil {
		return errors.Wrap(err, "load config defaults")
	}
	cfg.Store.Path = dbPath
	cfg.Poller.IntervalSec = intervalSec
	cfg.Poller.LimitPerCycle = limitPerCycle
	cfg.Poller.NoPrune = noPrune
	cfg.Poller.PruneMaxAgeHours = pruneMaxAgeHours
	return a.initFromConfig(cfg)
}

func (a *Application) initFromConfig(cfg config.AppConfig) error {
	a.cfg = cfg

	logger.SetDefault(cfg.Log.Build())
	logger.Info("initializing collect-new service", logger.String("db_path", cfg.Store.Path))

	fl, ok, err := lock.TryAcquire(cfg.Store.Path)
	if err != nil {
		return errors.Wrap(err, "acquire process lock")
	}
	if !ok {
		return errors.Errorf("another collect-new process already holds the lock for %s", cfg.Store.Path)
	}
	a.flock = fl

	st, err := store.Open(cfg.Store)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	a.store = st
	a.fetch = fetcher.New(cfg.Fetcher)
	a.poller = poller.New(st, a.fetch, cfg.Poller)

	logger.Info("collect-new service initialized")
	return nil
}

// Run starts the poller's cycle loop and blocks until it stops, either
// because a full cycle completed after a first shutdown signal or because
// a second signal forced immediate cancellation.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		a.poller.Run(ctx)
		close(done)
	}()

	a.waitForShutdown(done, cancel)
	return a.Shutdown()
}

// waitForShutdown implements the two-stage cancellation contract of
// spec.md §4.7: the first SIGINT/SIGTERM sets a shutdown-after-cycle flag
// and lets the loop finish its current cycle on its own; a second signal
// cancels the context immediately instead of waiting for that cycle.
func (a *Application) waitForShutdown(done <-chan struct{}, cancel context.CancelFunc) {
	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	signals := 0
	for {
		select {
		case <-done:
			return
		case sig := <-quit:
			signals++
			a.poller.RequestShutdown()
			if signals == 1 {
				logger.Info("received shutdown signal, finishing current cycle", logger.String("signal", sig.String()))
				continue
			}
			logger.Info("received second shutdown signal, stopping immediately", logger.String("signal", sig.String()))
			cancel()
			return
		}
	}
}

// Shutdown releases the store connection and the process lock, aggregating
// both failures the way the teacher's polardbx.Stop does.
func (a *Application) Shutdown() error {
	logger.Info("shutting down collect-new service")
	var result *multierror.Error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "close store"))
		}
	}
	if a.flock != nil {
		if err := a.flock.Release(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "release process lock"))
		}
	}
	if result != nil {
		logger.Warn("collect-new service stopped with errors", logger.FieldErr(result))
		return result
	}
	logger.Info("collect-new service stopped")
	return nil
}

// Start is the convenience entry point CLI commands call.
func Start(configPath string) error {
	a := New()
	if err := a.Initialize(configPath); err != nil {
		return err
	}
	return a.Run()
}
