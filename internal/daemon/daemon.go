package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"slidecast/internal/config"
	"slidecast/internal/deps"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/voices"
	"slidecast/internal/workflow"
)

// deckExtensions lists the document types accepted for conversion.
var deckExtensions = map[string]struct{}{
	".ppt":  {},
	".pptx": {},
	".odp":  {},
}

// Daemon coordinates background processing and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	locator  *deps.Locator
	catalog  *voices.Catalog

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	Workflow     workflow.StatusSummary
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "slidecastd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		locator:  deps.NewLocator(cfg.Tools),
		catalog:  voices.Default(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	server, err := newAPIServer(cfg, d, d.logger)
	if err != nil {
		return nil, err
	}
	d.api = server
	return d, nil
}

// Start acquires the daemon lock, launches the workflow manager, and begins
// serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another slidecast daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.workflow.Stop()
			_ = d.lock.Unlock()
			cancel()
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("slidecast daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("slidecast daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr reports the bound API listener address, empty until started.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status reports runtime diagnostics including dependency availability.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Workflow:     d.workflow.Status(ctx),
		Dependencies: deps.CheckBinaries(d.locator.Requirements()),
	}
}

// Submit validates and enqueues a new conversion job. An empty outputDir
// delivers to the configured output directory.
func (d *Daemon) Submit(ctx context.Context, sourcePath, voice string, ratePercent int, outputDir string) (*queue.Job, error) {
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return nil, errors.New("source path is required")
	}
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source document not readable: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source path %s is a directory", abs)
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if _, ok := deckExtensions[ext]; !ok {
		return nil, fmt.Errorf("unsupported document type %q", ext)
	}

	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = d.cfg.TTS.Voice
	}
	if !d.catalog.Contains(voice) {
		return nil, fmt.Errorf("unknown voice %q; run the voices command for the catalog", voice)
	}
	if ratePercent == 0 {
		ratePercent = d.cfg.TTS.RatePercent
	}
	if ratePercent < config.MinRatePercent || ratePercent > config.MaxRatePercent {
		return nil, fmt.Errorf("rate %d%% outside supported range %d-%d", ratePercent, config.MinRatePercent, config.MaxRatePercent)
	}

	outputDir = strings.TrimSpace(outputDir)
	if outputDir != "" {
		if outputDir, err = filepath.Abs(outputDir); err != nil {
			return nil, fmt.Errorf("resolve output dir: %w", err)
		}
		if info, statErr := os.Stat(outputDir); statErr == nil && !info.IsDir() {
			return nil, fmt.Errorf("output path %s is not a directory", outputDir)
		}
	}

	job, err := d.store.NewJob(ctx, abs, voice, ratePercent, outputDir)
	if err != nil {
		return nil, err
	}
	d.logger.Info("job submitted",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("source_path", abs),
		logging.String("voice", voice),
	)
	return job, nil
}

// ListQueue returns queue jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	return d.store.List(ctx, statuses...)
}

// ClearQueue removes queue jobs in bulk for the given scope.
func (d *Daemon) ClearQueue(ctx context.Context, scope string) (int64, error) {
	switch scope {
	case "", "all":
		return d.store.Clear(ctx)
	case "completed":
		return d.store.ClearCompleted(ctx)
	case "failed":
		return d.store.ClearFailed(ctx)
	default:
		return 0, fmt.Errorf("unknown clear scope %q", scope)
	}
}

// RetryFailed resets failed jobs (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// Remove deletes a single queue job.
func (d *Daemon) Remove(ctx context.Context, id int64) (bool, error) {
	return d.store.Remove(ctx, id)
}
