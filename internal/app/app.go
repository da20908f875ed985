package app

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"pv-go/internal/config"
	"pv-go/internal/database"
	"pv-go/internal/encryption"
	"pv-go/internal/export"
	"pv-go/internal/fs"
	"pv-go/internal/pv"
	"pv-go/internal/store"
)

// PVApp is the application layer between the CLI and PVService.
// It builds every dependency from config and exposes operations that take
// raw CLI strings.
type PVApp struct {
	cfg        *config.Config
	configPath string
	store      pv.LocalStore
	history    pv.History
	encryptor  pv.Encryptor
	remote     *remoteMirror // nil when no remote is configured
	service    *pv.PVService
	op         *Operation
	logger     *slog.Logger
	logFile    *os.File
}

// Option configures NewPVApp.
type Option func(*appOptions)

type appOptions struct {
	passphrase PassphraseFunc
	clock      pv.Clock
	idgen      pv.IDGenerator
}

// WithPassphraseFunc replaces the terminal passphrase prompt.
func WithPassphraseFunc(f PassphraseFunc) Option {
	return func(o *appOptions) { o.passphrase = f }
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(c pv.Clock) Option {
	return func(o *appOptions) { o.clock = c }
}

// WithIDGenerator replaces the UUID generator used for new prompts.
func WithIDGenerator(g pv.IDGenerator) Option {
	return func(o *appOptions) { o.idgen = g }
}

// NewPVApp creates a fully wired PVApp from the given config.
// configPath is where cfg was read from; it is rewritten when a push creates
// a new gist. operation identifies the CLI command being run (e.g. "AddPrompt", "Sync").
// The caller must call Close when done.
func NewPVApp(cfg *config.Config, configPath, operation string, opts ...Option) (*PVApp, error) {
	o := appOptions{
		passphrase: ReadPassphrase,
		clock:      pv.RealClock{},
		idgen:      pv.UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	syncMode, err := pv.ParseSyncMode(cfg.Sync.DefaultMode)
	if err != nil {
		return nil, fmt.Errorf("sync.default_mode: %w", err)
	}

	st, err := store.NewStoreFromConfig(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	history, err := database.NewHistoryFromConfig(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("creating history: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, level)
	if err != nil {
		history.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger = logger.With("cmd", operation)
	svcLogger := &slogAdapter{l: logger}

	a := &PVApp{
		cfg:        cfg,
		configPath: configPath,
		store:      st,
		history:    history,
		encryptor:  enc,
		op:         NewOperation(opID, operation),
		logger:     logger,
		logFile:    logFile,
	}

	// A nil *remoteMirror must not reach the service as a non-nil pv.Mirror.
	var m pv.Mirror
	if cfg.Remote.Type != "" {
		a.remote = &remoteMirror{
			cfg:           cfg.Remote,
			encryptor:     enc,
			passphrase:    o.passphrase,
			clock:         o.clock,
			logger:        svcLogger,
			onGistCreated: a.saveGistID,
		}
		m = a.remote
	}

	a.service = pv.NewPVService(st, m, history, svcLogger, o.clock, o.idgen, pv.SyncConfig{
		DefaultMode:        syncMode,
		TombstoneRetention: cfg.Sync.TombstoneRetention(),
	})
	return a, nil
}

// Config returns the configuration the app was built from.
func (a *PVApp) Config() *config.Config { return a.cfg }

// HasRemote reports whether a remote mirror is configured.
func (a *PVApp) HasRemote() bool { return a.service.HasMirror() }

// Operation returns the operation being run.
func (a *PVApp) Operation() *Operation { return a.op }

// track records the outcome of a command step on the operation.
func (a *PVApp) track(err error, mutated bool) {
	if err != nil {
		a.op.Fail()
		return
	}
	if mutated {
		a.op.MarkMutated()
	}
}

// AddPrompt stores a new prompt.
func (a *PVApp) AddPrompt(p pv.Prompt) (pv.Prompt, error) {
	added, err := a.service.AddPrompt(p)
	a.track(err, true)
	return added, err
}

// EditPrompt applies mutate to the prompt named by identifier (id or exact title).
func (a *PVApp) EditPrompt(identifier string, mutate func(*pv.Prompt)) (pv.Prompt, error) {
	p, err := a.ShowPrompt(identifier)
	if err != nil {
		a.track(err, false)
		return pv.Prompt{}, err
	}
	edited, err := a.service.EditPrompt(p.ID, mutate)
	a.track(err, true)
	return edited, err
}

// RemovePrompt deletes the prompt named by identifier (id or exact title).
func (a *PVApp) RemovePrompt(identifier string) (pv.Prompt, error) {
	p, err := a.ShowPrompt(identifier)
	if err != nil {
		a.track(err, false)
		return pv.Prompt{}, err
	}
	removed, err := a.service.RemovePrompt(p.ID)
	a.track(err, true)
	return removed, err
}

// ShowPrompt looks a prompt up by id, then by exact title.
func (a *PVApp) ShowPrompt(identifier string) (pv.Prompt, error) {
	snap, err := a.service.Library()
	if err != nil {
		return pv.Prompt{}, err
	}
	return pv.Find(snap, identifier)
}

// ListPrompts returns the prompts matching tag and category, sorted by sortBy.
// An empty sortBy uses query.sort_by from the config.
func (a *PVApp) ListPrompts(tag, category, sortBy string) ([]pv.Prompt, error) {
	return a.query(pv.Filter{Tag: tag, Category: category}, sortBy)
}

// Search returns the prompts whose title, description or content contains text.
func (a *PVApp) Search(text string) ([]pv.Prompt, error) {
	return a.query(pv.Filter{Text: text, CaseSensitive: a.cfg.Query.CaseSensitive}, "")
}

func (a *PVApp) query(f pv.Filter, sortBy string) ([]pv.Prompt, error) {
	if sortBy == "" {
		sortBy = a.cfg.Query.SortBy
	}
	by, err := pv.ParseSortBy(sortBy)
	if err != nil {
		return nil, err
	}
	snap, err := a.service.Library()
	if err != nil {
		return nil, err
	}
	prompts := pv.Query(snap, f)
	pv.SortPrompts(prompts, by)
	return prompts, nil
}

// Tags returns every tag in the library.
func (a *PVApp) Tags() ([]string, error) {
	snap, err := a.service.Library()
	if err != nil {
		return nil, err
	}
	return pv.AllTags(snap), nil
}

// Categories returns every category in the library.
func (a *PVApp) Categories() ([]string, error) {
	snap, err := a.service.Library()
	if err != nil {
		return nil, err
	}
	return pv.Categories(snap), nil
}

// Stats summarizes the library.
func (a *PVApp) Stats() (pv.Stats, error) {
	snap, err := a.service.Library()
	if err != nil {
		return pv.Stats{}, err
	}
	return pv.ComputeStats(snap), nil
}

// DefaultSyncRequest returns a request for sync.default_mode.
func (a *PVApp) DefaultSyncRequest(force bool) pv.SyncRequest {
	return a.service.DefaultRequest(force)
}

// syncTimeout bounds one cycle. A cycle makes up to three remote round
// trips: the fetch, and a replace that may re-read before writing.
func (a *PVApp) syncTimeout() time.Duration {
	return 3 * a.cfg.Remote.Timeout()
}

// Sync runs one sync cycle against the configured remote.
func (a *PVApp) Sync(ctx context.Context, req pv.SyncRequest) (*pv.SyncReport, error) {
	ctx, cancel := context.WithTimeout(ctx, a.syncTimeout())
	defer cancel()

	report, err := a.service.Sync(ctx, req)
	a.track(err, false)
	return report, err
}

// PlanSync computes what a sync in mode would do without writing anything.
func (a *PVApp) PlanSync(ctx context.Context, mode pv.SyncMode) (*pv.SyncPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Remote.Timeout())
	defer cancel()
	return a.service.PlanOnly(ctx, mode)
}

// GetHistory returns the most recent sync cycles.
func (a *PVApp) GetHistory(limit int) ([]*pv.SyncRecord, error) {
	return a.service.GetHistory(limit)
}

// ExportFile writes the library to path. An empty format is taken from the
// file extension. Returns the number of prompts written.
func (a *PVApp) ExportFile(path, format string) (int, error) {
	f, err := resolveFormat(path, format)
	if err != nil {
		return 0, err
	}
	snap, err := a.service.Library()
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := export.Export(&buf, snap, f); err != nil {
		return 0, err
	}
	if err := fs.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	a.logger.Info("library exported", "path", path, "format", f, "prompts", snap.Len())
	return snap.Len(), nil
}

// ImportFile merges the library in path into the local one. Newer local
// edits are kept. Equal-timestamp conflicts fail unless force is set, in
// which case the file wins. Returns the number of prompts taken from the file.
func (a *PVApp) ImportFile(path, format string, force bool) (int, error) {
	f, err := resolveFormat(path, format)
	if err != nil {
		return 0, err
	}
	if !f.Importable() {
		return 0, fmt.Errorf("%s files cannot be imported, use toml, json or yaml", f)
	}

	data, ok, err := fs.ReadFileIfExists(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	if !ok {
		return 0, fmt.Errorf("import file not found: %s", path)
	}

	src, err := export.Import(bytes.NewReader(data), f)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	n, err := a.service.Import(src, force)
	a.track(err, n > 0)
	return n, err
}

func resolveFormat(path, format string) (export.Format, error) {
	if format == "" {
		return export.FormatFromPath(path)
	}
	return export.ParseFormat(format)
}

// InitKeys generates the key pair for remote encryption. Returns the public
// key when the encryptor exposes one.
func (a *PVApp) InitKeys(passphrase string) (string, error) {
	if a.encryptor == nil {
		return "", fmt.Errorf("encryption is disabled, set encryption.type = \"age\" in the config first")
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return "", fmt.Errorf("generating keys: %w", err)
	}
	a.logger.Info("encryption keys created", "type", a.cfg.Encryption.Type)

	if pk, ok := a.encryptor.(interface{ PublicKey() (string, error) }); ok {
		return pk.PublicKey()
	}
	return "", nil
}

// saveGistID writes the id of a gist created by a push back to the config
// file, so the next run updates the same gist.
func (a *PVApp) saveGistID(id string) {
	a.cfg.Remote.GistID = id
	a.logger.Info("gist created", "gist_id", id)
	if a.configPath == "" {
		return
	}
	if err := config.Save(a.configPath, a.cfg); err != nil {
		a.logger.Warn("saving gist id to config failed, set remote.gist_id by hand",
			"gist_id", id, "error", err)
	}
}

// autoSync runs a default-mode sync after a command edited the library.
// Sync commands never mark the operation mutated. Failures are logged, never
// returned.
func (a *PVApp) autoSync() {
	if !a.cfg.Sync.AutoSync || !a.op.Mutated() || !a.HasRemote() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.syncTimeout())
	defer cancel()

	report, err := a.service.Sync(ctx, a.service.DefaultRequest(false))
	if err != nil {
		a.logger.Warn("auto-sync failed, run 'pv sync' to retry", "error", err)
		return
	}
	a.logger.Info("auto-sync complete", "uploaded", report.Uploaded, "downloaded", report.Downloaded)
}

// Close runs the auto-sync when due and closes all resources.
func (a *PVApp) Close() error {
	if a.op.Status == "success" {
		a.autoSync()
	}

	var firstErr error
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			firstErr = fmt.Errorf("closing remote: %w", err)
		}
	}

	if err := a.history.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing history: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
