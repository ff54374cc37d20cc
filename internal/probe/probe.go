// Package probe runs the environment smoke test: runtime identity, the gota
// dataframe import, and a short preview of each expected dataset.
package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"covidsql/domain/core"
	"covidsql/internal"
	"covidsql/internal/config"
	"covidsql/internal/errors"
	"covidsql/internal/frame"
	"covidsql/ports"
)

// PreviewRows is the most rows read from any one file.
const PreviewRows = 3

// Probe runs one smoke test and writes its report to out
type Probe struct {
	out      io.Writer
	data     config.DataConfig
	database config.DatabaseConfig

	runtime  Runtime
	registry *frame.Registry
	openDB   ports.DatabaseOpener
	logger   *internal.Logger
	runID    core.RunID
}

// Option customizes a Probe
type Option func(*Probe)

// WithRuntime replaces the reported runtime identity
func WithRuntime(rt Runtime) Option {
	return func(p *Probe) { p.runtime = rt }
}

// WithRegistry imports the frame library from r instead of frame.Default
func WithRegistry(r *frame.Registry) Option {
	return func(p *Probe) { p.registry = r }
}

// WithDatabaseOpener sets how the optional database check connects
func WithDatabaseOpener(open ports.DatabaseOpener) Option {
	return func(p *Probe) { p.openDB = open }
}

// WithLogger sets the diagnostics logger
func WithLogger(logger *internal.Logger) Option {
	return func(p *Probe) { p.logger = logger }
}

// New creates a probe for cfg
func New(cfg *config.Config, out io.Writer, opts ...Option) *Probe {
	p := &Probe{
		out:      out,
		data:     cfg.Data,
		database: cfg.Database,
		runtime:  CurrentRuntime(),
		registry: frame.Default,
		logger:   internal.Discard,
		runID:    core.NewRunID(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs every check in order. The only returned errors are a missing
// dataframe library or format (DEPENDENCY_MISSING) and a present file that
// cannot be read.
func (p *Probe) Run(ctx context.Context) error {
	p.logger.Debug("[%s] smoke test started (root=%q, files=%v)", p.runID.Short(), p.data.Root, p.data.Files)

	fmt.Fprintln(p.out, "Go executable:", p.runtime.Executable)
	fmt.Fprintln(p.out, "Go version:", p.runtime.Version)

	lib, err := p.importLibrary()
	if err != nil {
		fmt.Fprintf(p.out, "Failed to import %s: %v\n", frame.LibraryName, err)
		p.logger.Error("[%s] %v", p.runID.Short(), err)
		return err
	}
	fmt.Fprintf(p.out, "%s version: %s\n", frame.LibraryName, lib.Version())

	for _, name := range p.data.Files {
		if err := p.previewFile(lib, name); err != nil {
			return err
		}
	}

	if p.database.Enabled() && p.openDB != nil {
		p.checkDatabase(ctx)
	}

	fmt.Fprintln(p.out, "\nSmoke test completed successfully.")
	p.logger.Debug("[%s] smoke test finished", p.runID.Short())
	return nil
}

func (p *Probe) importLibrary() (*frame.Library, error) {
	lib, err := p.registry.Import(p.requiredFormats()...)
	if err != nil {
		return nil, err
	}
	for ext, version := range lib.FormatVersions() {
		p.logger.Debug("[%s] format %s backed by %s", p.runID.Short(), ext, version)
	}
	return lib, nil
}

// requiredFormats lists the distinct extensions of the expected files
func (p *Probe) requiredFormats() []string {
	seen := make(map[string]bool)
	var exts []string
	for _, name := range p.data.Files {
		ext := strings.ToLower(filepath.Ext(name))
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (p *Probe) previewFile(lib *frame.Library, name string) error {
	path := p.data.Path(name)
	if _, err := os.Stat(path); err != nil {
		p.logger.Debug("[%s] stat %s: %v", p.runID.Short(), path, err)
		fmt.Fprintf(p.out, "%s not found in the repository root.\n", name)
		return nil
	}

	fmt.Fprintf(p.out, "\nReading first %d rows of %s:\n", PreviewRows, name)
	f, err := lib.ReadFile(path, frame.ReadOptions{NRows: PreviewRows, Sheet: p.data.Sheet})
	if err != nil {
		return errors.Wrapf(err, "preview of %s failed", name)
	}
	p.logger.Trace("[%s] %s columns %v typed %v", p.runID.Short(), name, f.Columns(), f.Types())
	fmt.Fprintln(p.out, f.Head(PreviewRows).String())
	return nil
}

func (p *Probe) checkDatabase(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.database.Timeout)
	defer cancel()

	db, err := p.openDB(ctx, p.database.URL)
	if err != nil {
		p.reportDatabaseFailure(err)
		return
	}
	defer db.Close()

	version, err := db.ServerVersion(ctx)
	if err != nil {
		p.reportDatabaseFailure(err)
		return
	}
	fmt.Fprintln(p.out, "\nDatabase server:", version)

	tables, err := db.ListTables(ctx)
	if err != nil {
		p.reportDatabaseFailure(err)
		return
	}
	present := make(map[string]bool, len(tables))
	for _, table := range tables {
		present[strings.ToLower(table)] = true
	}

	for _, name := range p.data.Files {
		table := TableName(name)
		if present[table] {
			fmt.Fprintf(p.out, "table %s: present\n", table)
		} else {
			fmt.Fprintf(p.out, "table %s not found in the database.\n", table)
		}
	}
}

func (p *Probe) reportDatabaseFailure(err error) {
	fmt.Fprintln(p.out, "\nDatabase check failed:", err)
	p.logger.Warn("[%s] database check: %v", p.runID.Short(), err)
}

// TableName is the table a dataset file is loaded into: its lower-cased base
// name without extension.
func TableName(file string) string {
	base := filepath.Base(file)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
