package frame

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"covidsql/internal/errors"
)

// ReadOptions controls how much of a file a format reads
type ReadOptions struct {
	// NRows caps the number of data rows read after the header. Zero reads all.
	NRows int
	// Sheet names the worksheet for workbook formats.
	Sheet string
}

// Format reads one file encoding into a Frame
type Format interface {
	Read(r io.Reader, opts ReadOptions) (*Frame, error)
}

// Versioned is implemented by formats backed by a third-party module
type Versioned interface {
	Version() string
}

// Registry maps file extensions to formats
type Registry struct {
	mu        sync.RWMutex
	formats   map[string]Format
	buildInfo BuildInfoFunc
}

// RegistryOption customizes a Registry
type RegistryOption func(*Registry)

// WithBuildInfo replaces the source of module information used by Import
func WithBuildInfo(fn BuildInfoFunc) RegistryOption {
	return func(r *Registry) { r.buildInfo = fn }
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{formats: make(map[string]Format), buildInfo: debug.ReadBuildInfo}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default receives formats registered by adapter packages in init.
var Default = NewRegistry()

// Register makes a format available under ext. It panics if format is nil
// or ext is registered twice.
func (r *Registry) Register(ext string, format Format) {
	if format == nil {
		panic("frame: Register format is nil")
	}
	ext = normalizeExt(ext)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.formats[ext]; dup {
		panic("frame: Register called twice for format " + ext)
	}
	r.formats[ext] = format
}

// Register makes a format available on the Default registry
func Register(ext string, format Format) {
	Default.Register(ext, format)
}

// Formats returns the registered extensions, sorted
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.formats))
	for ext := range r.formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Import resolves gota from the build and checks every required format is
// registered. Either missing is a DEPENDENCY_MISSING error.
func (r *Registry) Import(required ...string) (*Library, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, err := resolveGota(r.buildInfo)
	if err != nil {
		return nil, err
	}

	formats := make(map[string]Format, len(r.formats))
	for ext, format := range r.formats {
		formats[ext] = format
	}
	for _, ext := range required {
		ext = normalizeExt(ext)
		if _, ok := formats[ext]; !ok {
			return nil, errors.DependencyMissing(fmt.Sprintf("frame format %q", ext), nil)
		}
	}
	return &Library{formats: formats, version: version}, nil
}

// Library is an imported gota with a fixed set of formats
type Library struct {
	formats map[string]Format
	version string
}

// Version returns the gota module version linked into the binary
func (l *Library) Version() string {
	return l.version
}

// FormatVersions reports the backing module version of each format that has one
func (l *Library) FormatVersions() map[string]string {
	versions := make(map[string]string)
	for ext, format := range l.formats {
		if v, ok := format.(Versioned); ok {
			versions[ext] = v.Version()
		}
	}
	return versions
}

// ReadFile reads path with the format registered for its extension
func (l *Library) ReadFile(path string, opts ReadOptions) (*Frame, error) {
	ext := normalizeExt(filepath.Ext(path))
	format, ok := l.formats[ext]
	if !ok {
		return nil, errors.InvalidInput(fmt.Sprintf("no frame format for %s", path))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	f, err := format.Read(file, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return f, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
