package frame

import (
	"runtime/debug"

	"covidsql/internal/errors"
)

// LibraryName is the import name used in diagnostics.
const LibraryName = "gota"

// GotaModule is the module that provides dataframes.
const GotaModule = "github.com/go-gota/gota"

const unknownVersion = "(unknown)"

// BuildInfoFunc returns the module graph linked into the binary
type BuildInfoFunc func() (*debug.BuildInfo, bool)

// ModuleVersion reports the version of module path linked into the running
// binary, or "(unknown)" when it cannot be determined.
func ModuleVersion(path string) string {
	version, found := lookupModule(debug.ReadBuildInfo, path)
	if !found {
		return unknownVersion
	}
	return version
}

// lookupModule finds path in the build's dependencies. found is false only
// when the build lists dependencies and path is not among them; without
// dependency information the module cannot be ruled out.
func lookupModule(buildInfo BuildInfoFunc, path string) (version string, found bool) {
	info, ok := buildInfo()
	if !ok || info == nil || len(info.Deps) == 0 {
		return unknownVersion, true
	}
	for _, dep := range info.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version, true
		}
		return dep.Version, true
	}
	return "", false
}

func resolveGota(buildInfo BuildInfoFunc) (string, error) {
	version, found := lookupModule(buildInfo, GotaModule)
	if !found {
		return "", errors.DependencyMissing(LibraryName, errors.NotFound("module "+GotaModule+" in build"))
	}
	return version, nil
}
