package probe

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Runtime identifies the running binary and the toolchain that built it
type Runtime struct {
	Executable string
	Version    string
}

// CurrentRuntime describes the running process
func CurrentRuntime() Runtime {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	if abs, err := filepath.Abs(exe); err == nil {
		exe = abs
	}
	return Runtime{
		Executable: exe,
		Version:    fmt.Sprintf("%s (%s, %s/%s)", runtime.Version(), runtime.Compiler, runtime.GOOS, runtime.GOARCH),
	}
}
