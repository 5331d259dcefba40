// Package detect classifies a local artifact directory into a runtime
// family, used when a tenant has to be provisioned before first contact.
package detect

import (
	"os"
	"path/filepath"
)

type Runtime string

const (
	RuntimeNext   Runtime = "next"
	RuntimeNode   Runtime = "node"
	RuntimePython Runtime = "python"
	RuntimePHP    Runtime = "php"
	RuntimeStatic Runtime = "static"
)

// DefaultRuntime is the fallback when no signal is present. The web
// framework family wins ambiguous cases; override via configuration if
// another default suits the deployment target better.
const DefaultRuntime = RuntimeNext

type signal struct {
	file    string
	runtime Runtime
}

// Signals in precedence order: a framework build configuration outranks
// the generic manifest, which outranks language-specific dependency
// manifests, which outrank a bare markup entry point.
var signals = []signal{
	{"next.config.js", RuntimeNext},
	{"next.config.mjs", RuntimeNext},
	{"next.config.ts", RuntimeNext},
	{"package.json", RuntimeNode},
	{"requirements.txt", RuntimePython},
	{"pyproject.toml", RuntimePython},
	{"composer.json", RuntimePHP},
	{"index.html", RuntimeStatic},
}

// Detect returns the first matching runtime family, or fallback when the
// directory carries no signal at all.
func Detect(dir string, fallback Runtime) Runtime {
	if fallback == "" {
		fallback = DefaultRuntime
	}
	for _, s := range signals {
		if fileExists(filepath.Join(dir, s.file)) {
			return s.runtime
		}
	}
	return fallback
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
