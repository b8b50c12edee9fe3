package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DiscoveryOptions controls where Discover looks for a configuration file.
type DiscoveryOptions struct {
	Name       string   // file name without extension
	Extensions []string // tried in order within each directory
	Paths      []string // directories searched before the built-in ones
	EnvVar     string   // names a file directly when set

	UseXDG        bool
	UseCurrentDir bool
}

// DefaultDiscoveryOptions searches the working directory and the XDG
// directories for app.yml, app.yaml, app.json or app.toml, unless APP_CONFIG
// names a file.
func DefaultDiscoveryOptions(app string) DiscoveryOptions {
	return DiscoveryOptions{
		Name:          app,
		Extensions:    []string{".yml", ".yaml", ".json", ".toml"},
		EnvVar:        strings.ToUpper(strings.ReplaceAll(app, "-", "_")) + "_CONFIG",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// Discover returns the first config file found for opts. The environment
// variable wins over the search paths. Finding nothing is not an error.
func Discover(opts DiscoveryOptions) (string, bool) {
	if opts.EnvVar != "" {
		if path := os.Getenv(opts.EnvVar); path != "" {
			return path, true
		}
	}

	for _, dir := range opts.searchDirs() {
		for _, ext := range opts.Extensions {
			candidate := filepath.Join(dir, opts.Name+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}
	}
	return "", false
}

func (opts DiscoveryOptions) searchDirs() []string {
	dirs := append([]string(nil), opts.Paths...)
	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}
	if opts.UseXDG {
		dirs = append(dirs, xdgConfigPaths(opts.Name)...)
	}
	return dirs
}

// xdgConfigPaths lists $XDG_CONFIG_HOME/app (or ~/.config/app) followed by
// each $XDG_CONFIG_DIRS entry, or /etc/xdg/app and /etc/app when unset.
func xdgConfigPaths(app string) []string {
	var dirs []string
	switch home := os.Getenv("XDG_CONFIG_HOME"); {
	case home != "":
		dirs = append(dirs, filepath.Join(home, app))
	case os.Getenv("HOME") != "":
		dirs = append(dirs, filepath.Join(os.Getenv("HOME"), ".config", app))
	}

	system := filepath.SplitList(os.Getenv("XDG_CONFIG_DIRS"))
	if len(system) == 0 {
		system = []string{"/etc/xdg", "/etc"}
	}
	for _, dir := range system {
		dirs = append(dirs, filepath.Join(dir, app))
	}
	return dirs
}
