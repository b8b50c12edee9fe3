package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aarrsseni/bootique"
	"github.com/aarrsseni/bootique/config"
)

// ServerConfig is resolved from the "server" section.
type ServerConfig struct {
	Host     string          `config:"host"`
	Port     int             `config:"port"`
	LogLevel string          `config:"logLevel"`
	Timeout  time.Duration   `config:"timeout"`
	Features map[string]bool `config:"features"`
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "example"})

	// =========================================================================
	// PART 1: write a configuration file from a typed value
	// =========================================================================
	dir, err := os.MkdirTemp("", "bootique-example-*")
	if err != nil {
		logger.Fatal("create temp dir", "err", err)
	}
	defer os.RemoveAll(dir)

	initial := ServerConfig{
		Host:     "localhost",
		Port:     8080,
		LogLevel: "info",
		Timeout:  5 * time.Second,
		Features: map[string]bool{"metrics": true},
	}
	section, err := config.Encode(initial)
	if err != nil {
		logger.Fatal("encode", "err", err)
	}
	root := config.Mapping()
	root.Set("server", section)

	path := filepath.Join(dir, "app.yml")
	if err := config.WriteFile(path, root); err != nil {
		logger.Fatal("write config", "err", err)
	}
	logger.Info("configuration written", "path", path)

	// =========================================================================
	// PART 2: layer properties, variables and options over the file
	// =========================================================================
	config.System.Set("bq.server.logLevel", "debug")
	defer config.System.Clear("bq.server.logLevel")

	os.Setenv("EXAMPLE_PORT", "9090")
	defer os.Unsetenv("EXAMPLE_PORT")

	rt, err := bootique.App("--config="+path, "--host=0.0.0.0").
		Name("example").
		ModuleFunc(func(b *bootique.Binder) {
			bootique.Extend(b).
				SetProperty("server.timeout", "30s").
				DeclareVar("server.port", "EXAMPLE_PORT").
				AddOption(bootique.OptionMetadata{Name: "host", ValueName: "host", ConfigPath: "server.host"})
		}).
		CreateRuntime()
	if err != nil {
		logger.Fatal("create runtime", "err", err)
	}
	defer rt.Shutdown()

	cfg, err := bootique.ConfigBean[ServerConfig](rt, "server")
	if err != nil {
		logger.Fatal("resolve server config", "err", err)
	}

	// host from --host, port from EXAMPLE_PORT, logLevel from config.System,
	// timeout from the module property, features from the file
	logger.Info("resolved",
		"host", cfg.Host,
		"port", cfg.Port,
		"logLevel", cfg.LogLevel,
		"timeout", cfg.Timeout,
		"features", cfg.Features,
	)
}
