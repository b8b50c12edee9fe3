// Package config resolves typed configuration beans from YAML, JSON or TOML
// documents overlaid by property overrides.
//
// Resolution happens in three steps:
//   - ReadFile / ReadFiles parse documents into an ordered tree (Node)
//   - Overlay applies "bq." properties on top of the tree
//   - Factory walks the tree into beans (Go structs) using a Descriptor per type
//
// Quick Start:
//
//	type Server struct {
//	    Host    string        `config:"host"`
//	    Port    int           `config:"port"`
//	    Timeout time.Duration `config:"timeout"`
//	}
//
//	tree, err := config.ReadFile("app.yml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tree = config.Overlay(tree, config.Chain(config.EnvProperties(), config.System))
//
//	server, err := config.Resolve[Server](config.NewFactory(tree), "server")
//
// Precedence (highest to lowest):
//  1. Properties, later assignments first (bq.server.port=9090)
//  2. Configuration files, later files first
//  3. Bean defaults
//
// Beans are strict: a tree key with no matching attribute fails with
// ErrUnknownKey unless the bean implements UnknownKeysIgnorer.
package config
