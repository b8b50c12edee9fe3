package bootique

import (
	"fmt"
	"strings"

	"github.com/aarrsseni/bootique/config"
)

// coreModule contributes the built-in help command.
type coreModule struct{}

func (coreModule) Configure(b *Binder) {
	Extend(b).AddCommandWithMetadata(CommandMetadata{
		Name:        "help",
		ShortName:   "h",
		Description: "Prints this message.",
	}, newHelpCommand)
}

type helpCommand struct {
	logger BootLogger
	usage  string
}

func newHelpCommand(rt *Runtime) *helpCommand {
	return &helpCommand{logger: rt.BootLogger(), usage: rt.parser.usage()}
}

func (c *helpCommand) Run(*Cli) Outcome {
	c.logger.Stdout(strings.TrimRight(c.usage, "\n"))
	return Succeeded()
}

// coreProviders binds the runtime's own services.
func (r *Runtime) coreProviders() []any {
	return []any{
		func() BootLogger { return r.logger },
		func() *Runtime { return r },
		func() *ShutdownManager { return r.shutdown },
		func() (*Cli, error) { return r.Cli() },
		r.newConfigFactory,
	}
}

// newConfigFactory loads configuration files and overlays properties in
// increasing precedence: module properties, declared variables, external
// properties, options mapped to config paths.
func (r *Runtime) newConfigFactory(cli *Cli) (*config.Factory, error) {
	paths := append(append([]string(nil), r.configs...), cli.OptionStrings(ConfigOption)...)
	tree, err := config.ReadFiles(paths...)
	if err != nil {
		return nil, err
	}

	props := config.Chain(
		r.moduleProps,
		config.DeclaredVars(r.vars),
		r.externalProps,
		r.optionProperties(cli),
	)
	tree = config.Overlay(tree, props)
	r.logger.Trace(func() string {
		return fmt.Sprintf("configuration loaded from %d file(s): %v", len(paths), paths)
	})
	return config.NewFactory(tree), nil
}

func (r *Runtime) optionProperties(cli *Cli) *config.MapProperties {
	props := config.NewProperties()
	for _, o := range r.options {
		if o.ConfigPath == "" || !cli.HasOption(o.Name) {
			continue
		}
		value := "true"
		if o.ValueName != "" {
			value = cli.OptionString(o.Name)
		}
		props.Set(config.Prefix+o.ConfigPath, value)
	}
	return props
}
