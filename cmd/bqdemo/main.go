package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aarrsseni/bootique"
	"github.com/aarrsseni/bootique/config"
)

// GreetConfig is read from the "greet" section of the configuration.
type GreetConfig struct {
	Name     string        `config:"name"`
	Greeting string        `config:"greeting"`
	Repeat   int           `config:"repeat"`
	Delay    time.Duration `config:"delay"`
	Tags     []string      `config:"tags"`
}

type GreetCommand struct {
	logger  bootique.BootLogger
	factory *config.Factory
}

func NewGreetCommand(logger bootique.BootLogger, factory *config.Factory) *GreetCommand {
	return &GreetCommand{logger: logger, factory: factory}
}

func (c *GreetCommand) Run(cli *bootique.Cli) bootique.Outcome {
	cfg := GreetConfig{Greeting: "Hello", Repeat: 1}
	if err := c.factory.Config(&cfg, "greet"); err != nil {
		return bootique.FailedErr(2, err)
	}

	names := cli.StandaloneArguments()
	if len(names) == 0 {
		names = []string{cfg.Name}
	}
	for i := 0; i < cfg.Repeat; i++ {
		if i > 0 && cfg.Delay > 0 {
			time.Sleep(cfg.Delay)
		}
		for _, name := range names {
			c.logger.Stdout(fmt.Sprintf("%s, %s!", cfg.Greeting, name))
		}
	}
	if len(cfg.Tags) > 0 {
		c.logger.Stderr("tags: " + strings.Join(cfg.Tags, ", "))
	}
	return bootique.Succeeded()
}

// ShowConfigCommand prints the effective configuration.
type ShowConfigCommand struct {
	logger  bootique.BootLogger
	factory *config.Factory
}

func NewShowConfigCommand(logger bootique.BootLogger, factory *config.Factory) *ShowConfigCommand {
	return &ShowConfigCommand{logger: logger, factory: factory}
}

func (c *ShowConfigCommand) Run(cli *bootique.Cli) bootique.Outcome {
	format := config.FormatYAML
	if cli.HasOption("json") {
		format = config.FormatJSON
	}
	data, err := config.Marshal(c.factory.Root(), format)
	if err != nil {
		return bootique.FailedErr(1, err)
	}
	c.logger.Stdout(strings.TrimRight(string(data), "\n"))
	return bootique.Succeeded()
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "bqdemo"})
	if os.Getenv("BQDEMO_DEBUG") != "" {
		logger.SetLevel(log.DebugLevel)
	}

	app := bootique.App(os.Args[1:]...).Name("bqdemo")

	if path, ok := config.Discover(config.DefaultDiscoveryOptions("bqdemo")); ok {
		logger.Debug("discovered configuration", "path", path)
		app.ModuleFunc(func(b *bootique.Binder) {
			bootique.Extend(b).AddConfig(path)
		})
	}

	app.ModuleFunc(func(b *bootique.Binder) {
		bootique.Extend(b).
			AddCommand(NewGreetCommand).
			AddCommand(NewShowConfigCommand).
			SetProperty("greet.name", "world").
			DeclareVar("greet.name", "GREET_NAME").
			AddOption(bootique.OptionMetadata{
				Name:        "name",
				ShortName:   "n",
				ValueName:   "name",
				Description: "Who to greet.",
				ConfigPath:  "greet.name",
			}).
			AddOption(bootique.OptionMetadata{
				Name:        "json",
				Description: "Print configuration as JSON.",
			}).
			OnShutdown(func() error {
				logger.Debug("shutting down")
				return nil
			})
	})

	app.BootLogger(bootique.NewSystemBootLogger(os.Getenv("BQDEMO_DEBUG") != ""))
	app.Exec().Exit()
}
