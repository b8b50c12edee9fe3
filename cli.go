package bootique

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// ConfigOption is the built-in repeatable option naming configuration files.
const ConfigOption = "config"

// OptionMetadata declares a command line option.
type OptionMetadata struct {
	Name        string
	ShortName   string
	Description string
	// ValueName makes the option take a value; empty declares a boolean flag.
	ValueName string
	// ConfigPath overlays the option's last value onto this configuration path.
	ConfigPath string
	Default    string
}

// Cli is the parsed command line.
type Cli struct {
	command    string
	flags      *pflag.FlagSet
	positional []string
}

// CommandName returns the selected command, empty when none was given.
func (c *Cli) CommandName() string { return c.command }

// HasOption reports whether the option was given on the command line.
func (c *Cli) HasOption(name string) bool {
	f := c.flags.Lookup(name)
	return f != nil && f.Changed
}

// OptionStrings returns every value given for a value option, or its default.
func (c *Cli) OptionStrings(name string) []string {
	values, err := c.flags.GetStringArray(name)
	if err != nil {
		return nil
	}
	return values
}

// OptionString returns the last value of a value option.
func (c *Cli) OptionString(name string) string {
	values := c.OptionStrings(name)
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

// StandaloneArguments returns the arguments that are not options.
func (c *Cli) StandaloneArguments() []string {
	out := make([]string, len(c.positional))
	copy(out, c.positional)
	return out
}

// cliParser turns arguments into a Cli. Commands are boolean flags; a short
// name claimed by more than one command or option is registered for none and
// reported as ambiguous when used.
type cliParser struct {
	name      string
	commands  []CommandMetadata
	options   []OptionMetadata
	ambiguous map[string][]string // short name -> claimants
	valueOpts map[string]bool     // short names taking a value
}

func newCliParser(name string, commands []CommandMetadata, options []OptionMetadata) (*cliParser, error) {
	if err := validateFlagNames(commands, options); err != nil {
		return nil, err
	}

	p := &cliParser{
		name:      name,
		commands:  commands,
		options:   options,
		ambiguous: make(map[string][]string),
		valueOpts: make(map[string]bool),
	}

	claims := make(map[string][]string)
	for _, o := range options {
		if o.ShortName != "" {
			claims[o.ShortName] = append(claims[o.ShortName], o.Name)
		}
	}
	for _, md := range commands {
		if md.ShortName != "" {
			claims[md.ShortName] = append(claims[md.ShortName], md.Name)
		}
	}
	for short, names := range claims {
		if len(names) > 1 {
			p.ambiguous[short] = names
		}
	}
	for _, o := range options {
		if o.ValueName != "" && o.ShortName != "" && p.ambiguous[o.ShortName] == nil {
			p.valueOpts[o.ShortName] = true
		}
	}
	return p, nil
}

// validateFlagNames catches the clashes pflag would panic on.
func validateFlagNames(commands []CommandMetadata, options []OptionMetadata) error {
	seen := map[string]string{ConfigOption: "option"}
	check := func(kind, name, short string) error {
		if name == "" || strings.HasPrefix(name, "-") {
			return fmt.Errorf("invalid %s name %q", kind, name)
		}
		if other, exists := seen[name]; exists {
			return fmt.Errorf("%s '%s' clashes with an existing %s", kind, name, other)
		}
		if len(short) > 1 {
			return fmt.Errorf("%s '%s': short name %q must be a single character", kind, name, short)
		}
		seen[name] = kind
		return nil
	}

	for _, o := range options {
		if err := check("option", o.Name, o.ShortName); err != nil {
			return err
		}
	}
	for _, md := range commands {
		if err := check("command", md.Name, md.ShortName); err != nil {
			return err
		}
	}
	return nil
}

func (p *cliParser) shorthand(short string) string {
	if _, taken := p.ambiguous[short]; taken {
		return ""
	}
	return short
}

func (p *cliParser) flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(p.name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	// a flag naming no command selects nothing, so the default command runs
	fs.ParseErrorsAllowlist.UnknownFlags = true

	fs.StringArray(ConfigOption, nil, "Specifies a configuration file (YAML, JSON or TOML). Repeatable.")
	for _, o := range p.options {
		if o.ValueName != "" {
			var defaults []string
			if o.Default != "" {
				defaults = []string{o.Default}
			}
			fs.StringArrayP(o.Name, p.shorthand(o.ShortName), defaults, o.Description)
		} else {
			fs.BoolP(o.Name, p.shorthand(o.ShortName), false, o.Description)
		}
	}
	for _, md := range p.commands {
		fs.BoolP(md.Name, p.shorthand(md.ShortName), false, md.Description)
		if md.Hidden {
			fs.Lookup(md.Name).Hidden = true
		}
	}
	return fs
}

func (p *cliParser) parse(args []string) (*Cli, error) {
	if err := p.checkShorthands(args); err != nil {
		return nil, err
	}

	fs := p.flagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var selected []string
	for _, md := range p.commands {
		if f := fs.Lookup(md.Name); f != nil && f.Changed {
			selected = append(selected, md.Name)
		}
	}
	if len(selected) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousCommand, strings.Join(selected, ", "))
	}

	cli := &Cli{flags: fs, positional: fs.Args()}
	if len(selected) == 1 {
		cli.command = selected[0]
	}
	return cli, nil
}

// checkShorthands rejects shorthand groups such as -x or -vx that use an
// ambiguous short name.
func (p *cliParser) checkShorthands(args []string) error {
	if len(p.ambiguous) == 0 {
		return nil
	}
	for _, arg := range args {
		if arg == "--" {
			return nil
		}
		if len(arg) < 2 || arg[0] != '-' || arg[1] == '-' {
			continue
		}
		for _, r := range arg[1:] {
			short := string(r)
			if names, ok := p.ambiguous[short]; ok {
				return fmt.Errorf("%w: -%s matches %s", ErrAmbiguousCommand, short, strings.Join(names, ", "))
			}
			if short == "=" || p.valueOpts[short] {
				break
			}
		}
	}
	return nil
}

// usage renders the option and command listing.
func (p *cliParser) usage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage:\n  %s [options]\n", p.name)

	if len(p.commands) > 0 {
		fmt.Fprintf(&b, "\nCommands:\n")
		tw := tabwriter.NewWriter(&b, 2, 0, 3, ' ', 0)
		for _, md := range p.commands {
			if md.Hidden {
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\n", flagLabel(md.Name, p.shorthand(md.ShortName), ""), md.Description)
		}
		tw.Flush()
	}

	fmt.Fprintf(&b, "\nOptions:\n")
	tw := tabwriter.NewWriter(&b, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "  %s\t%s\n", flagLabel(ConfigOption, "", "yaml_location"),
		"Specifies a configuration file (YAML, JSON or TOML). Repeatable.")
	for _, o := range p.options {
		fmt.Fprintf(tw, "  %s\t%s\n", flagLabel(o.Name, p.shorthand(o.ShortName), o.ValueName), o.Description)
	}
	tw.Flush()
	return b.String()
}

func flagLabel(name, short, valueName string) string {
	label := "--" + name
	if short != "" {
		label = "-" + short + ", " + label
	}
	if valueName != "" {
		label += "=" + valueName
	}
	return label
}
