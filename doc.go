// Package bootique assembles command line applications from modules.
//
// A Runtime is built from modules that bind services, register commands and
// contribute configuration. The runtime parses its arguments, resolves typed
// configuration (see package config) and runs the selected command.
//
// Quick Start:
//
//	type GreetCommand struct {
//	    logger bootique.BootLogger
//	}
//
//	func NewGreetCommand(logger bootique.BootLogger) *GreetCommand {
//	    return &GreetCommand{logger: logger}
//	}
//
//	func (c *GreetCommand) Run(cli *bootique.Cli) bootique.Outcome {
//	    c.logger.Stdout("hello")
//	    return bootique.Succeeded()
//	}
//
//	func main() {
//	    bootique.App(os.Args[1:]...).
//	        ModuleFunc(func(b *bootique.Binder) {
//	            bootique.Extend(b).AddCommand(NewGreetCommand)
//	        }).
//	        Exec().
//	        Exit()
//	}
//
// Running "app --greet" (or "app -g") prints "hello". Command names are
// derived from the type name: GreetCommand becomes "greet".
//
// Configuration Precedence (highest to lowest):
//  1. Options mapped to configuration paths
//  2. External properties: config.System and BQ_ environment variables
//  3. Variables declared with Extender.DeclareVar
//  4. Properties set with Extender.SetProperty
//  5. Configuration files: --config files over those added with Extender.AddConfig
//
// The command line and configuration are built on first use, so a runtime
// can be created and inspected without a valid command selection.
package bootique
