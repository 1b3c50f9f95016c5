// Package cli describes a command-line application independently of the
// library that parses the arguments. Groups of commands register themselves
// through an Initializer:
//
//	type secretInit struct{}
//
//	func (secretInit) SetCommands(builder cli.Builder) {
//		cmd := builder.SetCommand("secret")
//		cmd.SetDescription("encrypt and decrypt secrets")
//
//		sub := cmd.SetSubCommand("decrypt")
//		sub.SetFlags(cli.StringFlag{Name: "name", Required: true})
//		sub.SetAction(func(flags cli.Flags) error {
//			return decrypt(flags.String("name"))
//		})
//	}
//
// The ucli package provides the builder based on urfave/cli.
package cli

import (
	"time"
)

// Builder collects the commands of an application.
type Builder interface {
	// SetCommand adds a top-level command and returns its builder.
	SetCommand(name string) CommandBuilder

	// Build returns the application with the commands set so far.
	Build() Application
}

// Application is a runnable command-line application.
type Application interface {
	// Run parses the arguments, the first being the program name, and runs
	// the matching action.
	Run(arguments []string) error
}

// CommandBuilder defines a single command.
type CommandBuilder interface {
	SetDescription(value string)

	SetFlags(...Flag)

	// SetAction sets the function run by the command. A command without an
	// action only groups its subcommands.
	SetAction(Action)

	SetSubCommand(name string) CommandBuilder
}

// Initializer registers a group of commands.
type Initializer interface {
	SetCommands(Builder)
}

// Action is the function run by a command with the parsed flags.
type Action func(Flags) error

// Flag is the definition of a flag. The concrete types are StringFlag,
// StringSliceFlag, DurationFlag, IntFlag and BoolFlag.
type Flag interface {
	Flag()
}

// Flags gives access to the parsed flags. A flag that is not set returns its
// default value.
type Flags interface {
	String(name string) string

	StringSlice(name string) []string

	Duration(name string) time.Duration

	// Path returns the value of a path flag.
	Path(name string) string

	Int(name string) int

	Bool(name string) bool
}
