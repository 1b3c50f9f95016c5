// Package ucli provides a cli builder implementation based on the urfave/cli
// library.
package ucli

import (
	"fmt"
	"io"

	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/sealbox/cli"
)

// Builder is a builder of urfave/cli applications.
//
// - implements cli.Builder
type Builder struct {
	commands []*cmdBuilder
	name     string
	usage    string
	action   cli.Action
	flags    []cli.Flag
	writer   io.Writer
}

// NewBuilder returns a new initialized builder. Action allows one to define a
// primary action, but can be nil if we only needs to define commands. Flags
// provides the global flags available from all the commands/subcommands.
func NewBuilder(name string, action cli.Action, flags ...cli.Flag) cli.Builder {
	return &Builder{
		name:   name,
		action: action,
		flags:  flags,
	}
}

// SetUsage sets the one-line description of the application.
func (b *Builder) SetUsage(usage string) {
	b.usage = usage
}

// SetWriter sets the writer used for the help and usage output. The default is
// the standard output.
func (b *Builder) SetWriter(w io.Writer) {
	b.writer = w
}

// Apply lets each initializer register its commands.
func (b *Builder) Apply(inits ...cli.Initializer) {
	for _, init := range inits {
		init.SetCommands(b)
	}
}

// Build implements cli.builder.
func (b Builder) Build() cli.Application {
	app := &urfave.App{
		Name:        b.name,
		Usage:       b.usage,
		HideVersion: true,
		Commands:    buildCommand(b.commands),
		Action:      makeAction(b.action),
		Flags:       buildFlags(b.flags),
	}

	if b.writer != nil {
		app.Writer = b.writer
	}

	app.Setup()

	return app
}

// SetCommand implements cli.Builder.
func (b *Builder) SetCommand(name string) cli.CommandBuilder {
	cmd := &cmdBuilder{
		name: name,
	}
	b.commands = append(b.commands, cmd)

	return cmd
}

// cmdBuilder collects the definition of a command and its subcommands.
//
// - implements cli.CommandBuilder
type cmdBuilder struct {
	name        string
	description string
	action      cli.Action
	flags       []urfave.Flag
	subcommands []*cmdBuilder
}

// SetDescription implements cli.CommandBuilder.
func (b *cmdBuilder) SetDescription(value string) {
	b.description = value
}

// SetFlags implements cli.CommandBuilder.
func (b *cmdBuilder) SetFlags(flags ...cli.Flag) {
	b.flags = buildFlags(flags)
}

// SetAction implements cli.CommandBuilder.
func (b *cmdBuilder) SetAction(action cli.Action) {
	b.action = action
}

// SetSubCommand implements cli.CommandBuilder.
func (b *cmdBuilder) SetSubCommand(name string) cli.CommandBuilder {
	builder := &cmdBuilder{
		name: name,
	}
	b.subcommands = append(b.subcommands, builder)

	return builder
}

// buildFlags converts the flag definitions to urfave/cli flags. It panics on
// an unknown definition.
func buildFlags(flags []cli.Flag) []urfave.Flag {
	res := make([]urfave.Flag, len(flags))

	for i, f := range flags {
		switch e := f.(type) {
		case cli.StringFlag:
			res[i] = &urfave.StringFlag{
				Name:     e.Name,
				Aliases:  e.Aliases,
				Usage:    e.Usage,
				EnvVars:  e.EnvVars,
				Required: e.Required,
				Value:    e.Value,
			}
		case cli.StringSliceFlag:
			res[i] = &urfave.StringSliceFlag{
				Name:     e.Name,
				Aliases:  e.Aliases,
				Usage:    e.Usage,
				EnvVars:  e.EnvVars,
				Required: e.Required,
				Value:    urfave.NewStringSlice(e.Value...),
			}
		case cli.DurationFlag:
			res[i] = &urfave.DurationFlag{
				Name:     e.Name,
				Aliases:  e.Aliases,
				Usage:    e.Usage,
				EnvVars:  e.EnvVars,
				Required: e.Required,
				Value:    e.Value,
			}
		case cli.IntFlag:
			res[i] = &urfave.IntFlag{
				Name:     e.Name,
				Aliases:  e.Aliases,
				Usage:    e.Usage,
				EnvVars:  e.EnvVars,
				Required: e.Required,
				Value:    e.Value,
			}
		case cli.BoolFlag:
			res[i] = &urfave.BoolFlag{
				Name:    e.Name,
				Aliases: e.Aliases,
				Usage:   e.Usage,
				EnvVars: e.EnvVars,
				Value:   e.Value,
			}
		default:
			panic(fmt.Sprintf("flag type '%T' not supported", f))
		}
	}

	return res
}

// buildCommand converts the command definitions, and their subcommands, to
// urfave/cli commands.
func buildCommand(cmds []*cmdBuilder) []*urfave.Command {
	commands := make([]*urfave.Command, len(cmds))

	for i, cmd := range cmds {
		commands[i] = &urfave.Command{
			Name:        cmd.name,
			Usage:       cmd.description,
			Action:      makeAction(cmd.action),
			Flags:       cmd.flags,
			Subcommands: buildCommand(cmd.subcommands),
		}
	}

	return commands
}

// makeAction wraps the action so that it receives the urfave/cli context as its
// flags.
func makeAction(action cli.Action) urfave.ActionFunc {
	if action != nil {
		return func(ctx *urfave.Context) error {
			return action(ctx)
		}
	}
	return nil
}
