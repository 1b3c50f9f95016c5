package cli

import "time"

// StringFlag is a flag parsed as a string.
//
// Aliases are the alternative names of the flag and EnvVars the environment
// variables read, in order, when the flag is not set on the command line.
//
// - implements cli.Flag
type StringFlag struct {
	Name     string
	Aliases  []string
	Usage    string
	EnvVars  []string
	Required bool
	Value    string
}

// Flag implements cli.Flag.
func (flag StringFlag) Flag() {}

// StringSliceFlag is a flag that can be set multiple times.
//
// - implements cli.Flag
type StringSliceFlag struct {
	Name     string
	Aliases  []string
	Usage    string
	EnvVars  []string
	Required bool
	Value    []string
}

// Flag implements cli.Flag.
func (flag StringSliceFlag) Flag() {}

// DurationFlag is a flag parsed as a duration, like "30s" or "2h".
//
// - implements cli.Flag
type DurationFlag struct {
	Name     string
	Aliases  []string
	Usage    string
	EnvVars  []string
	Required bool
	Value    time.Duration
}

// Flag implements cli.Flag.
func (flag DurationFlag) Flag() {}

// IntFlag is a flag parsed as an integer.
//
// - implements cli.Flag
type IntFlag struct {
	Name     string
	Aliases  []string
	Usage    string
	EnvVars  []string
	Required bool
	Value    int
}

// Flag implements cli.Flag.
func (flag IntFlag) Flag() {}

// BoolFlag is a flag set to true by its presence.
//
// - implements cli.Flag
type BoolFlag struct {
	Name    string
	Aliases []string
	Usage   string
	EnvVars []string
	Value   bool
}

// Flag implements cli.Flag.
func (flag BoolFlag) Flag() {}
