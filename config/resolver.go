package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"go.dedis.ch/sealbox/cli"
	"go.dedis.ch/sealbox/results"
	"golang.org/x/xerrors"
)

// EnvPrefix is the prefix of the environment variables that provide inputs.
const EnvPrefix = "SEALBOX_"

// Resolver is a source of inputs. It returns an empty string when it has no
// value for the key.
type Resolver interface {
	Name() string

	Resolve(key string) (string, error)
}

// Chain is an ordered list of resolvers. The first non-empty value wins.
type Chain []Resolver

// NewChain returns a chain of the resolvers. The nil resolvers are skipped.
func NewChain(resolvers ...Resolver) Chain {
	chain := make(Chain, 0, len(resolvers))

	for _, r := range resolvers {
		if r != nil {
			chain = append(chain, r)
		}
	}

	return chain
}

// Resolve returns the first non-empty value of the key, or an empty string.
func (c Chain) Resolve(key string) (string, error) {
	for _, r := range c {
		value, err := r.Resolve(key)
		if err != nil {
			return "", xerrors.Errorf("%s: %v", r.Name(), err)
		}

		if value != "" {
			return value, nil
		}
	}

	return "", nil
}

// Require returns the first non-empty value of the key. It fails when no
// resolver has one.
func (c Chain) Require(key string) (string, error) {
	value, err := c.Resolve(key)
	if err != nil {
		return "", err
	}

	if value == "" {
		names := make([]string, len(c))
		for i, r := range c {
			names[i] = r.Name()
		}

		return "", xerrors.Errorf("missing value for '%s' (tried %s)", key,
			strings.Join(names, ", "))
	}

	return value, nil
}

// FlagResolver resolves the inputs from the command flags of the same name.
type FlagResolver struct {
	Flags cli.Flags
}

// Name implements config.Resolver.
func (FlagResolver) Name() string {
	return "flag"
}

// Resolve implements config.Resolver.
func (r FlagResolver) Resolve(key string) (string, error) {
	return r.Flags.String(key), nil
}

// EnvResolver resolves the inputs from the environment. The key "blob-id" is
// read from SEALBOX_BLOB_ID.
type EnvResolver struct{}

// Name implements config.Resolver.
func (EnvResolver) Name() string {
	return "env"
}

// Resolve implements config.Resolver.
func (EnvResolver) Resolve(key string) (string, error) {
	return os.Getenv(EnvName(key)), nil
}

// EnvName returns the name of the environment variable of the key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// ResultsResolver resolves the inputs from an entry of the results file: the
// most recent one with the name, or the most recent one if the name is empty.
type ResultsResolver struct {
	File  *results.File
	Entry string
}

// Name implements config.Resolver.
func (ResultsResolver) Name() string {
	return "results"
}

// Resolve implements config.Resolver.
func (r ResultsResolver) Resolve(key string) (string, error) {
	if r.File == nil {
		return "", nil
	}

	var entry results.Entry
	var found bool

	if r.Entry != "" {
		entry, found = r.File.Find(r.Entry)
	} else {
		entry, found = r.File.Last()
	}

	if !found {
		return "", nil
	}

	return entry.Get(key), nil
}

// PromptResolver asks the user for the inputs.
type PromptResolver struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptResolver returns a resolver that prints the questions to the
// writer and reads the answers line by line from the reader.
func NewPromptResolver(in io.Reader, out io.Writer) PromptResolver {
	return PromptResolver{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Name implements config.Resolver.
func (PromptResolver) Name() string {
	return "prompt"
}

// Resolve implements config.Resolver.
func (r PromptResolver) Resolve(key string) (string, error) {
	fmt.Fprintf(r.out, "%s: ", key)

	line, err := r.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", xerrors.Errorf("failed to read answer: %v", err)
	}

	return strings.TrimSpace(line), nil
}
