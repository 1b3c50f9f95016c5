package main

import (
	"io"
	"os"
	"time"

	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/blob/walrus"
	"go.dedis.ch/sealbox/cli"
	"go.dedis.ch/sealbox/config"
	"go.dedis.ch/sealbox/crypto"
	"go.dedis.ch/sealbox/crypto/loader"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/ledger/jsonrpc"
	"go.dedis.ch/sealbox/ledger/local"
	"go.dedis.ch/sealbox/results"
	"go.dedis.ch/sealbox/seal/threshold"
	"go.dedis.ch/sealbox/workflow"
	"golang.org/x/xerrors"
)

// action holds the dependencies of the commands so that the tests can replace
// them.
type action struct {
	out io.Writer
	in  io.Reader
	// wait blocks until the node must stop.
	wait func()
}

// newAction returns the action used by the commands. The tests replace it to
// capture the output.
var newAction = func() action {
	return action{
		out:  os.Stdout,
		in:   os.Stdin,
		wait: waitSignal,
	}
}

func (a action) loadConfig(flags cli.Flags) (config.Config, error) {
	path := flags.Path("config")
	if path == "" {
		path = config.DefaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, xerrors.Errorf("failed to load config: %v", err)
	}

	if cfg.Log.Level != "" && !sealbox.SetLevel(cfg.Log.Level) {
		return cfg, xerrors.Errorf("unknown log level '%s'", cfg.Log.Level)
	}

	return cfg, nil
}

func (a action) loadAccount(cfg config.Config) (account.Account, error) {
	acc, err := account.Load(loader.NewFileLoader(cfg.Account.KeyFile))
	if err != nil {
		return acc, xerrors.Errorf("failed to load account, use 'account new' "+
			"to create one: %v", err)
	}

	return acc, nil
}

func packageID(cfg config.Config) ([]byte, error) {
	if cfg.Ledger.Package == "" {
		return local.DefaultPackageID(), nil
	}

	id, err := ident.DecodeHex(cfg.Ledger.Package)
	if err != nil {
		return nil, xerrors.Errorf("invalid package: %v", err)
	}

	return id, nil
}

// buildEnv creates the environment of the workflows from the configuration
// and the account of the user.
func (a action) buildEnv(flags cli.Flags) (workflow.Env, error) {
	cfg, err := a.loadConfig(flags)
	if err != nil {
		return workflow.Env{}, err
	}

	acc, err := a.loadAccount(cfg)
	if err != nil {
		return workflow.Env{}, err
	}

	pkg, err := packageID(cfg)
	if err != nil {
		return workflow.Env{}, err
	}

	committee, err := cfg.Committee()
	if err != nil {
		return workflow.Env{}, xerrors.Errorf("failed to read committee: %v", err)
	}

	servers, err := committee.Clients(cfg.Seal.Timeout)
	if err != nil {
		return workflow.Env{}, xerrors.Errorf("invalid committee: %v", err)
	}

	file, err := results.Open(cfg.Results)
	if err != nil {
		return workflow.Env{}, err
	}

	env := workflow.Env{
		Account:    acc,
		Ledger:     jsonrpc.NewClient(cfg.Ledger.URL, cfg.Ledger.Timeout),
		Seal:       threshold.NewClient(servers),
		Blobs:      walrus.NewClient(cfg.Blob.Publisher, cfg.Blob.Aggregator, cfg.Blob.Timeout),
		Results:    file,
		PackageID:  pkg,
		Threshold:  cfg.Seal.Threshold,
		Epochs:     cfg.Blob.Epochs,
		SessionTTL: cfg.Session.TTL,
		Rand:       crypto.CryptographicRandomGenerator{},
		Out:        a.out,
	}

	if flags.Int("epochs") > 0 {
		env.Epochs = flags.Int("epochs")
	}

	if flags.Duration("ttl") > 0 {
		env.SessionTTL = flags.Duration("ttl")
	}

	return env, nil
}

// inputs returns the chain that resolves the inputs of a command: flags, then
// environment, then the results entry, then a prompt.
func (a action) inputs(flags cli.Flags, file *results.File, entry string) config.Chain {
	return config.NewChain(
		config.FlagResolver{Flags: flags},
		config.EnvResolver{},
		config.ResultsResolver{File: file, Entry: entry},
		config.NewPromptResolver(a.in, a.out),
	)
}

// parseBinding returns the binding of the name, or the address binding if the
// name is empty.
func parseBinding(name string) (ident.Binding, error) {
	if name == "" {
		return ident.AddressBound, nil
	}

	return ident.ParseBinding(name)
}

// timeout bounds the commands that talk to the services.
var timeout = 30 * time.Second
