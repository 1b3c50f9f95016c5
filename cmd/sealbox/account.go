package main

import (
	"fmt"
	"os"

	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/cli"
	"go.dedis.ch/sealbox/crypto/loader"
	"go.dedis.ch/sealbox/ident"
	"golang.org/x/xerrors"
)

// accountInit is the initializer of the account commands.
//
// - implements cli.Initializer
type accountInit struct{}

// SetCommands implements cli.Initializer.
func (accountInit) SetCommands(builder cli.Builder) {
	a := newAction()

	cmd := builder.SetCommand("account")
	cmd.SetDescription("manage the account of the user")

	sub := cmd.SetSubCommand("new")
	sub.SetDescription("create the account key file")
	sub.SetAction(a.accountNew)

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print the address and the public key of the account")
	sub.SetAction(a.accountShow)
}

func (a action) accountNew(flags cli.Flags) error {
	cfg, err := a.loadConfig(flags)
	if err != nil {
		return err
	}

	_, err = os.Stat(cfg.Account.KeyFile)
	if err == nil {
		return xerrors.Errorf("account key '%s' already exists", cfg.Account.KeyFile)
	}

	acc, err := account.LoadOrCreate(loader.NewFileLoader(cfg.Account.KeyFile))
	if err != nil {
		return xerrors.Errorf("failed to create account: %v", err)
	}

	fmt.Fprintf(a.out, "Created account %v in %s\n", acc.Address(), cfg.Account.KeyFile)

	return nil
}

func (a action) accountShow(flags cli.Flags) error {
	cfg, err := a.loadConfig(flags)
	if err != nil {
		return err
	}

	acc, err := a.loadAccount(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Address:    %v\n", acc.Address())
	fmt.Fprintf(a.out, "Public key: %s\n", ident.EncodeHex(acc.PublicKeyBytes()))

	return nil
}
