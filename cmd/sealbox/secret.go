package main

import (
	"context"
	"fmt"
	"os"

	"go.dedis.ch/sealbox/blob"
	"go.dedis.ch/sealbox/cli"
	"go.dedis.ch/sealbox/config"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/ledger"
	"go.dedis.ch/sealbox/workflow"
	"golang.org/x/xerrors"
)

// secretInit is the initializer of the secret commands.
//
// - implements cli.Initializer
type secretInit struct{}

// SetCommands implements cli.Initializer.
func (secretInit) SetCommands(builder cli.Builder) {
	a := newAction()

	cmd := builder.SetCommand("secret")
	cmd.SetDescription("encrypt and decrypt secrets")

	sub := cmd.SetSubCommand("encrypt")
	sub.SetDescription("encrypt a secret, store it and publish its record")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "name",
			Usage:    "label of the secret",
			Required: true,
		},
		cli.StringFlag{
			Name:  "value",
			Usage: "value of the secret, prompted if not provided",
		},
		cli.StringFlag{
			Name:  "file",
			Usage: "read the value of the secret from the file",
		},
		cli.StringFlag{
			Name:  "binding",
			Usage: "who can decrypt: address (the account) or policy (the members of an allowlist)",
			Value: ident.AddressBound.String(),
		},
		cli.StringFlag{
			Name:  "allowlist",
			Usage: "ID of the allowlist of a policy binding",
		},
		cli.IntFlag{
			Name:  "epochs",
			Usage: "number of epochs the encrypted object is stored",
		},
	)
	sub.SetAction(a.secretEncrypt)

	sub = cmd.SetSubCommand("decrypt")
	sub.SetDescription("fetch a secret and decrypt it")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "name",
			Usage: "label of the secret in the results file",
		},
		cli.StringFlag{
			Name:  "record",
			Usage: "ID of the record of the secret",
		},
		cli.StringFlag{
			Name:  "blob",
			Usage: "ID of the blob of the encrypted object when there is no record",
		},
		cli.StringFlag{
			Name:  "binding",
			Usage: "binding of the identifier when there is no record, from the results or address",
		},
		cli.DurationFlag{
			Name:  "ttl",
			Usage: "duration of the session",
		},
	)
	sub.SetAction(a.secretDecrypt)
}

func (a action) secretEncrypt(flags cli.Flags) error {
	env, err := a.buildEnv(flags)
	if err != nil {
		return err
	}

	binding, err := parseBinding(flags.String("binding"))
	if err != nil {
		return err
	}

	target := workflow.Target{
		Binding: binding,
		Name:    flags.String("name"),
	}

	inputs := a.inputs(flags, env.Results, "")

	if binding == ident.PolicyBound {
		value, err := inputs.Require("allowlist")
		if err != nil {
			return err
		}

		target.Allowlist, err = ledger.ParseObjectID(value)
		if err != nil {
			return xerrors.Errorf("invalid allowlist: %v", err)
		}
	}

	var secret []byte

	if flags.String("file") != "" {
		secret, err = os.ReadFile(flags.String("file"))
		if err != nil {
			return xerrors.Errorf("failed to read secret: %v", err)
		}
	} else {
		value, err := config.NewChain(
			config.FlagResolver{Flags: flags},
			config.EnvResolver{},
			config.NewPromptResolver(a.in, a.out),
		).Require("value")
		if err != nil {
			return err
		}

		secret = []byte(value)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pub, err := env.EncryptAndPublish(ctx, secret, target)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Identifier: %s\n", ident.EncodeHex(pub.Identifier))
	fmt.Fprintf(a.out, "Blob:       %v\n", pub.BlobID)
	fmt.Fprintf(a.out, "Record:     %v\n", pub.Record)

	return nil
}

func (a action) secretDecrypt(flags cli.Flags) error {
	env, err := a.buildEnv(flags)
	if err != nil {
		return err
	}

	name := flags.String("name")
	inputs := a.inputs(flags, env.Results, name)

	// The optional inputs never prompt.
	optional := config.NewChain(
		config.FlagResolver{Flags: flags},
		config.EnvResolver{},
		config.ResultsResolver{File: env.Results, Entry: name},
	)

	lookup := workflow.Lookup{}

	var record string

	// An explicit blob takes precedence over the record of the results.
	if flags.String("blob") == "" {
		record, err = optional.Resolve("record")
		if err != nil {
			return err
		}
	}

	if record != "" {
		lookup.Record, err = ledger.ParseObjectID(record)
		if err != nil {
			return xerrors.Errorf("invalid record: %v", err)
		}
	} else {
		value, err := inputs.Require("blob")
		if err != nil {
			return err
		}

		lookup.BlobID = blob.ID(value)

		binding, err := optional.Resolve("binding")
		if err != nil {
			return err
		}

		lookup.Binding, err = parseBinding(binding)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	plaintext, err := env.FetchAndDecrypt(ctx, lookup)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, string(plaintext))

	return nil
}
