package main

import (
	"context"
	"fmt"
	"os"

	"go.dedis.ch/sealbox/blob"
	"go.dedis.ch/sealbox/blob/walrus"
	"go.dedis.ch/sealbox/cli"
	"go.dedis.ch/sealbox/crypto"
	"go.dedis.ch/sealbox/envelope"
	_ "go.dedis.ch/sealbox/envelope/json"
	"go.dedis.ch/sealbox/ident"
	"golang.org/x/xerrors"
)

// identInit is the initializer of the identifier commands.
//
// - implements cli.Initializer
type identInit struct{}

// SetCommands implements cli.Initializer.
func (identInit) SetCommands(builder cli.Builder) {
	a := newAction()

	cmd := builder.SetCommand("id")
	cmd.SetDescription("derive and inspect identifiers")

	sub := cmd.SetSubCommand("derive")
	sub.SetDescription("derive an identifier from a prefix and a nonce")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "binding",
			Usage: "binding of the identifier: address or policy",
			Value: ident.AddressBound.String(),
		},
		cli.StringFlag{
			Name:  "prefix",
			Usage: "hexadecimal prefix, the address of the account by default for an address binding",
		},
		cli.StringFlag{
			Name:  "nonce",
			Usage: "hexadecimal nonce, a fresh one is generated if empty",
		},
	)
	sub.SetAction(a.identDerive)

	sub = cmd.SetSubCommand("extract")
	sub.SetDescription("print the identifier embedded in an encrypted object")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "file",
			Usage: "path to the encrypted object",
		},
		cli.StringFlag{
			Name:  "blob",
			Usage: "ID of the blob of the encrypted object",
		},
	)
	sub.SetAction(a.identExtract)
}

func (a action) identDerive(flags cli.Flags) error {
	binding, err := parseBinding(flags.String("binding"))
	if err != nil {
		return err
	}

	prefixHex := flags.String("prefix")

	if prefixHex == "" {
		if binding != ident.AddressBound {
			return xerrors.New("a prefix is required for a policy binding")
		}

		cfg, err := a.loadConfig(flags)
		if err != nil {
			return err
		}

		acc, err := a.loadAccount(cfg)
		if err != nil {
			return err
		}

		prefixHex = acc.Address().String()
	}

	nonceHex := flags.String("nonce")

	if nonceHex == "" {
		nonce, err := ident.NewNonce(crypto.CryptographicRandomGenerator{}, ident.NonceSize)
		if err != nil {
			return err
		}

		nonceHex = ident.EncodeHex(nonce)
	}

	id, err := ident.DeriveHex(prefixHex, nonceHex)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Binding:    %v\n", binding)
	fmt.Fprintf(a.out, "Nonce:      %s\n", nonceHex)
	fmt.Fprintf(a.out, "Identifier: %s\n", ident.EncodeHex(id))

	return nil
}

func (a action) identExtract(flags cli.Flags) error {
	var data []byte
	var err error

	switch {
	case flags.String("file") != "":
		data, err = os.ReadFile(flags.String("file"))
		if err != nil {
			return xerrors.Errorf("failed to read object: %v", err)
		}
	case flags.String("blob") != "":
		cfg, err := a.loadConfig(flags)
		if err != nil {
			return err
		}

		client := walrus.NewClient(cfg.Blob.Publisher, cfg.Blob.Aggregator, cfg.Blob.Timeout)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		data, err = client.Get(ctx, blob.ID(flags.String("blob")))
		if err != nil {
			return xerrors.Errorf("failed to fetch object: %w", err)
		}
	default:
		return xerrors.New("either --file or --blob is required")
	}

	id, err := envelope.ExtractIdentifier(data)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, ident.EncodeHex(id))

	return nil
}
