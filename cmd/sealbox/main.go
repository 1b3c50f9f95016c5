// Package main implements the sealbox CLI. It encrypts small secrets under a
// threshold committee, publishes them on a blob store and releases them to
// the identities that the ledger authorizes.
//
// Unix example:
//
//	# Start a local development network
//	sealbox serve
//
//	# Encrypt a secret only the current account can decrypt
//	sealbox account new
//	sealbox secret encrypt --name api-key --value s3cr3t
//	sealbox secret decrypt --name api-key
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/sealbox/cli"
	"go.dedis.ch/sealbox/cli/ucli"
	"go.dedis.ch/sealbox/config"
)

var builder cli.Builder = ucli.NewBuilder("sealbox", nil, cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to the configuration file",
	EnvVars: []string{"SEALBOX_CONFIG"},
	Value:   config.DefaultPath,
})

var printer io.Writer = os.Stderr

func main() {
	err := run(os.Args,
		accountInit{},
		identInit{},
		secretInit{},
		allowlistInit{},
		blobInit{},
		committeeInit{},
		serveInit{},
	)
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
	}
}

func run(args []string, inits ...cli.Initializer) error {
	for _, init := range inits {
		init.SetCommands(builder)
	}

	app := builder.Build()
	err := app.Run(args)
	if err != nil {
		return err
	}

	return nil
}
