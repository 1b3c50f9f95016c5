package main

import (
	"context"
	"fmt"
	"os"

	"go.dedis.ch/sealbox/blob"
	"go.dedis.ch/sealbox/blob/walrus"
	"go.dedis.ch/sealbox/cli"
	"golang.org/x/xerrors"
)

// blobInit is the initializer of the blob commands.
//
// - implements cli.Initializer
type blobInit struct{}

// SetCommands implements cli.Initializer.
func (blobInit) SetCommands(builder cli.Builder) {
	a := newAction()

	cmd := builder.SetCommand("blob")
	cmd.SetDescription("store and read raw blobs")

	sub := cmd.SetSubCommand("put")
	sub.SetDescription("store the content of a file")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "file",
			Usage:    "path to the file",
			Required: true,
		},
		cli.IntFlag{
			Name:  "epochs",
			Usage: "number of epochs the blob is stored",
		},
	)
	sub.SetAction(a.blobPut)

	sub = cmd.SetSubCommand("get")
	sub.SetDescription("read a blob")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "id",
			Usage:    "ID of the blob",
			Required: true,
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "path to the file to write, the standard output if empty",
		},
	)
	sub.SetAction(a.blobGet)
}

func (a action) blobPut(flags cli.Flags) error {
	cfg, err := a.loadConfig(flags)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(flags.String("file"))
	if err != nil {
		return xerrors.Errorf("failed to read file: %v", err)
	}

	epochs := cfg.Blob.Epochs
	if flags.Int("epochs") > 0 {
		epochs = flags.Int("epochs")
	}

	client := walrus.NewClient(cfg.Blob.Publisher, cfg.Blob.Aggregator, cfg.Blob.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	id, err := client.Put(ctx, data, epochs)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, id)

	return nil
}

func (a action) blobGet(flags cli.Flags) error {
	cfg, err := a.loadConfig(flags)
	if err != nil {
		return err
	}

	id, err := blob.ParseID(flags.String("id"))
	if err != nil {
		return err
	}

	client := walrus.NewClient(cfg.Blob.Publisher, cfg.Blob.Aggregator, cfg.Blob.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	data, err := client.Get(ctx, id)
	if err != nil {
		return err
	}

	if flags.String("out") == "" {
		_, err = a.out.Write(data)
		return err
	}

	err = os.WriteFile(flags.String("out"), data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write file: %v", err)
	}

	return nil
}
