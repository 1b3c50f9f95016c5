package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/sealbox/cli"
	"go.dedis.ch/sealbox/seal/keyserver"
	"golang.org/x/xerrors"
)

// committeeInit is the initializer of the committee commands.
//
// - implements cli.Initializer
type committeeInit struct{}

// SetCommands implements cli.Initializer.
func (committeeInit) SetCommands(builder cli.Builder) {
	a := newAction()

	cmd := builder.SetCommand("committee")
	cmd.SetDescription("manage the key servers committee")

	sub := cmd.SetSubCommand("new")
	sub.SetDescription("generate the keys of a committee hosted by a node")
	sub.SetFlags(
		cli.IntFlag{
			Name:  "n",
			Usage: "number of key servers",
			Value: 3,
		},
		cli.IntFlag{
			Name:  "threshold",
			Usage: "number of key servers required to decrypt, the configured one if zero",
		},
		cli.StringFlag{
			Name:  "url",
			Usage: "base URL of the node hosting the key servers",
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "path to the committee file, the configured one if empty",
		},
		cli.BoolFlag{
			Name:  "force",
			Usage: "overwrite an existing committee file",
		},
	)
	sub.SetAction(a.committeeNew)

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print the public description of the committee")
	sub.SetAction(a.committeeShow)
}

func (a action) committeeNew(flags cli.Flags) error {
	cfg, err := a.loadConfig(flags)
	if err != nil {
		return err
	}

	threshold := flags.Int("threshold")
	if threshold == 0 {
		threshold = cfg.Seal.Threshold
	}

	url := flags.String("url")
	if url == "" {
		url = "http://" + cfg.Serve.Listen
	}

	out := flags.Path("out")
	if out == "" {
		out = cfg.Seal.Committee
	}

	_, err = os.Stat(out)
	if err == nil && !flags.Bool("force") {
		return xerrors.Errorf("committee '%s' already exists", out)
	}

	committee, err := writeCommittee(out, flags.Int("n"), threshold, url)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created committee %d-out-of-%d in %s\n",
		committee.Threshold, len(committee.Members), out)

	return nil
}

func (a action) committeeShow(flags cli.Flags) error {
	cfg, err := a.loadConfig(flags)
	if err != nil {
		return err
	}

	committee, err := cfg.Committee()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Threshold: %d\n", committee.Threshold)

	for _, m := range committee.Members {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", m.ID, m.URL, m.PublicKey)
	}

	return nil
}

func writeCommittee(path string, n, threshold int, url string) (keyserver.Committee, error) {
	committee, err := keyserver.NewCommittee(n, threshold, url, random.New())
	if err != nil {
		return committee, err
	}

	err = os.MkdirAll(filepath.Dir(path), 0700)
	if err != nil {
		return committee, xerrors.Errorf("failed to create folder: %v", err)
	}

	err = committee.Save(path)
	if err != nil {
		return committee, err
	}

	return committee, nil
}
