package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/cli"
	"go.dedis.ch/sealbox/ledger"
	"golang.org/x/xerrors"
)

// allowlistInit is the initializer of the allowlist commands.
//
// - implements cli.Initializer
type allowlistInit struct{}

// SetCommands implements cli.Initializer.
func (allowlistInit) SetCommands(builder cli.Builder) {
	a := newAction()

	cmd := builder.SetCommand("allowlist")
	cmd.SetDescription("manage the allowlists of the policy-bound secrets")

	sub := cmd.SetSubCommand("create")
	sub.SetDescription("create an allowlist owned by the account")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "name",
			Usage:    "name of the allowlist",
			Required: true,
		},
	)
	sub.SetAction(a.allowlistCreate)

	memberFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "name",
			Usage: "name of the allowlist in the results file",
		},
		cli.StringFlag{
			Name:  "cap",
			Usage: "ID of the admin capability of the allowlist",
		},
		cli.StringFlag{
			Name:     "member",
			Usage:    "address of the member",
			Required: true,
		},
	}

	sub = cmd.SetSubCommand("add")
	sub.SetDescription("add a member to an allowlist")
	sub.SetFlags(memberFlags...)
	sub.SetAction(a.allowlistAdd)

	sub = cmd.SetSubCommand("remove")
	sub.SetDescription("remove a member from an allowlist")
	sub.SetFlags(memberFlags...)
	sub.SetAction(a.allowlistRemove)

	sub = cmd.SetSubCommand("caps")
	sub.SetDescription("list the allowlists administrated by the account")
	sub.SetAction(a.allowlistCaps)
}

func (a action) allowlistCreate(flags cli.Flags) error {
	env, err := a.buildEnv(flags)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	listID, capID, err := env.CreateAllowlist(ctx, flags.String("name"))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Allowlist: %v\n", listID)
	fmt.Fprintf(a.out, "Cap:       %v\n", capID)

	return nil
}

func (a action) allowlistAdd(flags cli.Flags) error {
	return a.updateMember(flags, true)
}

func (a action) allowlistRemove(flags cli.Flags) error {
	return a.updateMember(flags, false)
}

func (a action) updateMember(flags cli.Flags, add bool) error {
	env, err := a.buildEnv(flags)
	if err != nil {
		return err
	}

	value, err := a.inputs(flags, env.Results, flags.String("name")).Require("cap")
	if err != nil {
		return err
	}

	capID, err := ledger.ParseObjectID(value)
	if err != nil {
		return xerrors.Errorf("invalid cap: %v", err)
	}

	member, err := account.ParseAddress(flags.String("member"))
	if err != nil {
		return xerrors.Errorf("invalid member: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if add {
		return env.AddMember(ctx, capID, member)
	}

	return env.RemoveMember(ctx, capID, member)
}

func (a action) allowlistCaps(flags cli.Flags) error {
	env, err := a.buildEnv(flags)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	caps, err := env.ResolveCapabilities(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "NAME\tALLOWLIST\tCAP\tMEMBERS")

	for _, c := range caps {
		fmt.Fprintf(w, "%s\t%v\t%v\t%d\n", c.Allowlist.Name, c.Allowlist.ID,
			c.Cap.ID, len(c.Allowlist.Members))
	}

	return w.Flush()
}
