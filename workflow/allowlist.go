package workflow

import (
	"context"
	"sort"
	"sync"

	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/ledger"
	"go.dedis.ch/sealbox/ledger/policy"
	"go.dedis.ch/sealbox/results"
	"golang.org/x/xerrors"
)

// CreateAllowlist creates an allowlist and returns its ID and the ID of its
// admin capability.
func (env Env) CreateAllowlist(ctx context.Context, name string) (ledger.ObjectID, ledger.ObjectID, error) {
	receipt, err := env.Submit(ctx, policy.FnCreateAllowlist,
		ledger.NewArg(policy.NameArg, []byte(name)))
	if err != nil {
		return ledger.ObjectID{}, ledger.ObjectID{}, err
	}

	if len(receipt.Created) != 2 {
		return ledger.ObjectID{}, ledger.ObjectID{},
			xerrors.Errorf("unexpected %d objects created", len(receipt.Created))
	}

	listID, capID := receipt.Created[0], receipt.Created[1]

	env.printf("Created allowlist %v with admin capability %v", listID, capID)

	err = env.saveResult(results.Entry{
		Name:      name,
		Allowlist: listID.String(),
		Cap:       capID.String(),
	})
	if err != nil {
		return listID, capID, err
	}

	return listID, capID, nil
}

// AddMember adds the member to the allowlist of the capability.
func (env Env) AddMember(ctx context.Context, capID ledger.ObjectID, member account.Address) error {
	_, err := env.Submit(ctx, policy.FnAddMember,
		ledger.NewArg(policy.CapArg, capID.Bytes()),
		ledger.NewArg(policy.MemberArg, member.Bytes()))
	if err != nil {
		return err
	}

	env.printf("Added %v", member)

	return nil
}

// RemoveMember removes the member from the allowlist of the capability.
func (env Env) RemoveMember(ctx context.Context, capID ledger.ObjectID, member account.Address) error {
	_, err := env.Submit(ctx, policy.FnRemoveMember,
		ledger.NewArg(policy.CapArg, capID.Bytes()),
		ledger.NewArg(policy.MemberArg, member.Bytes()))
	if err != nil {
		return err
	}

	env.printf("Removed %v", member)

	return nil
}

// Capability is an admin capability with the allowlist it manages.
type Capability struct {
	Cap       policy.Cap
	Allowlist policy.Allowlist
}

// ResolveCapabilities returns the admin capabilities owned by the account. The
// objects are fetched concurrently and the result is sorted by allowlist name,
// then by capability ID.
func (env Env) ResolveCapabilities(ctx context.Context) ([]Capability, error) {
	ids, err := env.Ledger.OwnedObjects(ctx, env.Account.Address(), policy.TypeCap)
	if err != nil {
		return nil, xerrors.Errorf("failed to list capabilities: %w", err)
	}

	caps := make([]Capability, len(ids))
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	wg.Add(len(ids))

	for i, id := range ids {
		go func(i int, id ledger.ObjectID) {
			defer wg.Done()

			caps[i], errs[i] = env.resolveCapability(ctx, id)
		}(i, id)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(caps, func(i, j int) bool {
		if caps[i].Allowlist.Name != caps[j].Allowlist.Name {
			return caps[i].Allowlist.Name < caps[j].Allowlist.Name
		}

		return caps[i].Cap.ID.String() < caps[j].Cap.ID.String()
	})

	return caps, nil
}

func (env Env) resolveCapability(ctx context.Context, id ledger.ObjectID) (Capability, error) {
	obj, err := env.Ledger.GetObject(ctx, id)
	if err != nil {
		return Capability{}, xerrors.Errorf("cap %v: %w", id, err)
	}

	c, err := policy.DecodeCap(obj)
	if err != nil {
		return Capability{}, err
	}

	obj, err = env.Ledger.GetObject(ctx, c.AllowlistID)
	if err != nil {
		return Capability{}, xerrors.Errorf("allowlist %v: %w", c.AllowlistID, err)
	}

	list, err := policy.DecodeAllowlist(obj)
	if err != nil {
		return Capability{}, err
	}

	return Capability{Cap: c, Allowlist: list}, nil
}
