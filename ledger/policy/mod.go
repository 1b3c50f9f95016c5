// Package policy implements the policy contract of the ledger. It manages the
// allowlists, their admin capabilities and the stored records, and it provides
// the approve functions that recompute an identifier from its prefix and nonce
// before granting access.
package policy

import (
	"bytes"
	"encoding/binary"

	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/core/store"
	"go.dedis.ch/sealbox/crypto"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/ledger"
	"golang.org/x/xerrors"
)

// commands defines the commands of the policy contract. This interface helps
// in testing the contract.
type commands interface {
	createAllowlist(snap store.Snapshot, step *Step) error
	addMember(snap store.Snapshot, step *Step) error
	removeMember(snap store.Snapshot, step *Step) error
	publishRecord(snap store.Snapshot, step *Step) error
}

const (
	// FnCreateAllowlist creates an allowlist and its admin capability.
	FnCreateAllowlist = "create_allowlist"

	// FnAddMember adds a member to an allowlist.
	FnAddMember = "add_member"

	// FnRemoveMember removes a member from an allowlist.
	FnRemoveMember = "remove_member"

	// FnPublishRecord publishes a stored record.
	FnPublishRecord = "publish_record"

	// FnApprove is the approve function of the address-bound identifiers.
	FnApprove = "seal_approve"

	// FnApproveAllowlist is the approve function of the policy-bound
	// identifiers.
	FnApproveAllowlist = "seal_approve_allowlist"

	// FnApproveRecord is the approve function that reads a stored record.
	FnApproveRecord = "seal_approve_record"
)

const (
	// NameArg is the argument's name in the transaction that contains the
	// name of the allowlist or of the record.
	NameArg = "policy:name"

	// CapArg is the argument's name in the transaction that contains the
	// identifier of the admin capability.
	CapArg = "policy:cap"

	// MemberArg is the argument's name in the transaction that contains the
	// address of the member to add or remove.
	MemberArg = "policy:member"

	// BindingArg is the argument's name in the transaction that contains the
	// binding of the record.
	BindingArg = "policy:binding"

	// PrefixArg is the argument's name in the transaction that contains the
	// prefix of the identifier.
	PrefixArg = "policy:prefix"

	// NonceArg is the argument's name in the transaction that contains the
	// nonce of the identifier.
	NonceArg = "policy:nonce"

	// BlobArg is the argument's name in the transaction that contains the
	// blob ID of the encrypted object.
	BlobArg = "policy:blob"
)

// Step is the execution step of a transaction. It allocates the identifiers of
// the objects the transaction creates.
type Step struct {
	Tx ledger.Transaction

	created []ledger.ObjectID
}

// NewStep returns the step of the transaction.
func NewStep(tx ledger.Transaction) *Step {
	return &Step{Tx: tx}
}

// NewObjectID returns a new identifier, derived from the transaction digest and
// the number of objects created so far.
func (s *Step) NewObjectID() ledger.ObjectID {
	counter := make([]byte, 8)
	binary.LittleEndian.PutUint64(counter, uint64(len(s.created)))

	var id ledger.ObjectID
	copy(id[:], crypto.Digest(crypto.NewSha256Factory(), s.Tx.Digest(), counter))

	s.created = append(s.created, id)

	return id
}

// Created returns the identifiers of the objects created by the step.
func (s *Step) Created() []ledger.ObjectID {
	return append([]ledger.ObjectID{}, s.created...)
}

// Contract is the policy contract.
type Contract struct {
	cmd commands
}

// NewContract returns a new policy contract.
func NewContract() Contract {
	return Contract{cmd: policyCommand{}}
}

// Execute runs the function of the transaction on the snapshot.
func (c Contract) Execute(snap store.Snapshot, step *Step) error {
	fn := step.Tx.Function

	var err error

	switch fn {
	case FnCreateAllowlist:
		err = c.cmd.createAllowlist(snap, step)
	case FnAddMember:
		err = c.cmd.addMember(snap, step)
	case FnRemoveMember:
		err = c.cmd.removeMember(snap, step)
	case FnPublishRecord:
		err = c.cmd.publishRecord(snap, step)
	default:
		return xerrors.Errorf("unknown function: %s", fn)
	}

	if err != nil {
		return xerrors.Errorf("failed to %s: %w", fn, err)
	}

	return nil
}

// Approve runs the approve function of the call as the sender. It never
// modifies the store.
func (c Contract) Approve(snap store.Readable, sender account.Address, call ledger.ApproveCall) error {
	switch call.Function {
	case FnApprove:
		return approveAddress(sender, call.Identifier)
	case FnApproveAllowlist:
		return approveAllowlist(snap, sender, call)
	case FnApproveRecord:
		return approveRecord(snap, sender, call)
	default:
		return xerrors.Errorf("unknown approve function '%s'", call.Function)
	}
}

func approveAddress(sender account.Address, id ident.Identifier) error {
	_, ok := ident.NewAddressBinder(sender[:]).Matches(id)
	if !ok {
		return xerrors.Errorf("identifier %v is not bound to %v: %w",
			id, sender, ledger.ErrAccessDenied)
	}

	return nil
}

func approveAllowlist(snap store.Readable, sender account.Address, call ledger.ApproveCall) error {
	obj, err := GetObject(snap, call.Object)
	if err != nil {
		return xerrors.Errorf("allowlist: %w", err)
	}

	list, err := DecodeAllowlist(obj)
	if err != nil {
		return xerrors.Errorf("%v: %w", err, ledger.ErrAccessDenied)
	}

	_, ok := ident.NewPolicyBinder(list.ID[:]).Matches(call.Identifier)
	if !ok {
		return xerrors.Errorf("identifier %v is not bound to allowlist %v: %w",
			call.Identifier, list.ID, ledger.ErrAccessDenied)
	}

	if !list.HasMember(sender) {
		return xerrors.Errorf("%v is not a member of %v: %w",
			sender, list.ID, ledger.ErrAccessDenied)
	}

	return nil
}

func approveRecord(snap store.Readable, sender account.Address, call ledger.ApproveCall) error {
	obj, err := GetObject(snap, call.Object)
	if err != nil {
		return xerrors.Errorf("record: %w", err)
	}

	rec, err := DecodeRecord(obj)
	if err != nil {
		return xerrors.Errorf("%v: %w", err, ledger.ErrAccessDenied)
	}

	if !rec.Identifier().Equal(call.Identifier) {
		return xerrors.Errorf("identifier %v does not match record %v: %w",
			call.Identifier, rec.ID, ledger.ErrAccessDenied)
	}

	switch rec.Binding {
	case ident.AddressBound:
		if rec.Owner != sender || !bytes.Equal(rec.Prefix, sender[:]) {
			return xerrors.Errorf("%v is not the owner of %v: %w",
				sender, rec.ID, ledger.ErrAccessDenied)
		}

		return nil
	case ident.PolicyBound:
		listID, err := ledger.ObjectIDFromBytes(rec.Prefix)
		if err != nil {
			return xerrors.Errorf("invalid policy prefix: %v: %w",
				err, ledger.ErrAccessDenied)
		}

		call.Function = FnApproveAllowlist
		call.Object = listID

		return approveAllowlist(snap, sender, call)
	default:
		return xerrors.Errorf("unknown binding %v: %w",
			rec.Binding, ledger.ErrAccessDenied)
	}
}

// policyCommand implements the commands of the policy contract.
//
// - implements commands
type policyCommand struct{}

// createAllowlist implements commands. It creates an empty allowlist and the
// admin capability owned by the sender.
func (policyCommand) createAllowlist(snap store.Snapshot, step *Step) error {
	name := step.Tx.GetArg(NameArg)
	if len(name) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", NameArg)
	}

	list := Allowlist{
		ID:   step.NewObjectID(),
		Name: string(name),
	}

	err := putObject(snap, ledger.Object{ID: list.ID, Type: TypeAllowlist, Owner: step.Tx.Sender}, list)
	if err != nil {
		return xerrors.Errorf("failed to store allowlist: %v", err)
	}

	c := Cap{
		ID:          step.NewObjectID(),
		AllowlistID: list.ID,
		Owner:       step.Tx.Sender,
	}

	err = putObject(snap, ledger.Object{ID: c.ID, Type: TypeCap, Owner: c.Owner}, c)
	if err != nil {
		return xerrors.Errorf("failed to store cap: %v", err)
	}

	sealbox.Logger.Info().
		Str("contract", "policy").
		Stringer("allowlist", list.ID).
		Stringer("cap", c.ID).
		Msgf("allowlist '%s' created", list.Name)

	return nil
}

// addMember implements commands. It adds the member to the allowlist of the
// capability. Adding an existing member is a no-op.
func (policyCommand) addMember(snap store.Snapshot, step *Step) error {
	list, member, err := loadForUpdate(snap, step)
	if err != nil {
		return err
	}

	if list.HasMember(member) {
		return nil
	}

	list.Members = append(list.Members, member)

	return storeAllowlist(snap, list)
}

// removeMember implements commands. It removes the member from the allowlist
// of the capability. Removing a non-member is a no-op.
func (policyCommand) removeMember(snap store.Snapshot, step *Step) error {
	list, member, err := loadForUpdate(snap, step)
	if err != nil {
		return err
	}

	if !list.HasMember(member) {
		return nil
	}

	members := make([]account.Address, 0, len(list.Members))
	for _, m := range list.Members {
		if m != member {
			members = append(members, m)
		}
	}

	list.Members = members

	return storeAllowlist(snap, list)
}

// publishRecord implements commands. It stores a record after checking that
// the prefix is consistent with the binding.
func (policyCommand) publishRecord(snap store.Snapshot, step *Step) error {
	binding, err := ident.ParseBinding(string(step.Tx.GetArg(BindingArg)))
	if err != nil {
		return xerrors.Errorf("invalid binding: %v", err)
	}

	prefix := step.Tx.GetArg(PrefixArg)
	if len(prefix) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", PrefixArg)
	}

	nonce := step.Tx.GetArg(NonceArg)
	if len(nonce) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", NonceArg)
	}

	sender := step.Tx.Sender

	switch binding {
	case ident.AddressBound:
		if !bytes.Equal(prefix, sender[:]) {
			return xerrors.Errorf("prefix is not the sender address: %w",
				ledger.ErrAccessDenied)
		}
	case ident.PolicyBound:
		listID, err := ledger.ObjectIDFromBytes(prefix)
		if err != nil {
			return xerrors.Errorf("invalid policy prefix: %v", err)
		}

		obj, err := GetObject(snap, listID)
		if err != nil {
			return xerrors.Errorf("allowlist: %w", err)
		}

		_, err = DecodeAllowlist(obj)
		if err != nil {
			return err
		}
	}

	rec := Record{
		ID:      step.NewObjectID(),
		Owner:   sender,
		Binding: binding,
		Prefix:  prefix,
		Nonce:   nonce,
		BlobID:  string(step.Tx.GetArg(BlobArg)),
		Name:    string(step.Tx.GetArg(NameArg)),
	}

	err = putObject(snap, ledger.Object{ID: rec.ID, Type: TypeRecord, Owner: sender}, rec)
	if err != nil {
		return xerrors.Errorf("failed to store record: %v", err)
	}

	sealbox.Logger.Info().
		Str("contract", "policy").
		Stringer("record", rec.ID).
		Stringer("identifier", rec.Identifier()).
		Msg("record published")

	return nil
}

func loadForUpdate(snap store.Snapshot, step *Step) (Allowlist, account.Address, error) {
	capID, err := ledger.ObjectIDFromBytes(step.Tx.GetArg(CapArg))
	if err != nil {
		return Allowlist{}, account.Address{}, xerrors.Errorf("invalid cap: %v", err)
	}

	member, err := account.AddressFromBytes(step.Tx.GetArg(MemberArg))
	if err != nil {
		return Allowlist{}, account.Address{}, xerrors.Errorf("invalid member: %v", err)
	}

	obj, err := GetObject(snap, capID)
	if err != nil {
		return Allowlist{}, account.Address{}, xerrors.Errorf("cap: %w", err)
	}

	c, err := DecodeCap(obj)
	if err != nil {
		return Allowlist{}, account.Address{}, err
	}

	if c.Owner != step.Tx.Sender {
		return Allowlist{}, account.Address{}, xerrors.Errorf("%v does not own cap %v: %w",
			step.Tx.Sender, c.ID, ledger.ErrAccessDenied)
	}

	obj, err = GetObject(snap, c.AllowlistID)
	if err != nil {
		return Allowlist{}, account.Address{}, xerrors.Errorf("allowlist: %w", err)
	}

	list, err := DecodeAllowlist(obj)
	if err != nil {
		return Allowlist{}, account.Address{}, err
	}

	return list, member, nil
}

func storeAllowlist(snap store.Snapshot, list Allowlist) error {
	obj, err := GetObject(snap, list.ID)
	if err != nil {
		return xerrors.Errorf("allowlist: %w", err)
	}

	err = putObject(snap, obj, list)
	if err != nil {
		return xerrors.Errorf("failed to store allowlist: %v", err)
	}

	return nil
}
