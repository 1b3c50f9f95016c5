package workflow

import (
	"context"

	"go.dedis.ch/sealbox/blob"
	"go.dedis.ch/sealbox/envelope"
	_ "go.dedis.ch/sealbox/envelope/json"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/ledger"
	"go.dedis.ch/sealbox/ledger/policy"
	"go.dedis.ch/sealbox/results"
	"go.dedis.ch/sealbox/seal"
	"go.dedis.ch/sealbox/session"
	"golang.org/x/xerrors"
)

// Target describes who is allowed to decrypt a secret.
type Target struct {
	Binding ident.Binding
	// Allowlist is the policy object of a policy-bound secret.
	Allowlist ledger.ObjectID
	// Name is the label of the secret in the record and the results.
	Name string
}

// Published is the outcome of the encrypt-and-publish workflow.
type Published struct {
	Identifier ident.Identifier
	Prefix     []byte
	Nonce      []byte
	BlobID     blob.ID
	Record     ledger.ObjectID
}

// EncryptAndPublish encrypts the secret under a fresh identifier bound to the
// target, stores the encrypted object in the blob store and publishes the
// record on the ledger.
func (env Env) EncryptAndPublish(ctx context.Context, secret []byte, target Target) (Published, error) {
	var binder ident.Binder

	switch target.Binding {
	case ident.AddressBound:
		addr := env.Account.Address()
		binder = ident.NewAddressBinder(addr[:])
	case ident.PolicyBound:
		obj, err := env.Ledger.GetObject(ctx, target.Allowlist)
		if err != nil {
			return Published{}, xerrors.Errorf("allowlist: %w", err)
		}

		_, err = policy.DecodeAllowlist(obj)
		if err != nil {
			return Published{}, err
		}

		binder = ident.NewPolicyBinder(target.Allowlist[:])
	default:
		return Published{}, xerrors.Errorf("unknown binding %v", target.Binding)
	}

	nonce, err := ident.NewNonce(env.random(), ident.NonceSize)
	if err != nil {
		return Published{}, err
	}

	id := binder.Bind(nonce)

	env.printf("Encrypting under %s-bound identifier %v", binder.Binding(), id)

	data, err := env.Seal.Encrypt(ctx, seal.EncryptRequest{
		Threshold:  env.Threshold,
		PackageID:  env.PackageID,
		Identifier: id,
		Plaintext:  secret,
	})
	if err != nil {
		return Published{}, xerrors.Errorf("failed to encrypt: %w", err)
	}

	blobID, err := env.Blobs.Put(ctx, data, env.Epochs)
	if err != nil {
		return Published{}, xerrors.Errorf("failed to store: %w", err)
	}

	env.printf("Stored encrypted object as blob %v for %d epochs", blobID, env.Epochs)

	receipt, err := env.Submit(ctx, policy.FnPublishRecord,
		ledger.NewArg(policy.BindingArg, []byte(binder.Binding().String())),
		ledger.NewArg(policy.PrefixArg, binder.Prefix()),
		ledger.NewArg(policy.NonceArg, nonce),
		ledger.NewArg(policy.BlobArg, []byte(blobID)),
		ledger.NewArg(policy.NameArg, []byte(target.Name)),
	)
	if err != nil {
		return Published{}, err
	}

	if len(receipt.Created) == 0 {
		return Published{}, xerrors.New("no record created")
	}

	pub := Published{
		Identifier: id,
		Prefix:     binder.Prefix(),
		Nonce:      nonce,
		BlobID:     blobID,
		Record:     receipt.Created[0],
	}

	env.printf("Published record %v", pub.Record)

	entry := results.Entry{
		Name:       target.Name,
		Binding:    binder.Binding().String(),
		Prefix:     ident.EncodeHex(pub.Prefix),
		Nonce:      ident.EncodeHex(nonce),
		Identifier: ident.EncodeHex(id),
		BlobID:     blobID.String(),
		Record:     pub.Record.String(),
	}

	if target.Binding == ident.PolicyBound {
		entry.Allowlist = target.Allowlist.String()
	}

	err = env.saveResult(entry)
	if err != nil {
		return pub, err
	}

	return pub, nil
}

// Lookup describes the secret to fetch. When the record is set, the other
// fields are read from the ledger. Otherwise the blob ID is required, and the
// prefix and the nonce are optional as the identifier is in the header of the
// encrypted object.
type Lookup struct {
	Record  ledger.ObjectID
	BlobID  blob.ID
	Binding ident.Binding
	Prefix  []byte
	Nonce   []byte
}

// FetchAndDecrypt fetches the encrypted object of the secret, proves the
// access of the account with a fresh session and returns the plaintext.
func (env Env) FetchAndDecrypt(ctx context.Context, lookup Lookup) ([]byte, error) {
	proof := ledger.ApproveCall{PackageID: env.PackageID}

	if !lookup.Record.IsZero() {
		obj, err := env.Ledger.GetObject(ctx, lookup.Record)
		if err != nil {
			return nil, xerrors.Errorf("record: %w", err)
		}

		rec, err := policy.DecodeRecord(obj)
		if err != nil {
			return nil, err
		}

		lookup.BlobID = blob.ID(rec.BlobID)
		lookup.Binding = rec.Binding
		lookup.Prefix = rec.Prefix
		lookup.Nonce = rec.Nonce

		proof.Function = policy.FnApproveRecord
		proof.Object = rec.ID
	}

	if lookup.BlobID == "" {
		return nil, xerrors.New("missing blob ID")
	}

	data, err := env.Blobs.Get(ctx, lookup.BlobID)
	if err != nil {
		return nil, xerrors.Errorf("failed to fetch: %w", err)
	}

	env.printf("Fetched blob %v", lookup.BlobID)

	id, err := envelope.ExtractIdentifier(data)
	if err != nil {
		return nil, err
	}

	if len(lookup.Prefix) > 0 && len(lookup.Nonce) > 0 {
		expected := ident.Derive(lookup.Prefix, lookup.Nonce)
		if !expected.Equal(id) {
			return nil, xerrors.Errorf("identifier mismatch: expected %v, object has %v",
				expected, id)
		}
	}

	proof.Identifier = id

	if proof.Function == "" {
		err = env.fillProof(&proof, lookup)
		if err != nil {
			return nil, err
		}
	}

	sess, err := session.New(env.Account, env.PackageID, env.SessionTTL)
	if err != nil {
		return nil, xerrors.Errorf("failed to open session: %v", err)
	}

	logger := env.logger()
	logger.Debug().
		Str("session", sess.ID()).
		Str("function", proof.Function).
		Stringer("identifier", id).
		Msg("requesting keys")

	plaintext, err := env.Seal.Decrypt(ctx, seal.DecryptRequest{
		Object:  data,
		Proof:   proof,
		Session: sess,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to decrypt: %w", err)
	}

	env.printf("Decrypted %d bytes", len(plaintext))

	return plaintext, nil
}

func (env Env) fillProof(proof *ledger.ApproveCall, lookup Lookup) error {
	switch lookup.Binding {
	case ident.AddressBound:
		proof.Function = policy.FnApprove
	case ident.PolicyBound:
		prefix := lookup.Prefix
		if len(prefix) == 0 {
			if len(proof.Identifier) < ledger.ObjectIDSize {
				return xerrors.Errorf("identifier %v too short for a policy", proof.Identifier)
			}

			prefix = proof.Identifier[:ledger.ObjectIDSize]
		}

		listID, err := ledger.ObjectIDFromBytes(prefix)
		if err != nil {
			return xerrors.Errorf("invalid policy prefix: %v", err)
		}

		proof.Function = policy.FnApproveAllowlist
		proof.Object = listID
	default:
		return xerrors.Errorf("unknown binding %v", lookup.Binding)
	}

	return nil
}
