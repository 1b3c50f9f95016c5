package policy

import (
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/core/store"
	"go.dedis.ch/sealbox/ledger"
	sjson "go.dedis.ch/sealbox/serde/json"
	"golang.org/x/xerrors"
)

var (
	objectPrefix = []byte("obj:")
	ownerPrefix  = []byte("own:")
)

func objectKey(id ledger.ObjectID) []byte {
	return append(append([]byte{}, objectPrefix...), id[:]...)
}

func ownerKey(addr account.Address) []byte {
	return append(append([]byte{}, ownerPrefix...), addr[:]...)
}

// GetObject reads the object from the store. It returns an error that matches
// ledger.ErrNotFound if it does not exist.
func GetObject(snap store.Readable, id ledger.ObjectID) (ledger.Object, error) {
	data, err := snap.Get(objectKey(id))
	if err != nil {
		return ledger.Object{}, xerrors.Errorf("failed to read object: %v", err)
	}

	if len(data) == 0 {
		return ledger.Object{}, xerrors.Errorf("%v: %w", id, ledger.ErrNotFound)
	}

	var obj ledger.Object

	err = sjson.NewContext().Unmarshal(data, &obj)
	if err != nil {
		return ledger.Object{}, xerrors.Errorf("failed to unmarshal object: %v", err)
	}

	return obj, nil
}

// OwnedObjects returns the identifiers of the objects of the type owned by the
// address, in creation order. An empty type matches any object.
func OwnedObjects(snap store.Readable, owner account.Address, typ string) ([]ledger.ObjectID, error) {
	ids, err := readOwned(snap, owner)
	if err != nil {
		return nil, err
	}

	res := make([]ledger.ObjectID, 0, len(ids))

	for _, id := range ids {
		obj, err := GetObject(snap, id)
		if err != nil {
			return nil, xerrors.Errorf("failed to get object %v: %v", id, err)
		}

		if typ == "" || obj.Type == typ {
			res = append(res, id)
		}
	}

	return res, nil
}

// putObject writes the object and indexes it under its owner when it is new.
func putObject(snap store.Snapshot, obj ledger.Object, v interface{}) error {
	ctx := sjson.NewContext()

	data, err := ctx.Marshal(v)
	if err != nil {
		return xerrors.Errorf("failed to marshal content: %v", err)
	}

	obj.Data = data

	prev, err := snap.Get(objectKey(obj.ID))
	if err != nil {
		return xerrors.Errorf("failed to read object: %v", err)
	}

	raw, err := ctx.Marshal(obj)
	if err != nil {
		return xerrors.Errorf("failed to marshal object: %v", err)
	}

	err = snap.Set(objectKey(obj.ID), raw)
	if err != nil {
		return xerrors.Errorf("failed to write object: %v", err)
	}

	if len(prev) > 0 {
		return nil
	}

	ids, err := readOwned(snap, obj.Owner)
	if err != nil {
		return err
	}

	ids = append(ids, obj.ID)

	raw, err = ctx.Marshal(ids)
	if err != nil {
		return xerrors.Errorf("failed to marshal index: %v", err)
	}

	err = snap.Set(ownerKey(obj.Owner), raw)
	if err != nil {
		return xerrors.Errorf("failed to write index: %v", err)
	}

	return nil
}

func readOwned(snap store.Readable, owner account.Address) ([]ledger.ObjectID, error) {
	data, err := snap.Get(ownerKey(owner))
	if err != nil {
		return nil, xerrors.Errorf("failed to read index: %v", err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var ids []ledger.ObjectID

	err = sjson.NewContext().Unmarshal(data, &ids)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal index: %v", err)
	}

	return ids, nil
}
