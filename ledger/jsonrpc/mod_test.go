package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/core/store/kv"
	"go.dedis.ch/sealbox/ident"
	"go.dedis.ch/sealbox/internal/testing/fake"
	"go.dedis.ch/sealbox/ledger"
	"go.dedis.ch/sealbox/ledger/local"
	"go.dedis.ch/sealbox/ledger/policy"
	"golang.org/x/xerrors"
)

func TestClient_RoundTrip(t *testing.T) {
	l, client := makeClient(t)
	ctx := context.Background()

	owner := account.Generate(nil)
	member := account.Generate(nil)

	nonce, err := client.GetNonce(ctx, owner.Address())
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)

	tx, err := ledger.NewTransaction(owner, nonce, policy.FnCreateAllowlist,
		ledger.NewArg(policy.NameArg, []byte("team")))
	require.NoError(t, err)

	receipt, err := client.Submit(ctx, tx)
	require.NoError(t, err)
	require.Len(t, receipt.Created, 2)

	_, err = client.Submit(ctx, tx)
	require.True(t, xerrors.Is(err, ledger.ErrInvalidTransaction))

	listID, capID := receipt.Created[0], receipt.Created[1]

	tx, err = ledger.NewTransaction(owner, 1, policy.FnAddMember,
		ledger.NewArg(policy.CapArg, capID.Bytes()),
		ledger.NewArg(policy.MemberArg, member.Address().Bytes()))
	require.NoError(t, err)

	_, err = client.Submit(ctx, tx)
	require.NoError(t, err)

	obj, err := client.GetObject(ctx, listID)
	require.NoError(t, err)

	list, err := policy.DecodeAllowlist(obj)
	require.NoError(t, err)
	require.Equal(t, []account.Address{member.Address()}, list.Members)

	_, err = client.GetObject(ctx, ledger.ObjectID{})
	require.True(t, xerrors.Is(err, ledger.ErrNotFound))

	caps, err := client.OwnedObjects(ctx, owner.Address(), policy.TypeCap)
	require.NoError(t, err)
	require.Equal(t, []ledger.ObjectID{capID}, caps)

	call := ledger.ApproveCall{
		PackageID:  l.PackageID(),
		Function:   policy.FnApproveAllowlist,
		Identifier: ident.NewPolicyBinder(listID[:]).Bind([]byte{1, 2, 3, 4, 5}),
		Object:     listID,
	}

	require.NoError(t, client.Approve(ctx, member.Address(), call))

	err = client.Approve(ctx, owner.Address(), call)
	require.True(t, xerrors.Is(err, ledger.ErrAccessDenied))
}

func TestServer_BadRequests(t *testing.T) {
	srv := NewServer(badService{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	resp := post(t, srv, []byte("{"))
	require.Equal(t, CodeParseError, resp.Error.Code)

	resp = post(t, srv, []byte(`{"jsonrpc":"1.0","id":1}`))
	require.Equal(t, CodeInvalidRequest, resp.Error.Code)
	require.Equal(t, uint64(1), resp.ID)

	resp = post(t, srv, []byte(`{"jsonrpc":"2.0","id":2,"method":"unknown"}`))
	require.Equal(t, CodeMethodNotFound, resp.Error.Code)

	resp = post(t, srv, []byte(`{"jsonrpc":"2.0","id":3,"method":"sealbox_getObject"}`))
	require.Equal(t, CodeInvalidParams, resp.Error.Code)

	resp = post(t, srv, []byte(`{"jsonrpc":"2.0","id":3,"method":"sealbox_getObject","params":{"id":"0xZZ"}}`))
	require.Equal(t, CodeInvalidParams, resp.Error.Code)

	resp = post(t, srv, []byte(`{"jsonrpc":"2.0","id":4,"method":"sealbox_getNonce","params":{}}`))
	require.Equal(t, CodeInternal, resp.Error.Code)
	require.Equal(t, fake.GetError().Error(), resp.Error.Message)
}

func TestClient_BadServer(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)

	_, err := client.GetNonce(ctx, account.Address{})
	require.EqualError(t, err, "failed to get nonce: unexpected status 500 Internal Server Error")

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv2.Close()

	client = NewClient(srv2.URL, 0)

	_, err = client.GetNonce(ctx, account.Address{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode response: ")

	client = NewClient("http://127.0.0.1:0", 0)
	_, err = client.GetNonce(ctx, account.Address{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed: ")
}

func TestError(t *testing.T) {
	err := errorOf(xerrors.Errorf("nope: %w", ledger.ErrAccessDenied))
	require.Equal(t, CodeAccessDenied, err.Code)
	require.EqualError(t, err, "rpc error -32001: nope: access denied")
	require.True(t, xerrors.Is(err, ledger.ErrAccessDenied))

	err = errorOf(xerrors.Errorf("0x00: %w", ledger.ErrNotFound))
	require.Equal(t, CodeNotFound, err.Code)
	require.True(t, xerrors.Is(err, ledger.ErrNotFound))

	err = errorOf(ledger.ErrInvalidTransaction)
	require.Equal(t, CodeInvalidTransaction, err.Code)

	err = errorOf(fake.GetError())
	require.Equal(t, CodeInternal, err.Code)
	require.Nil(t, err.Unwrap())
}

// -----------------------------------------------------------------------------
// Utility functions

func makeClient(t *testing.T) (*local.Ledger, *Client) {
	db, err := kv.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	l := local.NewLedger(db, local.DefaultPackageID())

	srv := httptest.NewServer(NewServer(l))
	t.Cleanup(srv.Close)

	return l, NewClient(srv.URL, 0)
}

func post(t *testing.T, srv http.Handler, body []byte) Response {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)

	return resp
}

type badService struct {
	ledger.Service
}

func (badService) GetNonce(context.Context, account.Address) (uint64, error) {
	return 0, fake.GetError()
}
