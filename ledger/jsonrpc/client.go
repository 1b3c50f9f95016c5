package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/ledger"
	"golang.org/x/xerrors"
)

// DefaultTimeout is the default timeout of the requests of a client.
const DefaultTimeout = 10 * time.Second

// Client is a client of a remote ledger.
//
// - implements ledger.Service
type Client struct {
	url     string
	client  *http.Client
	counter uint64
}

// NewClient returns a client of the ledger at the URL. A zero timeout uses the
// default one.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Submit implements ledger.Service.
func (c *Client) Submit(ctx context.Context, tx ledger.Transaction) (ledger.Receipt, error) {
	var receipt ledger.Receipt

	err := c.call(ctx, MethodSubmit, SubmitParams{Tx: tx}, &receipt)
	if err != nil {
		return receipt, xerrors.Errorf("failed to submit: %w", err)
	}

	return receipt, nil
}

// GetNonce implements ledger.Service.
func (c *Client) GetNonce(ctx context.Context, addr account.Address) (uint64, error) {
	var nonce uint64

	err := c.call(ctx, MethodGetNonce, NonceParams{Address: addr}, &nonce)
	if err != nil {
		return 0, xerrors.Errorf("failed to get nonce: %w", err)
	}

	return nonce, nil
}

// Approve implements ledger.Authorizer.
func (c *Client) Approve(ctx context.Context, sender account.Address, call ledger.ApproveCall) error {
	var ok bool

	err := c.call(ctx, MethodApprove, ApproveParams{Sender: sender, Call: call}, &ok)
	if err != nil {
		return xerrors.Errorf("failed to approve: %w", err)
	}

	return nil
}

// GetObject implements ledger.Service.
func (c *Client) GetObject(ctx context.Context, id ledger.ObjectID) (ledger.Object, error) {
	var obj ledger.Object

	err := c.call(ctx, MethodGetObject, ObjectParams{ID: id}, &obj)
	if err != nil {
		return obj, xerrors.Errorf("failed to get object: %w", err)
	}

	return obj, nil
}

// OwnedObjects implements ledger.Service.
func (c *Client) OwnedObjects(ctx context.Context, owner account.Address, typ string) ([]ledger.ObjectID, error) {
	var ids []ledger.ObjectID

	err := c.call(ctx, MethodOwnedObjects, OwnedParams{Owner: owner, Type: typ}, &ids)
	if err != nil {
		return nil, xerrors.Errorf("failed to list objects: %w", err)
	}

	return ids, nil
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return xerrors.Errorf("failed to marshal params: %v", err)
	}

	req := Request{
		JSONRPC: Version,
		ID:      atomic.AddUint64(&c.counter, 1),
		Method:  method,
		Params:  rawParams,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return xerrors.Errorf("failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %v", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return xerrors.Errorf("request failed: %v", err)
	}

	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return xerrors.Errorf("unexpected status %s", httpResp.Status)
	}

	var resp Response

	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	if err != nil {
		return xerrors.Errorf("failed to decode response: %v", err)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if resp.ID != req.ID {
		return xerrors.Errorf("mismatching response ID %d != %d", resp.ID, req.ID)
	}

	err = json.Unmarshal(resp.Result, result)
	if err != nil {
		return xerrors.Errorf("failed to decode result: %v", err)
	}

	return nil
}
