// Package jsonrpc exposes a ledger over JSON-RPC 2.0 on HTTP. The server
// serves any ledger.Service and the client implements ledger.Service on top of
// a remote endpoint, so that the workflows do not know which one they use.
package jsonrpc

import (
	"encoding/json"
	"fmt"

	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/ledger"
	"golang.org/x/xerrors"
)

// Version is the JSON-RPC version of the messages.
const Version = "2.0"

const (
	// MethodSubmit submits a transaction.
	MethodSubmit = "sealbox_submit"
	// MethodApprove runs an approve function.
	MethodApprove = "sealbox_approve"
	// MethodGetObject reads an object.
	MethodGetObject = "sealbox_getObject"
	// MethodOwnedObjects lists the objects owned by an address.
	MethodOwnedObjects = "sealbox_ownedObjects"
	// MethodGetNonce returns the next nonce of an address.
	MethodGetNonce = "sealbox_getNonce"
)

// Standard and application error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603

	CodeAccessDenied       = -32001
	CodeNotFound           = -32002
	CodeInvalidTransaction = -32003
)

// Request is a JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error. The ledger errors are mapped to application codes
// so that they survive the transport.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Unwrap returns the ledger error matching the code, if any.
func (e *Error) Unwrap() error {
	switch e.Code {
	case CodeAccessDenied:
		return ledger.ErrAccessDenied
	case CodeNotFound:
		return ledger.ErrNotFound
	case CodeInvalidTransaction:
		return ledger.ErrInvalidTransaction
	default:
		return nil
	}
}

// errorOf returns the JSON-RPC error of a ledger error.
func errorOf(err error) *Error {
	code := CodeInternal

	switch {
	case xerrors.Is(err, ledger.ErrAccessDenied):
		code = CodeAccessDenied
	case xerrors.Is(err, ledger.ErrNotFound):
		code = CodeNotFound
	case xerrors.Is(err, ledger.ErrInvalidTransaction):
		code = CodeInvalidTransaction
	}

	return &Error{Code: code, Message: err.Error()}
}

// SubmitParams are the parameters of sealbox_submit.
type SubmitParams struct {
	Tx ledger.Transaction `json:"tx"`
}

// ApproveParams are the parameters of sealbox_approve.
type ApproveParams struct {
	Sender account.Address    `json:"sender"`
	Call   ledger.ApproveCall `json:"call"`
}

// ObjectParams are the parameters of sealbox_getObject.
type ObjectParams struct {
	ID ledger.ObjectID `json:"id"`
}

// OwnedParams are the parameters of sealbox_ownedObjects.
type OwnedParams struct {
	Owner account.Address `json:"owner"`
	Type  string          `json:"type,omitempty"`
}

// NonceParams are the parameters of sealbox_getNonce.
type NonceParams struct {
	Address account.Address `json:"address"`
}
