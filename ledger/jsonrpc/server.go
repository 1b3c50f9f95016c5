package jsonrpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/ledger"
	"golang.org/x/xerrors"
)

const maxRequestSize = 1 << 20

type method func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Server is the HTTP handler serving a ledger.
//
// - implements http.Handler
type Server struct {
	service ledger.Service
	methods map[string]method
	logger  zerolog.Logger
}

// NewServer returns a handler that serves the ledger.
func NewServer(service ledger.Service) *Server {
	srv := &Server{
		service: service,
		logger:  sealbox.Logger.With().Str("role", "jsonrpc").Logger(),
	}

	srv.methods = map[string]method{
		MethodSubmit:       srv.submit,
		MethodApprove:      srv.approve,
		MethodGetObject:    srv.getObject,
		MethodOwnedObjects: srv.ownedObjects,
		MethodGetNonce:     srv.getNonce,
	}

	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST requests are supported", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		s.reply(w, Response{Error: &Error{Code: CodeParseError, Message: err.Error()}})
		return
	}

	var req Request

	err = json.Unmarshal(data, &req)
	if err != nil {
		s.reply(w, Response{Error: &Error{Code: CodeParseError, Message: err.Error()}})
		return
	}

	resp := Response{ID: req.ID}

	if req.JSONRPC != Version {
		resp.Error = &Error{Code: CodeInvalidRequest, Message: "unsupported version"}
		s.reply(w, resp)
		return
	}

	fn, found := s.methods[req.Method]
	if !found {
		resp.Error = &Error{Code: CodeMethodNotFound, Message: "unknown method " + req.Method}
		s.reply(w, resp)
		return
	}

	result, err := fn(r.Context(), req.Params)
	if err != nil {
		rpcErr, ok := err.(*Error)
		if !ok {
			rpcErr = errorOf(err)
		}

		s.logger.Debug().Str("method", req.Method).Err(err).Msg("request failed")

		resp.Error = rpcErr
		s.reply(w, resp)
		return
	}

	resp.Result, err = json.Marshal(result)
	if err != nil {
		resp.Error = &Error{Code: CodeInternal, Message: err.Error()}
	}

	s.reply(w, resp)
}

func (s *Server) reply(w http.ResponseWriter, resp Response) {
	resp.JSONRPC = Version

	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(resp)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func (s *Server) submit(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var params SubmitParams

	err := decodeParams(raw, &params)
	if err != nil {
		return nil, err
	}

	return s.service.Submit(ctx, params.Tx)
}

func (s *Server) approve(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var params ApproveParams

	err := decodeParams(raw, &params)
	if err != nil {
		return nil, err
	}

	err = s.service.Approve(ctx, params.Sender, params.Call)
	if err != nil {
		return nil, err
	}

	return true, nil
}

func (s *Server) getObject(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var params ObjectParams

	err := decodeParams(raw, &params)
	if err != nil {
		return nil, err
	}

	return s.service.GetObject(ctx, params.ID)
}

func (s *Server) ownedObjects(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var params OwnedParams

	err := decodeParams(raw, &params)
	if err != nil {
		return nil, err
	}

	return s.service.OwnedObjects(ctx, params.Owner, params.Type)
}

func (s *Server) getNonce(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var params NonceParams

	err := decodeParams(raw, &params)
	if err != nil {
		return nil, err
	}

	return s.service.GetNonce(ctx, params.Address)
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return &Error{Code: CodeInvalidParams, Message: "missing params"}
	}

	err := json.Unmarshal(raw, v)
	if err != nil {
		return &Error{
			Code:    CodeInvalidParams,
			Message: xerrors.Errorf("invalid params: %v", err).Error(),
		}
	}

	return nil
}
