package keyserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/seal"
	"golang.org/x/xerrors"
)

const (
	// FetchPath is the path of the key requests.
	FetchPath = "/v1/fetch_key"

	// ServicePath is the path of the service description.
	ServicePath = "/v1/service"

	maxRequestSize = 1 << 20
)

type errorMessage struct {
	Error string `json:"error"`
}

// NewHandler returns the HTTP handler of the key server. The handler expects
// the paths to be relative, so it must be mounted with http.StripPrefix when
// it does not sit at the root.
func NewHandler(srv *Server) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(ServicePath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, xerrors.New("only GET is supported"))
			return
		}

		writeJSON(w, http.StatusOK, srv.Info())
	})

	mux.HandleFunc(FetchPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, xerrors.New("only POST is supported"))
			return
		}

		var req FetchRequest

		err := json.NewDecoder(io.LimitReader(r.Body, maxRequestSize)).Decode(&req)
		if err != nil {
			writeError(w, http.StatusBadRequest, xerrors.Errorf("failed to decode: %v", err))
			return
		}

		resp, err := srv.FetchKey(r.Context(), req)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, resp)
		case xerrors.Is(err, seal.ErrAccessDenied):
			writeError(w, http.StatusForbidden, err)
		case xerrors.Is(err, ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorMessage{Error: err.Error()})
}

// Client is a client of a remote key server.
//
// - implements keyserver.KeyServer
type Client struct {
	id     string
	url    string
	pubkey kyber.Point
	client *http.Client
}

// NewClient returns a client of the key server at the URL. The public key is
// the one the shares are encrypted to.
func NewClient(id, url string, pubkey kyber.Point, timeout time.Duration) *Client {
	return &Client{
		id:     id,
		url:    strings.TrimSuffix(url, "/"),
		pubkey: pubkey,
		client: &http.Client{Timeout: timeout},
	}
}

// Discover returns a client of the key server at the URL after reading its
// service description.
func Discover(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	client := NewClient("", url, nil, timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.url+ServicePath, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %v", err)
	}

	var info ServiceInfo

	err = client.do(req, &info)
	if err != nil {
		return nil, xerrors.Errorf("failed to discover '%s': %w", url, err)
	}

	pubkey, err := account.UnmarshalPublicKey(info.PublicKey)
	if err != nil {
		return nil, xerrors.Errorf("invalid service key: %v", err)
	}

	client.id = info.ID
	client.pubkey = pubkey

	return client, nil
}

// ID implements keyserver.KeyServer.
func (c *Client) ID() string {
	return c.id
}

// PublicKey implements keyserver.KeyServer.
func (c *Client) PublicKey() kyber.Point {
	return c.pubkey
}

// FetchKey implements keyserver.KeyServer. The denials of the remote server
// match seal.ErrAccessDenied.
func (c *Client) FetchKey(ctx context.Context, fetch FetchRequest) (FetchResponse, error) {
	data, err := json.Marshal(fetch)
	if err != nil {
		return FetchResponse{}, xerrors.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+FetchPath, bytes.NewReader(data))
	if err != nil {
		return FetchResponse{}, xerrors.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	var resp FetchResponse

	err = c.do(req, &resp)
	if err != nil {
		return resp, xerrors.Errorf("key server '%s': %w", c.id, err)
	}

	return resp, nil
}

func (c *Client) do(req *http.Request, v interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return xerrors.Errorf("request failed: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var msg errorMessage
		json.NewDecoder(resp.Body).Decode(&msg)

		switch resp.StatusCode {
		case http.StatusForbidden:
			return xerrors.Errorf("%s: %w", trimCause(msg.Error, seal.ErrAccessDenied),
				seal.ErrAccessDenied)
		case http.StatusBadRequest:
			return xerrors.Errorf("%s: %w", trimCause(msg.Error, ErrInvalidRequest),
				ErrInvalidRequest)
		default:
			return xerrors.Errorf("unexpected status %s: %s", resp.Status, msg.Error)
		}
	}

	err = json.NewDecoder(resp.Body).Decode(v)
	if err != nil {
		return xerrors.Errorf("failed to decode response: %v", err)
	}

	return nil
}

// trimCause removes the cause from the end of a remote error message, as it is
// wrapped again on this side.
func trimCause(msg string, cause error) string {
	return strings.TrimSuffix(msg, ": "+cause.Error())
}
