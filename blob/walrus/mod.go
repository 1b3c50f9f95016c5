// Package walrus implements a client of the publisher and aggregator HTTP API
// of a blob network, and the handler that serves the same API from a local
// blob store.
//
// Content is stored with PUT /v1/blobs?epochs=N and read with
// GET /v1/blobs/<id>.
package walrus

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.dedis.ch/sealbox/blob"
	"golang.org/x/xerrors"
)

// BlobsPath is the path of the blob API.
const BlobsPath = "/v1/blobs"

// maxBlobSize is the largest blob accepted by the handler and the client.
var maxBlobSize = 10 << 20

// BlobObject is the description of a newly stored blob.
type BlobObject struct {
	BlobID string `json:"blobId"`
	Size   int    `json:"size"`
}

// NewlyCreated is the response when the content was not known.
type NewlyCreated struct {
	BlobObject BlobObject `json:"blobObject"`
}

// AlreadyCertified is the response when the content was already stored.
type AlreadyCertified struct {
	BlobID string `json:"blobId"`
}

// StoreResponse is the response of the publisher. Exactly one of the fields is
// set.
type StoreResponse struct {
	NewlyCreated     *NewlyCreated     `json:"newlyCreated,omitempty"`
	AlreadyCertified *AlreadyCertified `json:"alreadyCertified,omitempty"`
}

// GetBlobID returns the ID of the blob in the response.
func (r StoreResponse) GetBlobID() (blob.ID, error) {
	switch {
	case r.NewlyCreated != nil && r.NewlyCreated.BlobObject.BlobID != "":
		return blob.ID(r.NewlyCreated.BlobObject.BlobID), nil
	case r.AlreadyCertified != nil && r.AlreadyCertified.BlobID != "":
		return blob.ID(r.AlreadyCertified.BlobID), nil
	default:
		return "", xerrors.New("response without blob ID")
	}
}

// Client is a client of a publisher and an aggregator.
//
// - implements blob.Store
type Client struct {
	publisher  string
	aggregator string
	client     *http.Client
}

// NewClient returns a client that stores the content with the publisher and
// reads it from the aggregator.
func NewClient(publisher, aggregator string, timeout time.Duration) *Client {
	return &Client{
		publisher:  strings.TrimSuffix(publisher, "/"),
		aggregator: strings.TrimSuffix(aggregator, "/"),
		client:     &http.Client{Timeout: timeout},
	}
}

// Put implements blob.Store.
func (c *Client) Put(ctx context.Context, data []byte, epochs int) (blob.ID, error) {
	err := blob.CheckEpochs(epochs)
	if err != nil {
		return "", err
	}

	url := c.publisher + BlobsPath + "?epochs=" + strconv.Itoa(epochs)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", xerrors.Errorf("failed to create request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", xerrors.Errorf("failed to store blob: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", xerrors.Errorf("failed to store blob: %v", statusError(resp))
	}

	var sr StoreResponse

	err = json.NewDecoder(resp.Body).Decode(&sr)
	if err != nil {
		return "", xerrors.Errorf("failed to decode response: %v", err)
	}

	return sr.GetBlobID()
}

// Get implements blob.Store.
func (c *Client) Get(ctx context.Context, id blob.ID) ([]byte, error) {
	url := c.aggregator + BlobsPath + "/" + id.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("failed to read blob: %v", err)
	}

	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, xerrors.Errorf("%v: %w", id, blob.ErrNotFound)
	case http.StatusGone:
		return nil, xerrors.Errorf("%v: %w", id, blob.ErrExpired)
	default:
		return nil, xerrors.Errorf("failed to read blob: %v", statusError(resp))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBlobSize)+1))
	if err != nil {
		return nil, xerrors.Errorf("failed to read body: %v", err)
	}

	if len(data) > maxBlobSize {
		return nil, xerrors.Errorf("blob %v too large: more than %d bytes", id, maxBlobSize)
	}

	return data, nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	return xerrors.Errorf("unexpected status %s: %s", resp.Status, bytes.TrimSpace(msg))
}

// NewHandler returns the HTTP handler serving the blob API from the store.
func NewHandler(store blob.Store) http.Handler {
	return handler{store: store}
}

type handler struct {
	store blob.Store
}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == BlobsPath && r.Method == http.MethodPut:
		h.put(w, r)
	case strings.HasPrefix(r.URL.Path, BlobsPath+"/") && r.Method == http.MethodGet:
		h.get(w, r, strings.TrimPrefix(r.URL.Path, BlobsPath+"/"))
	case r.URL.Path == BlobsPath || strings.HasPrefix(r.URL.Path, BlobsPath+"/"):
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h handler) put(w http.ResponseWriter, r *http.Request) {
	epochs := 1

	param := r.URL.Query().Get("epochs")
	if param != "" {
		n, err := strconv.Atoi(param)
		if err != nil || blob.CheckEpochs(n) != nil {
			http.Error(w, "invalid epochs '"+param+"'", http.StatusBadRequest)
			return
		}

		epochs = n
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, int64(maxBlobSize)+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if len(data) > maxBlobSize {
		http.Error(w, "blob too large", http.StatusRequestEntityTooLarge)
		return
	}

	_, err = h.store.Get(r.Context(), blob.ComputeID(data))
	known := err == nil

	id, err := h.store.Put(r.Context(), data, epochs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := StoreResponse{}
	if known {
		resp.AlreadyCertified = &AlreadyCertified{BlobID: id.String()}
	} else {
		resp.NewlyCreated = &NewlyCreated{
			BlobObject: BlobObject{BlobID: id.String(), Size: len(data)},
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h handler) get(w http.ResponseWriter, r *http.Request, id string) {
	data, err := h.store.Get(r.Context(), blob.ID(id))
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	case xerrors.Is(err, blob.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case xerrors.Is(err, blob.ErrExpired):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
