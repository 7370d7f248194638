package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hbrandt/coincast/internal/sim"
)

var ErrNotFound = errors.New("simulation not found on sync server")

// Point is one appended sample on the sync server's wire format.
type Point struct {
	Time      int64   `json:"time"`
	Price     float64 `json:"price"`
	Simulated bool    `json:"simulated"`
}

// Event is a websocket frame pushed to subscribers of a simulation.
type Event struct {
	Type  string `json:"type"` // "insert" or "deactivate"
	Point *Point `json:"point,omitempty"`
}

const (
	EventInsert     = "insert"
	EventDeactivate = "deactivate"
)

// Client talks to a coincast sync server. All methods are safe for
// concurrent use.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

// NewClient builds a client for the sync server at base, e.g.
// "http://localhost:8080". A nil logger disables logging.
func NewClient(base string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: 5 * time.Second},
		log:  log,
	}
}

// Create registers a simulation and returns its server-assigned id.
func (c *Client) Create(ctx context.Context, d sim.Descriptor) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/simulations", d, &out); err != nil {
		return "", fmt.Errorf("create simulation: %w", err)
	}
	return out.ID, nil
}

// Get fetches the descriptor for a remote simulation id.
func (c *Client) Get(ctx context.Context, remoteID string) (sim.Descriptor, error) {
	var d sim.Descriptor
	if err := c.do(ctx, http.MethodGet, "/api/v1/simulations/"+remoteID, nil, &d); err != nil {
		return sim.Descriptor{}, fmt.Errorf("fetch simulation %s: %w", remoteID, err)
	}
	return d, nil
}

// SetActive flips the active flag of a remote simulation. Deactivating a
// simulation also fans a deactivate event out to its subscribers.
func (c *Client) SetActive(ctx context.Context, remoteID string, active bool) error {
	body := map[string]bool{"active": active}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/simulations/"+remoteID, body, nil); err != nil {
		return fmt.Errorf("set active=%v on %s: %w", active, remoteID, err)
	}
	return nil
}

// AppendPoint uploads one sample. The engine calls this fire-and-forget; a
// lost point only means viewers interpolate across a slightly larger gap.
func (c *Client) AppendPoint(ctx context.Context, remoteID string, p Point) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/simulations/"+remoteID+"/points", p, nil); err != nil {
		c.log.Debug("append point failed", zap.String("remoteId", remoteID), zap.Error(err))
		return err
	}
	return nil
}

// Points fetches samples in [from, to], ascending by time. Either bound may
// be zero to leave it open.
func (c *Client) Points(ctx context.Context, remoteID string, from, to int64) ([]Point, error) {
	path := "/api/v1/simulations/" + remoteID + "/points"
	sep := "?"
	if from > 0 {
		path += sep + "from=" + strconv.FormatInt(from, 10)
		sep = "&"
	}
	if to > 0 {
		path += sep + "to=" + strconv.FormatInt(to, 10)
	}
	var pts []Point
	if err := c.do(ctx, http.MethodGet, path, nil, &pts); err != nil {
		return nil, fmt.Errorf("fetch points for %s: %w", remoteID, err)
	}
	return pts, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("sync server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
