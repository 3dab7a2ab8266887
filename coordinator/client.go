package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// DefaultPort is the coordinator's listening port
const DefaultPort = 9000

// StatusError is a non-2xx answer from the coordinator
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coordinator returned %d: %s", e.Code, e.Message)
}

// Client talks to a coordinator
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for addr, given as host, host:port or URL.
// A bare host gets the default port.
func NewClient(addr string) *Client {
	base := addr
	if !strings.Contains(base, "://") {
		if !strings.Contains(base, ":") {
			base = fmt.Sprintf("%s:%d", base, DefaultPort)
		}
		base = "http://" + base
	}
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		// No timeout: /connect is a long poll bounded by the caller's context
		HTTPClient: &http.Client{},
	}
}

// Connect registers droneID and blocks until a pilot assigns actions.
// The coordinator's redirect to /actions is followed automatically.
func (c *Client) Connect(ctx context.Context, droneID string) (*Assignment, error) {
	var assignment Assignment
	err := c.do(ctx, http.MethodPost, "/connect", ConnectRequest{DroneID: droneID}, &assignment)
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// PostActions assigns actions to the first waiting drone
func (c *Client) PostActions(ctx context.Context, itemID int, actions []string) (*AssignResponse, error) {
	var resp AssignResponse
	req := ActionsRequest{ItemID: strconv.Itoa(itemID), Actions: actions}
	if err := c.do(ctx, http.MethodPost, "/actions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Drones lists the drones queued at the coordinator
func (c *Client) Drones(ctx context.Context) ([]DroneInfo, error) {
	var drones []DroneInfo
	if err := c.do(ctx, http.MethodGet, "/drones", nil, &drones); err != nil {
		return nil, err
	}
	return drones, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
