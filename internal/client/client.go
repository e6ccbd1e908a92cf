// Package client talks to the canvas HTTP API and keeps local mirrors of
// remote canvases.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/z-canvas/backend/internal/model/canvas"
)

var (
	ErrNotFound   = errors.New("canvas not found")
	ErrBadRequest = errors.New("bad request")
)

// APIError carries the status and error message of a non-200 response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("canvas api: %d %s", e.StatusCode, e.Message)
}

// Is maps 404 and 400 responses onto ErrNotFound and ErrBadRequest.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

// Client is a typed client for the canvas routes under /api.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for the server at baseURL, e.g. "http://localhost:3000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init creates a canvas session and returns its id.
func (c *Client) Init(ctx context.Context, width, height float64) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]float64{"width": width, "height": height}
	if err := c.doJSON(ctx, http.MethodPost, "/api/canvas/init", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("canvas api: init response without id")
	}
	return out.ID, nil
}

// AddRectangle posts a rectangle to the session.
func (c *Client) AddRectangle(ctx context.Context, id string, opts canvas.RectangleOptions) error {
	return c.doJSON(ctx, http.MethodPost, canvasPath(id, "add/rectangle"), opts, nil)
}

// AddCircle posts a circle to the session.
func (c *Client) AddCircle(ctx context.Context, id string, opts canvas.CircleOptions) error {
	return c.doJSON(ctx, http.MethodPost, canvasPath(id, "add/circle"), opts, nil)
}

// AddText posts a text element to the session.
func (c *Client) AddText(ctx context.Context, id string, opts canvas.TextOptions) error {
	return c.doJSON(ctx, http.MethodPost, canvasPath(id, "add/text"), opts, nil)
}

// Session fetches the session's dimensions and element count.
func (c *Client) Session(ctx context.Context, id string) (canvas.SessionInfo, error) {
	var info canvas.SessionInfo
	err := c.doJSON(ctx, http.MethodGet, canvasPath(id, ""), nil, &info)
	return info, err
}

// Elements fetches the session's element log in paint order.
func (c *Client) Elements(ctx context.Context, id string) ([]canvas.Primitive, error) {
	var out struct {
		Elements []json.RawMessage `json:"elements"`
	}
	if err := c.doJSON(ctx, http.MethodGet, canvasPath(id, "elements"), nil, &out); err != nil {
		return nil, err
	}

	elements := make([]canvas.Primitive, 0, len(out.Elements))
	for i, raw := range out.Elements {
		p, err := canvas.UnmarshalElement(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elements = append(elements, p)
	}
	return elements, nil
}

// ExportPDF streams the session's PDF export into w.
func (c *Client) ExportPDF(ctx context.Context, id string, w io.Writer) error {
	return c.download(ctx, canvasPath(id, "export/pdf"), w)
}

// ExportPNG streams the session's PNG preview into w.
func (c *Client) ExportPNG(ctx context.Context, id string, w io.Writer) error {
	return c.download(ctx, canvasPath(id, "export/png"), w)
}

func canvasPath(id, suffix string) string {
	p := "/api/canvas/" + id
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, path string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download %s: %w", path, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return apiErr
}
