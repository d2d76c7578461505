package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

const maxBodyBytes = 4 << 20

// Client talks to the traffic-control backend. Callers bound each call with
// a context deadline; the http.Client timeout is only a backstop.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000/api"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Health succeeds on any 2xx. The body is decoded when it is JSON and
// ignored otherwise.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	raw, err := c.send("health", req)
	if err != nil {
		return nil, err
	}
	var out HealthResponse
	_ = json.Unmarshal(raw, &out)
	return &out, nil
}

func (c *Client) StatsOverview(ctx context.Context) (*OverviewResponse, error) {
	var out OverviewResponse
	if err := c.getJSON(ctx, "stats overview", "/stats/overview", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Intersections(ctx context.Context) ([]IntersectionPayload, error) {
	var out []IntersectionPayload
	if err := c.getJSON(ctx, "intersections", "/intersections", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SignalState(ctx context.Context, intersectionID string) (*SignalStateResponse, error) {
	var out SignalStateResponse
	path := "/intersection/" + url.PathEscape(intersectionID) + "/signal/state"
	if err := c.getJSON(ctx, "signal state", path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TriggerEmergency(ctx context.Context, intersectionID string, dir domain.Direction) (*CommandResponse, error) {
	var out CommandResponse
	path := "/intersection/" + url.PathEscape(intersectionID) + "/emergency/" + url.PathEscape(string(dir))
	if err := c.postJSON(ctx, "trigger emergency", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearEmergency(ctx context.Context, intersectionID string) (*CommandResponse, error) {
	var out CommandResponse
	path := "/intersection/" + url.PathEscape(intersectionID) + "/emergency/clear"
	if err := c.postJSON(ctx, "clear emergency", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Optimize(ctx context.Context, intersectionID string) (*CommandResponse, error) {
	var out CommandResponse
	path := "/intersection/" + url.PathEscape(intersectionID) + "/optimize"
	if err := c.postJSON(ctx, "optimize", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateVehicleCount(ctx context.Context, intersectionID string, update VehicleCountUpdate) error {
	path := "/intersection/" + url.PathEscape(intersectionID) + "/vehicle-count"
	return c.postJSON(ctx, "vehicle count", path, update, nil)
}

// DetectImage uploads an image as multipart form data.
func (c *Client) DetectImage(ctx context.Context, intersectionID string, dir domain.Direction, img domain.ImageUpload) (*DetectionResponse, error) {
	const op = "detect image"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	filename := img.Filename
	if filename == "" {
		filename = "upload.jpg"
	}
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	_ = mw.WriteField("intersection_id", intersectionID)
	if dir != "" {
		_ = mw.WriteField("direction", string(dir))
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detection/image", &body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out DetectionResponse
	if err := c.do(op, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.do(op, req, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	raw, err := c.send(op, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &ValidationError{Op: op, Reason: err.Error()}
		}
		return &BackendError{Op: op, Err: err}
	}
	return nil
}

// send performs req and returns the body of a 2xx response.
func (c *Client) send(op string, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BackendError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(raw, resp.Status))}
	}
	if len(raw) > maxBodyBytes {
		return nil, &BackendError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("response body exceeds %d bytes", maxBodyBytes)}
	}
	return raw, nil
}

// errorMessage pulls {"error": "..."} out of a failed response when present.
func errorMessage(raw []byte, status string) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return status
}
