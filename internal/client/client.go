// Package client talks to the detection service over HTTP and drives the
// select, submit and retrieve pipeline used by the command line client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"road-boundary-service/internal/domain/model"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type UploadResponse struct {
	Success bool            `json:"success"`
	FileID  string          `json:"fileId"`
	Type    model.MediaKind `json:"type"`
}

// Result is a downloaded result artifact.
type Result struct {
	Data        []byte
	ContentType string
	Filename    string
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithToken sends an upload bearer token.
func WithToken(tok string) Option { return func(c *Client) { c.token = tok } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Minute},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Upload posts one file with its parameters to /api.
func (c *Client) Upload(ctx context.Context, filename string, body io.Reader, p model.JobParams) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", path.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, body); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	_ = mw.WriteField("model", p.Model)
	_ = mw.WriteField("confidence", strconv.FormatFloat(p.Confidence, 'f', -1, 64))
	_ = mw.WriteField("displayMode", string(p.DisplayMode))
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp, raw)
	}

	var out UploadResponse
	if err := json.Unmarshal(raw, &out); err != nil || !out.Success || out.FileID == "" {
		return nil, errors.New("server response missing required data")
	}
	return &out, nil
}

// Result downloads the artifact at a URL produced by ResultURL.
func (c *Client) Result(ctx context.Context, resultURL string) (*Result, error) {
	if strings.HasPrefix(resultURL, "/") {
		resultURL = c.baseURL + resultURL
	}
	raw, resp, err := c.get(ctx, resultURL)
	if err != nil {
		return nil, err
	}
	name := ""
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			name = params["filename"]
		}
	}
	return &Result{Data: raw, ContentType: resp.Header.Get("Content-Type"), Filename: name}, nil
}

// Sample fetches a bundled sample image by name.
func (c *Client) Sample(ctx context.Context, name string) ([]byte, error) {
	raw, _, err := c.get(ctx, c.baseURL+"/samples/"+url.PathEscape(path.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("fetch sample %s: %w", name, err)
	}
	return raw, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, apiError(resp, raw)
	}
	return raw, resp, nil
}

func apiError(resp *http.Response, raw []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	msg := fmt.Sprintf("Server returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// ResultURL is the cache-busted retrieval path for id.
func ResultURL(id string, at time.Time) string {
	return "/api/result/" + url.PathEscape(id) + "?t=" + strconv.FormatInt(at.UnixMilli(), 10)
}
