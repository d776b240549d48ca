// Package remote performs the HTTP side effects a trick may request
// before answering (GET, POST, PUT, DELETE).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 4 << 20 // 4 MB

// DefaultTimeout applies when a Client is built with a zero timeout.
const DefaultTimeout = 10 * time.Second

// Response is the part of a remote answer templates can see.
type Response struct {
	StatusCode  int
	ContentType string
	// Body is the decoded JSON body, or "" when the response is not JSON.
	Body any
}

// Client issues remote calls.
type Client struct {
	http *http.Client
}

// New returns a client whose calls time out after timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(c *http.Client) *Client {
	return &Client{http: c}
}

// Call sends method to uri. A non-nil body is sent as JSON. Any HTTP
// status is a successful call; only transport failures and undecodable
// JSON bodies are errors.
func (c *Client) Call(ctx context.Context, method, uri string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", method, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, uri, err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, uri, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, uri, err)
	}
	out := &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        "",
	}
	if IsJSON(out.ContentType) && len(bytes.TrimSpace(data)) > 0 {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", method, uri, err)
		}
		out.Body = v
	}
	return out, nil
}

// IsJSON reports whether a Content-Type header names a JSON media type.
func IsJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
