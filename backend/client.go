// Package backend implements the HTTP transport to the meeting-summary
// backend: the multipart media upload and the live transcription stream.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sree6273/AI-meeting-summary/iox"
	"github.com/sree6273/AI-meeting-summary/session"
)

// Backend routes. The upload route keeps its trailing slash; the server
// does not redirect.
const (
	uploadRoute = "/upload-meeting/"
	streamRoute = "/transcribe-stream/"
)

// DefaultUploadTimeout bounds the multipart upload request.
const DefaultUploadTimeout = 2 * time.Minute

// maxErrorBody limits how much of an error response is kept for the message.
const maxErrorBody = 4 << 10

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Body is the response body, truncated to a short snippet.
	Body string
}

// Error returns the status line with the body snippet when present.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// IsStatusError reports whether err is a StatusError and returns it.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ClientConfig holds configuration for the backend HTTP client.
type ClientConfig struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000" (required).
	BaseURL string
	// UploadTimeout bounds the upload request. Zero means DefaultUploadTimeout.
	UploadTimeout time.Duration
	// HTTPClient overrides the transport. The default client carries no
	// global timeout; the transcription stream stays open for the whole
	// analysis and is bounded by context instead.
	HTTPClient *http.Client
}

// Validate checks that required client configuration is present.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("backend base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid backend base URL: %w", err)
	}
	return nil
}

// Client talks to the meeting-summary backend. It implements both halves
// of the session transport: the upload and the stream open.
type Client struct {
	baseURL       string
	http          *http.Client
	uploadTimeout time.Duration
}

var (
	_ session.Uploader     = (*Client)(nil)
	_ session.StreamOpener = (*Client)(nil)
)

// NewClient creates a backend client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		http:          httpClient,
		uploadTimeout: timeout,
	}, nil
}

// uploadResponse is the backend's answer to a stored upload.
type uploadResponse struct {
	Filename string `json:"filename"`
}

// Upload streams the media file to the backend as a multipart form and
// returns the stored filename, which keys the transcription stream.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer iox.DiscardClose(f)

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	// The form body is piped so the media file is never buffered whole.
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			iox.DiscardErr(func() error { return pw.CloseWithError(err) })
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			iox.DiscardErr(func() error { return pw.CloseWithError(err) })
			return
		}
		iox.DiscardErr(func() error { return pw.CloseWithError(form.Close()) })
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadRoute, pr)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer iox.DrainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if ur.Filename == "" {
		return "", errors.New("upload response carried no filename")
	}
	return ur.Filename, nil
}

// OpenStream opens the live transcription feed for an uploaded resource.
// The response body is returned unread; the caller owns closing it. The
// request is bounded by ctx only, never by a client timeout.
func (c *Client) OpenStream(ctx context.Context, resource string) (io.ReadCloser, error) {
	streamURL := c.baseURL + streamRoute + url.PathEscape(resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer iox.DrainClose(resp.Body)
		return nil, statusError(resp)
	}
	return resp.Body, nil
}

// statusError builds a StatusError from a non-2xx response, consuming a
// bounded amount of the body for the message.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
