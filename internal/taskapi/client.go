// Package taskapi is the HTTP+JSON client for the download-task service.
package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskdeck-cli/internal/model"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "http://127.0.0.1:5800/api"

	// BlobCookies holds the service's download credentials.
	BlobCookies = "cookies"
	// BlobConfig holds the service's downloader settings.
	BlobConfig = "config"
)

const requestIDHeader = "X-Request-Id"

// maxErrorBody bounds how much of a failed response is read for its detail.
const maxErrorBody = 64 << 10

type Client struct {
	baseURL string
	http    *http.Client
	log     *log.Entry
}

type Options struct {
	BaseURL string
	// Timeout applies per request; zero leaves requests bounded only by their context.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Entry
}

func New(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", base)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    hc,
		log:     logger.WithField("component", "taskapi"),
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

type createRequest struct {
	URL      string `json:"url"`
	Language string `json:"language"`
}

type languageRequest struct {
	Language string `json:"language"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// BlobStatus reports whether a settings blob exists on the service.
type BlobStatus struct {
	Configured bool   `json:"configured"`
	Path       string `json:"path,omitempty"`
}

type blobContent struct {
	Content string `json:"content"`
}

func (c *Client) ListTasks(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	if err := c.do(ctx, "list tasks", http.MethodGet, "/tasks", nil, &snap); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Tasks == nil {
		snap.Tasks = []model.Task{}
	}
	return snap, nil
}

func (c *Client) CreateTask(ctx context.Context, rawURL, language string) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, "create task", http.MethodPost, "/tasks", createRequest{URL: rawURL, Language: language}, &t)
	return t, err
}

func (c *Client) CancelTask(ctx context.Context, id string) (string, error) {
	return c.message(ctx, "cancel task", http.MethodPost, taskPath(id, "cancel"), nil)
}

func (c *Client) RestartTask(ctx context.Context, id string) (string, error) {
	return c.message(ctx, "restart task", http.MethodPost, taskPath(id, "restart"), nil)
}

func (c *Client) RestartTaskOverwrite(ctx context.Context, id string) (string, error) {
	return c.message(ctx, "restart task with overwrite", http.MethodPost, taskPath(id, "restart-overwrite"), nil)
}

func (c *Client) DeleteTask(ctx context.Context, id string) (string, error) {
	return c.message(ctx, "delete task", http.MethodDelete, taskPath(id, ""), nil)
}

func (c *Client) SetLanguage(ctx context.Context, id, language string) (string, error) {
	return c.message(ctx, "set task language", http.MethodPatch, taskPath(id, "language"), languageRequest{Language: language})
}

func (c *Client) ResetAll(ctx context.Context) (string, error) {
	return c.message(ctx, "reset all tasks", http.MethodPost, "/tasks/reset-all", nil)
}

func (c *Client) BlobStatus(ctx context.Context, name string) (BlobStatus, error) {
	var st BlobStatus
	err := c.do(ctx, "get "+name+" status", http.MethodGet, "/settings/"+url.PathEscape(name), nil, &st)
	return st, err
}

func (c *Client) BlobContent(ctx context.Context, name string) (string, error) {
	var bc blobContent
	err := c.do(ctx, "get "+name+" content", http.MethodGet, "/settings/"+url.PathEscape(name)+"/content", nil, &bc)
	return bc.Content, err
}

func (c *Client) SaveBlob(ctx context.Context, name, content string) (string, error) {
	return c.message(ctx, "save "+name, http.MethodPost, "/settings/"+url.PathEscape(name), contentRequest{Content: content})
}

func taskPath(id, action string) string {
	p := "/tasks/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) message(ctx context.Context, op, method, path string, body any) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, op, method, path, body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	entry := c.log.WithFields(log.Fields{"op": op, "request_id": reqID})
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		entry.WithError(err).Debug("request failed")
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	entry = entry.WithFields(log.Fields{"status": resp.StatusCode, "elapsed": time.Since(started)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rej := &RejectedError{Op: op, Status: resp.StatusCode, Detail: errorDetail(b)}
		entry.WithField("detail", rej.Detail).Debug("request rejected")
		return rej
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		entry.Debug("request ok")
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		entry.WithError(err).Debug("decode failed")
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	entry.Debug("request ok")
	return nil
}

// errorDetail extracts the human-readable reason from an error body:
// {"detail": "..."} or {"error": "..."}. Structured details (validation
// errors) are returned as compact JSON.
func errorDetail(b []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return strings.TrimSpace(string(b))
	}
	for _, raw := range []json.RawMessage{body.Detail, body.Error} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
		return string(raw)
	}
	return ""
}
