// Package sandbox implements the remote sandbox provider client. Sandboxes
// are provisioned once per workflow run and re-attached before every use;
// handles carry no connection state beyond the provider base URL.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	vibeerrors "github.com/AAsriyan/vibe/internal/errors"
	"github.com/AAsriyan/vibe/internal/shared/logging"
)

const (
	handleCacheSize = 128
	handleCacheTTL  = 5 * time.Minute
)

// Config carries sandbox provider settings.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client talks to the sandbox provider HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	handles    *expirable.LRU[string, *Handle]
	logger     logging.Logger
}

var _ ports.SandboxClient = (*Client)(nil)

// NewClient constructs a sandbox provider client.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		handles:    expirable.NewLRU[string, *Handle](handleCacheSize, nil, handleCacheTTL),
		logger:     logging.NewComponentLogger("sandbox"),
	}
}

type createRequest struct {
	Image string `json:"image"`
}

type createResponse struct {
	SandboxID string `json:"sandbox_id"`
}

// Create starts a sandbox from the given image and returns its id.
func (c *Client) Create(ctx context.Context, image string) (string, error) {
	var resp createResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sandboxes", createRequest{Image: image}, &resp); err != nil {
		return "", fmt.Errorf("create sandbox: %w", err)
	}
	if resp.SandboxID == "" {
		return "", fmt.Errorf("create sandbox: provider returned empty id")
	}
	c.logger.Info("Sandbox created: %s (image=%s)", resp.SandboxID, image)
	return resp.SandboxID, nil
}

// Connect re-attaches to an existing sandbox. A recently verified handle is
// served from cache; otherwise the sandbox is looked up at the provider first
// so a stale id fails here rather than on the first tool call.
func (c *Client) Connect(ctx context.Context, sandboxID string) (ports.SandboxHandle, error) {
	if sandboxID == "" {
		return nil, fmt.Errorf("connect sandbox: empty id")
	}
	if handle, ok := c.handles.Get(sandboxID); ok {
		return handle, nil
	}

	if err := c.doJSON(ctx, http.MethodGet, "/v1/sandboxes/"+url.PathEscape(sandboxID), nil, nil); err != nil {
		return nil, fmt.Errorf("connect sandbox %s: %w", sandboxID, err)
	}

	handle := &Handle{client: c, sandboxID: sandboxID}
	c.handles.Add(sandboxID, handle)
	return handle, nil
}

// Handle exposes command execution and file access for one sandbox.
type Handle struct {
	client    *Client
	sandboxID string
}

var _ ports.SandboxHandle = (*Handle)(nil)

// ID returns the sandbox identifier this handle is attached to.
func (h *Handle) ID() string {
	return h.sandboxID
}

func (h *Handle) path(suffix string) string {
	return "/v1/sandboxes/" + url.PathEscape(h.sandboxID) + suffix
}

type timeoutRequest struct {
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetTimeout configures the sandbox idle/hard timeout. Idempotent.
func (h *Handle) SetTimeout(ctx context.Context, timeout time.Duration) error {
	req := timeoutRequest{TimeoutSeconds: int(timeout / time.Second)}
	if err := h.client.doJSON(ctx, http.MethodPost, h.path("/timeout"), req, nil); err != nil {
		return fmt.Errorf("set sandbox timeout: %w", err)
	}
	return nil
}

type shellRequest struct {
	Command string `json:"command"`
}

type shellResponse struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// RunCommand executes a shell command inside the sandbox. Output callbacks
// receive the buffered streams once the command finishes; a non-zero exit is
// returned as an error alongside the captured result so callers can surface
// both streams to the model.
func (h *Handle) RunCommand(ctx context.Context, command string, onStdout, onStderr func(string)) (*ports.CommandResult, error) {
	var resp shellResponse
	if err := h.client.doJSON(ctx, http.MethodPost, h.path("/shell"), shellRequest{Command: command}, &resp); err != nil {
		return nil, fmt.Errorf("run command: %w", err)
	}

	if onStdout != nil && resp.Stdout != "" {
		onStdout(resp.Stdout)
	}
	if onStderr != nil && resp.Stderr != "" {
		onStderr(resp.Stderr)
	}

	result := &ports.CommandResult{
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		ExitCode: resp.ExitCode,
	}
	if resp.ExitCode != 0 {
		return result, fmt.Errorf("command exited with status %d", resp.ExitCode)
	}
	return result, nil
}

type writeFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (h *Handle) WriteFile(ctx context.Context, path, content string) error {
	req := writeFileRequest{Path: path, Content: content}
	if err := h.client.doJSON(ctx, http.MethodPut, h.path("/files"), req, nil); err != nil {
		return fmt.Errorf("write file %s: %w", path, err)
	}
	return nil
}

type readFileResponse struct {
	Content string `json:"content"`
}

func (h *Handle) ReadFile(ctx context.Context, path string) (string, error) {
	var resp readFileResponse
	endpoint := h.path("/files") + "?path=" + url.QueryEscape(path)
	if err := h.client.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", fmt.Errorf("read file %s: %w", path, err)
	}
	return resp.Content, nil
}

type hostResponse struct {
	Host string `json:"host"`
}

// ExposedHost returns the externally reachable hostname for a sandbox port.
func (h *Handle) ExposedHost(ctx context.Context, port int) (string, error) {
	var resp hostResponse
	endpoint := h.path("/host") + "?port=" + fmt.Sprint(port)
	if err := h.client.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", fmt.Errorf("resolve sandbox host: %w", err)
	}
	if resp.Host == "" {
		return "", fmt.Errorf("resolve sandbox host: provider returned empty host")
	}
	return resp.Host, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal sandbox request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build sandbox request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return vibeerrors.NewTransient(fmt.Errorf("sandbox request failed: %w", err), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		reqErr := fmt.Errorf("sandbox request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
		return vibeerrors.ClassifyHTTPStatus(resp.StatusCode, reqErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode sandbox response: %w", err)
	}
	return nil
}
