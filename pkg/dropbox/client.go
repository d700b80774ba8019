// Package dropbox provides a minimal client for the Dropbox HTTP API:
// folder listing with cursor pagination, file download, and account lookup.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Entry is one item from a folder listing.
type Entry struct {
	Tag            string    `json:".tag"`
	Name           string    `json:"name"`
	PathLower      string    `json:"path_lower"`
	PathDisplay    string    `json:"path_display"`
	Size           int64     `json:"size"`
	ServerModified time.Time `json:"server_modified"`
}

// IsFile reports whether the entry is a regular file.
func (e Entry) IsFile() bool { return e.Tag == "file" }

// Account identifies the authenticated Dropbox account.
type Account struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// Client defines the Dropbox operations used by the sync job.
type Client interface {
	// ListFolder returns every entry under path, following pagination cursors.
	ListFolder(ctx context.Context, path string, recursive bool) ([]Entry, error)
	// Download streams the file at path. The caller must close the reader.
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	// CurrentAccount returns the account the access token belongs to.
	CurrentAccount(ctx context.Context) (*Account, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithAPIBaseURL sets a custom RPC endpoint base (for testing).
func WithAPIBaseURL(url string) Option {
	return func(c *httpClient) {
		c.apiBase = strings.TrimRight(url, "/")
	}
}

// WithContentBaseURL sets a custom content endpoint base (for testing).
func WithContentBaseURL(url string) Option {
	return func(c *httpClient) {
		c.contentBase = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	accessToken string
	apiBase     string
	contentBase string
	http        *http.Client
}

// NewClient creates a Dropbox API client.
func NewClient(accessToken string, opts ...Option) Client {
	c := &httpClient{
		accessToken: accessToken,
		apiBase:     "https://api.dropboxapi.com/2",
		contentBase: "https://content.dropboxapi.com/2",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listFolderResult struct {
	Entries []Entry `json:"entries"`
	Cursor  string  `json:"cursor"`
	HasMore bool    `json:"has_more"`
}

func (c *httpClient) ListFolder(ctx context.Context, path string, recursive bool) ([]Entry, error) {
	body, err := c.rpc(ctx, "/files/list_folder", map[string]any{
		"path":      path,
		"recursive": recursive,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dropbox: list folder %s", path)
	}

	var result listFolderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "dropbox: unmarshal list_folder")
	}

	entries := result.Entries
	for result.HasMore {
		body, err = c.rpc(ctx, "/files/list_folder/continue", map[string]any{
			"cursor": result.Cursor,
		})
		if err != nil {
			return nil, eris.Wrap(err, "dropbox: list folder continue")
		}
		result = listFolderResult{}
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, eris.Wrap(err, "dropbox: unmarshal list_folder/continue")
		}
		entries = append(entries, result.Entries...)
	}

	return entries, nil
}

func (c *httpClient) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	arg, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return nil, eris.Wrap(err, "dropbox: marshal download arg")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentBase+"/files/download", nil)
	if err != nil {
		return nil, eris.Wrap(err, "dropbox: create download request")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "dropbox: download %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close() //nolint:errcheck
		msg, _ := io.ReadAll(resp.Body)
		return nil, eris.Errorf("dropbox: download %s: status %d: %s", path, resp.StatusCode, string(msg))
	}

	return resp.Body, nil
}

func (c *httpClient) CurrentAccount(ctx context.Context) (*Account, error) {
	body, err := c.rpc(ctx, "/users/get_current_account", nil)
	if err != nil {
		return nil, eris.Wrap(err, "dropbox: get current account")
	}
	var acc Account
	if err := json.Unmarshal(body, &acc); err != nil {
		return nil, eris.Wrap(err, "dropbox: unmarshal account")
	}
	return &acc, nil
}

// rpc posts a JSON payload to an api endpoint with retries on transient
// failures. All RPC endpoints here are read-only, so retrying is safe.
func (c *httpClient) rpc(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrap(err, "marshal payload")
		}
	} else {
		body = []byte("null")
	}

	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return nil, eris.Wrap(readErr, "read response body")
			}
			if resp.StatusCode == http.StatusOK {
				return respBody, nil
			}
			lastErr = eris.Errorf("status %d: %s", resp.StatusCode, string(respBody))
			if !retryableStatusCode(resp.StatusCode) {
				return nil, lastErr
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return nil, lastErr
}

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}
