// Package api is the remote file-storage client: documents come in by
// file id and go back out as uploads with a markdown download link.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const requestTimeout = 60 * time.Second

// version is set at build time via ldflags.
var version = "dev"

// SetVersion sets the version string for User-Agent headers.
func SetVersion(v string) { version = v }

// Client is an HTTP client for the file-storage API.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client against the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Download fetches a stored file's content by id.
func (c *Client) Download(ctx context.Context, fileID, token string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v1/files/%s/content", c.baseURL, fileID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "fileforge/"+version)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, storageError(httpResp.StatusCode, "DOWNLOAD_FAILED", body)
	}
	return body, nil
}

// UploadResult describes a stored upload.
type UploadResult struct {
	ID string `json:"id"`
	// DownloadLink is the markdown link clients surface to the user.
	DownloadLink string `json:"file_path_download"`
}

// Upload stores a local file and returns the markdown download-link
// descriptor the chat surface expects.
func (c *Client) Upload(ctx context.Context, path, filename, fileType, token string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/files/", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("User-Agent", "fileforge/"+version)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, storageError(httpResp.StatusCode, "UPLOAD_FAILED", body)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}
	return &UploadResult{
		ID: resp.ID,
		DownloadLink: fmt.Sprintf("[Download %s.%s](/api/v1/files/%s/content)",
			filename, fileType, resp.ID),
	}, nil
}

// storageError extracts the server's error message when the body is the
// usual {"detail": ...} or {"error": {"message": ...}} shape.
func storageError(status int, code string, body []byte) *StorageError {
	msg := truncate(strings.TrimSpace(string(body)), 200)
	var wire struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil {
		if wire.Error.Message != "" {
			msg = wire.Error.Message
		} else if wire.Detail != "" {
			msg = wire.Detail
		}
	}
	return &StorageError{StatusCode: status, Code: code, Message: msg}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
