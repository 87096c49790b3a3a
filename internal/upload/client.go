// Package upload talks to the file upload endpoint: a form-encoded POST of a
// base64 file answered with {"fileUrl": "..."}.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Katlearn/cablevision-form/internal/models"
)

var ErrNoURL = errors.New("upload: endpoint returned no fileUrl")

type Client struct {
	endpoint string
	http     *http.Client
}

func New(endpoint string, timeout time.Duration) *Client {
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

type response struct {
	FileURL string `json:"fileUrl"`
	Error   string `json:"error,omitempty"`
}

// Upload sends one encoded file and returns the public URL it was stored at.
func (c *Client) Upload(ctx context.Context, f models.EncodedFile) (string, error) {
	form := url.Values{
		"file":     {f.Base64},
		"fileName": {f.FileName},
		"mimeType": {f.MimeType},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: send %s: %w", f.FileName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("upload: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("upload: decode response: %w", err)
	}
	if out.FileURL == "" {
		if out.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrNoURL, out.Error)
		}
		return "", ErrNoURL
	}
	return out.FileURL, nil
}
