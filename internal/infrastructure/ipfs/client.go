package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/ports"
)

// Client pins raw content to an IPFS node over its HTTP API and returns the
// content-addressed hash. The engine stores only the hash.
type Client struct {
	apiURL string
	client *http.Client
}

var _ ports.ContentStore = (*Client)(nil)

// NewClient wires the IPFS API base URL (e.g. http://127.0.0.1:5001).
func NewClient(apiURL string) *Client {
	return &Client{
		apiURL: apiURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Store uploads the content and returns its hash. Any collaborator failure
// surfaces as StoreUnavailable; the engine never retries.
func (c *Client) Store(ctx context.Context, content io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "article")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("copy content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	endpoint := c.apiURL + "/api/v0/add"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", domain.Errorf(domain.KindStoreUnavailable, "content store unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.Errorf(domain.KindStoreUnavailable, "content store returned %s", resp.Status)
	}

	var result struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", domain.Errorf(domain.KindStoreUnavailable, "decode content store response: %v", err)
	}
	if result.Hash == "" {
		return "", domain.Errorf(domain.KindStoreUnavailable, "content store returned no hash")
	}
	return result.Hash, nil
}
