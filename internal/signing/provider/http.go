package provider

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

	"golang.org/x/oauth2/clientcredentials"
)

const maxArtifactBytes = 50 << 20

// HTTPConfig configures HTTPClient. When TokenURL is set the client uses
// OAuth2 client credentials; otherwise APIKey is sent in APIKeyHeader.
type HTTPConfig struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	TestMode     bool
}

// HTTPClient implements Client over the provider's JSON API.
type HTTPClient struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	testMode     bool
	httpClient   *http.Client
}

// NewHTTPClient validates cfg and builds a client.
func NewHTTPClient(ctx context.Context, cfg HTTPConfig) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid signing api base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &HTTPClient{
		baseURL:      base,
		apiKey:       cfg.APIKey,
		apiKeyHeader: cfg.APIKeyHeader,
		testMode:     cfg.TestMode,
	}
	if c.apiKeyHeader == "" {
		c.apiKeyHeader = "X-API-Key"
	}

	if strings.TrimSpace(cfg.TokenURL) != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		c.httpClient = cc.Client(ctx)
		c.httpClient.Timeout = timeout
		c.apiKey = ""
		return c, nil
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("SIGNING_API_KEY or SIGNING_OAUTH_TOKEN_URL is required")
	}
	c.httpClient = &http.Client{Timeout: timeout}
	return c, nil
}

// CreateDocument submits a document for signature.
func (c *HTTPClient) CreateDocument(ctx context.Context, payload DispatchPayload) (CreatedDocument, error) {
	payload.TestMode = payload.TestMode || c.testMode
	body, err := json.Marshal(payload)
	if err != nil {
		return CreatedDocument{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents", bytes.NewReader(body))
	if err != nil {
		return CreatedDocument{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	respBody, err := c.do(req, 1<<20)
	if err != nil {
		return CreatedDocument{}, err
	}
	var created CreatedDocument
	if err := json.Unmarshal(respBody, &created); err != nil {
		return CreatedDocument{}, fmt.Errorf("signing provider response parse: %w", err)
	}
	if strings.TrimSpace(created.ID) == "" {
		return CreatedDocument{}, &ProviderError{StatusCode: http.StatusOK, Detail: "response missing document id: " + string(respBody)}
	}
	return created, nil
}

// DownloadCompleted fetches the finalized PDF for a completed document.
func (c *HTTPClient) DownloadCompleted(ctx context.Context, providerDocumentID string) ([]byte, error) {
	if strings.TrimSpace(providerDocumentID) == "" {
		return nil, errors.New("provider document id is required")
	}
	endpoint := c.baseURL + "/documents/" + url.PathEscape(providerDocumentID) + "/completed_pdf"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf")
	return c.do(req, maxArtifactBytes)
}

func (c *HTTPClient) do(req *http.Request, limit int64) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("signing provider request timeout: %w", err)
		}
		return nil, fmt.Errorf("signing provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("signing provider read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Detail: string(body)}
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("signing provider response exceeds %d bytes", limit)
	}
	return body, nil
}

var _ Client = (*HTTPClient)(nil)
