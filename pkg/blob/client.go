package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// APIVersion is the fixed service protocol version sent with every request
	APIVersion = "2020-10-02"

	// accessTier directs the backend to place uploaded blobs in the
	// cost-optimized tier instead of the hot default
	accessTier = "Cool"

	blobType = "BlockBlob"
)

// ClientConfig holds the endpoint and credential configuration for a Client.
type ClientConfig struct {
	Account   string
	Container string
	SharedKey string

	// Endpoint overrides the default https://{account}.blob.core.windows.net
	// base URL. Used for tests and local emulators.
	Endpoint string

	HTTPClient *http.Client
}

// Client issues signed HTTP operations against the blob store. It holds no
// local state beyond configuration; every call builds a fresh SignedRequest
// with its own date and signature.
type Client struct {
	endpoint   string
	container  string
	signer     *Signer
	httpClient *http.Client
}

// NewClient creates a blob store client from the given configuration
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("%w: container name is empty", ErrConfiguration)
	}

	signer, err := NewSigner(cfg.Account, cfg.SharedKey)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.Account)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{
		endpoint:   endpoint,
		container:  cfg.Container,
		signer:     signer,
		httpClient: httpClient,
	}, nil
}

// PutBlob uploads a blob to the given path. Success is exactly HTTP 201.
func (c *Client) PutBlob(ctx context.Context, path string, body []byte, contentType string) error {
	// Stamp the date immediately before signing so the signature and the
	// request share the same clock read
	date := gmtNow()
	headers := []Header{
		{"x-ms-access-tier", accessTier},
		{"x-ms-blob-type", blobType},
		{"x-ms-date", date},
		{"x-ms-version", APIVersion},
	}
	resource := c.signer.BlobResource(c.container, path)
	stringToSign := c.signer.StringToSign(http.MethodPut, int64(len(body)), contentType, headers, resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.blobURL(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build PUT request for '%s': %w", path, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))
	applyHeaders(req, headers)
	req.Header.Set("Authorization", c.signer.Authorization(stringToSign))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("PUT '%s' transport failure: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return c.statusError("PUT", path, resp)
	}
	return nil
}

// HeadContainer probes the container and reports whether it is reachable.
// Success is exactly HTTP 200.
func (c *Client) HeadContainer(ctx context.Context) (bool, error) {
	date := gmtNow()
	headers := []Header{
		{"x-ms-date", date},
		{"x-ms-version", APIVersion},
	}
	resource := c.signer.ContainerResource(c.container, map[string]string{"restype": "container"})
	stringToSign := c.signer.StringToSign(http.MethodHead, 0, "", headers, resource)

	u := fmt.Sprintf("%s/%s?restype=container", c.endpoint, c.container)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build HEAD request: %w", err)
	}
	applyHeaders(req, headers)
	req.Header.Set("Authorization", c.signer.Authorization(stringToSign))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("HEAD container transport failure: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, c.statusError("HEAD", c.container, resp)
	}
	return true, nil
}

// GetBlob downloads a blob's bytes. Success is exactly HTTP 200.
func (c *Client) GetBlob(ctx context.Context, path string) ([]byte, error) {
	date := gmtNow()
	headers := []Header{
		{"x-ms-date", date},
		{"x-ms-version", APIVersion},
	}
	resource := c.signer.BlobResource(c.container, path)
	stringToSign := c.signer.StringToSign(http.MethodGet, 0, "", headers, resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.blobURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GET request for '%s': %w", path, err)
	}
	applyHeaders(req, headers)
	req.Header.Set("Authorization", c.signer.Authorization(stringToSign))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET '%s' transport failure: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("GET", path, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET '%s' failed reading body: %w", path, err)
	}
	return data, nil
}

// ListBlobs returns the blob names under the given prefix from the container
// listing. Success is exactly HTTP 200.
func (c *Client) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	body, err := c.listRaw(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return ParseListing(body), nil
}

// ListSessionIDs returns the unique session ids found under the facility
// prefix, extracted from the listing's meta.json entries. Advisory only;
// used by the manual recovery surface.
func (c *Client) ListSessionIDs(ctx context.Context, facilityID string) ([]string, error) {
	body, err := c.listRaw(ctx, facilityID+"/")
	if err != nil {
		return nil, err
	}
	return SessionIDs(body, facilityID), nil
}

func (c *Client) listRaw(ctx context.Context, prefix string) ([]byte, error) {
	date := gmtNow()
	headers := []Header{
		{"x-ms-date", date},
		{"x-ms-version", APIVersion},
	}
	resource := c.signer.ContainerResource(c.container, map[string]string{
		"comp":    "list",
		"prefix":  prefix,
		"restype": "container",
	})
	stringToSign := c.signer.StringToSign(http.MethodGet, 0, "", headers, resource)

	u := fmt.Sprintf("%s/%s?comp=list&prefix=%s&restype=container", c.endpoint, c.container, url.QueryEscape(prefix))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}
	applyHeaders(req, headers)
	req.Header.Set("Authorization", c.signer.Authorization(stringToSign))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list transport failure: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("GET", "?comp=list", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("list failed reading body: %w", err)
	}
	return data, nil
}

func (c *Client) blobURL(path string) string {
	return c.endpoint + "/" + c.container + "/" + path
}

// statusError maps a non-success response onto the failure taxonomy
func (c *Client) statusError(method, path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	code, message := parseVendorError(body)

	switch resp.StatusCode {
	case http.StatusForbidden:
		return fmt.Errorf("%s '%s': %w (%s)", method, path, ErrAuthRejected, message)
	case http.StatusNotFound:
		if method == http.MethodGet {
			return fmt.Errorf("%s '%s': %w", method, path, ErrNotFound)
		}
	}
	return fmt.Errorf("%s '%s' failed: %w", method, path, &StatusError{
		Status:  resp.StatusCode,
		Code:    code,
		Message: message,
	})
}

func applyHeaders(req *http.Request, headers []Header) {
	for _, h := range headers {
		req.Header.Set(h.Name, h.Value)
	}
}

// gmtNow formats the current time the way the service expects dates:
// "EEE, dd MMM yyyy HH:mm:ss GMT" in the POSIX locale.
func gmtNow() string {
	return time.Now().UTC().Format(http.TimeFormat)
}
