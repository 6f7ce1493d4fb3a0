// Package store queries extension catalogs and downloads manifests and
// packages across the trust boundary.
package store

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

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/felixgeelhaar/extkit/internal/domain/integrity"
	"github.com/felixgeelhaar/extkit/internal/domain/manifest"
	"github.com/felixgeelhaar/extkit/internal/ports"
)

// Operation names reported to the Observer.
const (
	OpList     = "list"
	OpDetails  = "details"
	OpManifest = "manifest"
	OpPackage  = "package"
)

// Size limits applied when no limit is configured.
const (
	DefaultMaxResponseBytes = 8 << 20
	DefaultMaxManifestBytes = 1 << 20
	DefaultMaxPackageBytes  = 256 << 20
)

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	// Timeout bounds each request, including reading the body.
	Timeout time.Duration
	// UserAgent is the User-Agent header value.
	UserAgent string
	// Algorithm is the digest used to check package checksums.
	Algorithm integrity.Algorithm
	// MaxResponseBytes bounds listing and details responses.
	MaxResponseBytes int64
	// MaxManifestBytes bounds manifest downloads.
	MaxManifestBytes int64
	// MaxPackageBytes bounds package downloads.
	MaxPackageBytes int64
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:          30 * time.Second,
		UserAgent:        "extkit/1.0",
		Algorithm:        integrity.Default,
		MaxResponseBytes: DefaultMaxResponseBytes,
		MaxManifestBytes: DefaultMaxManifestBytes,
		MaxPackageBytes:  DefaultMaxPackageBytes,
	}
}

// Observer receives per-request outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRequest(op string, status int, elapsed time.Duration, err error)
	ObserveRejection(op string, reason string)
}

// ClientOption configures optional collaborators.
type ClientOption func(*Client)

// WithLogger logs every request at debug level and rejections at warn.
func WithLogger(logger ports.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithObserver reports request outcomes to o.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) { c.observer = o }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// Client fetches catalog data. Each call makes exactly one request and never
// retries. A Client is safe for concurrent use.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     ports.Logger
	observer   Observer
}

// NewClient creates a new catalog client.
func NewClient(config ClientConfig, opts ...ClientOption) *Client {
	if config.Algorithm == "" {
		config.Algorithm = integrity.Default
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if config.MaxManifestBytes <= 0 {
		config.MaxManifestBytes = DefaultMaxManifestBytes
	}
	if config.MaxPackageBytes <= 0 {
		config.MaxPackageBytes = DefaultMaxPackageBytes
	}
	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListURL builds the listing URL. Parameters appear in a fixed order:
// page, limit, type, tags, search, sort.
func ListURL(baseURL string, filters Filters, sort SortOption, page, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/extensions?page=%d&limit=%d", strings.TrimRight(baseURL, "/"), page, limit)
	if filters.Type != nil {
		b.WriteString("&type=" + filters.Type.String())
	}
	if len(filters.Tags) > 0 {
		tags := make([]string, len(filters.Tags))
		for i, tag := range filters.Tags {
			tags[i] = encode(tag)
		}
		b.WriteString("&tags=" + strings.Join(tags, ","))
	}
	if filters.Search != "" {
		b.WriteString("&search=" + encode(filters.Search))
	}
	b.WriteString("&sort=" + sort.Token())
	return b.String()
}

// DetailsURL builds the details URL for id.
func DetailsURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/extensions/" + url.PathEscape(id)
}

// encode percent-encodes a query value, spaces as %20.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// FetchExtensions lists a page of the catalog at baseURL.
func (c *Client) FetchExtensions(ctx context.Context, baseURL string, filters Filters, sort SortOption, page, limit int) ([]Extension, error) {
	data, err := c.fetch(ctx, OpList, ListURL(baseURL, filters, sort, page, limit), c.config.MaxResponseBytes)
	if err != nil {
		return nil, err
	}

	var exts []Extension
	if err := json.Unmarshal(data, &exts); err != nil {
		return nil, &extension.DecodeError{Err: err}
	}
	return exts, nil
}

// FetchExtensionDetails fetches the full record for id.
func (c *Client) FetchExtensionDetails(ctx context.Context, baseURL, id string) (*Details, error) {
	data, err := c.fetch(ctx, OpDetails, DetailsURL(baseURL, id), c.config.MaxResponseBytes)
	if err != nil {
		return nil, err
	}

	var d Details
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &extension.DecodeError{Err: err}
	}
	return &d, nil
}

// DownloadManifest fetches a manifest and runs the store-origin checks on
// it. A manifest that fails them is discarded.
func (c *Client) DownloadManifest(ctx context.Context, manifestURL string) (*extension.Manifest, error) {
	data, err := c.fetch(ctx, OpManifest, manifestURL, c.config.MaxManifestBytes)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := manifest.ValidateStoreOrigin(m); err != nil {
		c.reject(ctx, OpManifest, manifestURL, err)
		return nil, err
	}
	return m, nil
}

// DownloadExtension fetches package bytes and returns them only if their
// digest equals expectedChecksum exactly.
func (c *Client) DownloadExtension(ctx context.Context, packageURL, expectedChecksum string) ([]byte, error) {
	data, err := c.fetch(ctx, OpPackage, packageURL, c.config.MaxPackageBytes)
	if err != nil {
		return nil, err
	}

	if err := integrity.Verify(c.config.Algorithm, data, expectedChecksum); err != nil {
		if errors.Is(err, integrity.ErrChecksumMismatch) {
			err = &extension.SecurityError{Reason: "Checksum mismatch", Err: err}
			c.reject(ctx, OpPackage, packageURL, err)
		}
		return nil, err
	}
	return data, nil
}

// fetch performs an HTTP GET request and reads at most limit bytes.
func (c *Client) fetch(ctx context.Context, op, rawURL string, limit int64) (data []byte, err error) {
	start := time.Now()
	status := 0
	defer func() {
		elapsed := time.Since(start)
		if c.observer != nil {
			c.observer.ObserveRequest(op, status, elapsed, err)
		}
		if c.logger != nil {
			c.logger.Debug(ctx, "GET "+rawURL,
				ports.F("op", op),
				ports.F("status", status),
				ports.F("elapsed", elapsed.String()),
				ports.F("bytes", len(data)))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &extension.NetworkError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	if op != OpPackage {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &extension.NetworkError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &extension.NetworkError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &extension.NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > limit {
		err := &extension.SecurityError{Reason: fmt.Sprintf("Response exceeds size limit of %d bytes", limit)}
		c.reject(ctx, op, rawURL, err)
		return nil, err
	}
	return body, nil
}

func (c *Client) reject(ctx context.Context, op, rawURL string, err error) {
	reason := extension.Reason(err)
	if c.observer != nil {
		c.observer.ObserveRejection(op, reason)
	}
	if c.logger != nil {
		c.logger.Warn(ctx, "rejected download", ports.F("op", op), ports.F("url", rawURL), ports.F("reason", reason))
	}
}
