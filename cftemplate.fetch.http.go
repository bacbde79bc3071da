package cftemplate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPConfig configures the HTTP fetcher.
type HTTPConfig struct {
	// Host is the form service host, optionally with a scheme
	// ("api.commonform.org", "http://localhost:8080").
	// Default: api.commonform.org
	Host string

	// Scheme is used when Host carries none.
	// Default: https
	Scheme string

	// Timeout bounds each request. Ignored when Client is set.
	// Default: 30 seconds
	Timeout time.Duration

	// Client overrides the HTTP client.
	Client *http.Client

	// UserAgent is sent with every request.
	UserAgent string

	// Logger receives debug logs for each request.
	Logger *zap.Logger
}

// DefaultHTTPConfig returns a configuration for the public form service
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host:      DefaultAPIHost,
		Scheme:    DefaultScheme,
		Timeout:   HTTPDefaultTimeout,
		UserAgent: HTTPDefaultUserAgent,
	}
}

// HTTPFetcher retrieves forms and publications from a Common Form API server.
type HTTPFetcher struct {
	baseURL   string
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// HTTPFetcherDriver is the driver for creating HTTPFetcher instances.
type HTTPFetcherDriver struct{}

func init() {
	RegisterFetcherDriver(FetcherDriverHTTP, &HTTPFetcherDriver{})
}

// Open creates an HTTPFetcher. The source is the host; empty means the default.
func (d *HTTPFetcherDriver) Open(source string) (FetcherCloser, error) {
	config := DefaultHTTPConfig()
	if source != "" {
		config.Host = source
	}
	return NewHTTPFetcher(config)
}

// NewHTTPFetcher creates an HTTP fetcher, filling zero fields from DefaultHTTPConfig
func NewHTTPFetcher(config HTTPConfig) (*HTTPFetcher, error) {
	defaults := DefaultHTTPConfig()
	if config.Host == "" {
		config.Host = defaults.Host
	}
	if config.Scheme == "" {
		config.Scheme = defaults.Scheme
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	baseURL, err := httpBaseURL(config.Host, config.Scheme)
	if err != nil {
		return nil, err
	}

	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &HTTPFetcher{
		baseURL:   baseURL,
		client:    client,
		userAgent: config.UserAgent,
		logger:    config.Logger,
	}, nil
}

func httpBaseURL(host, scheme string) (string, error) {
	raw := host
	if !strings.Contains(host, "://") {
		raw = scheme + "://" + host
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", NewInvalidFetcherSourceError(FetcherDriverHTTP, host)
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}

// BaseURL returns the scheme, host and path prefix requests are sent to
func (f *HTTPFetcher) BaseURL() string {
	return f.baseURL
}

// FetchForm performs GET /forms/<digest>
func (f *HTTPFetcher) FetchForm(ctx context.Context, digest string) (*Form, error) {
	if err := checkDigest(digest); err != nil {
		return nil, err
	}

	f.logger.Debug(LogMsgFetchForm, zap.String(LogFieldDigest, digest))

	target := f.baseURL + HTTPPathForms + digest
	data, status, err := f.get(ctx, target)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, NewFormNotFoundError(digest)
	}
	if !isSuccess(status) {
		return nil, NewUnexpectedStatusError(target, status)
	}
	return ParseFormJSON(data)
}

// FetchPublication performs GET /publishers/<p>/projects/<q>/publications/<e>
func (f *HTTPFetcher) FetchPublication(ctx context.Context, publisher, project, edition string) (*Publication, error) {
	if err := checkPublication(publisher, project, edition); err != nil {
		return nil, err
	}

	ref := PublicationRef{Publisher: publisher, Project: project, Edition: edition}
	f.logger.Debug(LogMsgFetchPublication,
		zap.String(LogFieldPublication, ref.String()))

	target := f.baseURL +
		HTTPPathPublishers + url.PathEscape(publisher) +
		HTTPPathProjects + url.PathEscape(project) +
		HTTPPathPublications + url.PathEscape(edition)
	data, status, err := f.get(ctx, target)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, NewPublicationNotFoundError(ref)
	}
	if !isSuccess(status) {
		return nil, NewUnexpectedStatusError(target, status)
	}

	var pub Publication
	if err := json.Unmarshal(data, &pub); err != nil {
		return nil, NewInvalidResponseError(target, err)
	}
	if err := checkDigest(pub.Digest); err != nil {
		return nil, NewInvalidResponseError(target, err)
	}
	pub.Publisher, pub.Project, pub.Edition = publisher, project, edition
	return &pub, nil
}

func (f *HTTPFetcher) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, NewFetchError(target, err)
	}
	req.Header.Set(HTTPHeaderAccept, HTTPContentTypeJSON)
	req.Header.Set(HTTPHeaderUserAgent, f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, NewFetchError(target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, HTTPMaxResponseBytes))
	if err != nil {
		return nil, 0, NewFetchError(target, err)
	}

	f.logger.Debug(LogMsgFetchComplete,
		zap.String(LogFieldURL, target),
		zap.Int(LogFieldStatus, resp.StatusCode),
		zap.Int(LogFieldLength, len(data)))

	return data, resp.StatusCode, nil
}

func isSuccess(status int) bool {
	return status >= HTTPStatusSuccessFloor && status < HTTPStatusSuccessCeil
}

// Close releases idle connections
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
