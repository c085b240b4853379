package acdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nmrupload/internal/filetree"
	"nmrupload/internal/formbody"
	"nmrupload/internal/logging"
)

const (
	// DefaultBaseURL is the production ACData instance.
	DefaultBaseURL = "https://researchdata.unsw.edu.au"
	// Boundary separates the parts of every dataset upload.
	Boundary = "IntersectACDataDatasetAPI"

	signInPath     = "/users/sign_in.json"
	datasetsPath   = "/api/datasets"
	instrumentPath = "/api/instruments"
	samplesPath    = "/api/samples"
	projectsPath   = "/api/projects"

	defaultUserAgent   = "nmrupload/dev"
	defaultHTTPTimeout = 5 * time.Minute
)

// Resource names a listable collection.
type Resource string

const (
	ResourceInstruments Resource = "instruments"
	ResourceSamples     Resource = "samples"
	ResourceProjects    Resource = "projects"
)

func (r Resource) path() (string, error) {
	switch r {
	case ResourceInstruments:
		return instrumentPath, nil
	case ResourceSamples:
		return samplesPath, nil
	case ResourceProjects:
		return projectsPath, nil
	default:
		return "", fmt.Errorf("acdata: unknown resource %q", string(r))
	}
}

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to one ACData instance.
type Client struct {
	baseURL   string
	userAgent string
	http      HTTPDoer
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout replaces the default HTTP client with one using timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http = &http.Client{Timeout: timeout}
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if ua := strings.TrimSpace(userAgent); ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client for baseURL, falling back to DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("acdata: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("acdata: base url %q must use http or https", base)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("acdata: base url %q has no host", base)
	}

	client := &Client{
		baseURL:   strings.TrimRight(base, "/"),
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: defaultHTTPTimeout},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Login signs in with the given credentials. It returns the session cookie
// value, or an empty Session when the response set no session cookie; callers
// must check Session.Valid.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	payload := map[string]any{
		"user": map[string]string{
			"login":    username,
			"password": password,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal login request: %w", err)
	}

	resp, _, err := c.send(ctx, http.MethodPost, signInPath, "", "application/json", body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		return "", &AuthenticationError{Status: resp.StatusCode, Message: statusMessage(resp)}
	}

	session, _ := ExtractSession(resp.Header)
	return session, nil
}

// List fetches one of the listable collections. An empty or whitespace-only
// response body yields a nil result.
func (c *Client) List(ctx context.Context, session Session, resource Resource) (any, error) {
	data, err := c.get(ctx, session, resource)
	if err != nil {
		return nil, err
	}
	return parseBody(data, string(resource))
}

// SampleParams describes a sample to create.
type SampleParams struct {
	ProjectID    string
	ExperimentID string
	Name         string
	Description  string
}

type sampleRequest struct {
	ProjectID    string       `json:"project_id"`
	ExperimentID *string      `json:"experiment_id"`
	Sample       sampleFields `json:"sample"`
}

type sampleFields struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// CreateSample creates a sample under the given project and experiment.
func (c *Client) CreateSample(ctx context.Context, session Session, params SampleParams) (Record, error) {
	req := sampleRequest{
		ProjectID: params.ProjectID,
		Sample:    sampleFields{Name: params.Name},
	}
	if id := strings.TrimSpace(params.ExperimentID); id != "" {
		req.ExperimentID = &id
	}
	if desc := strings.TrimSpace(params.Description); desc != "" {
		req.Sample.Description = &desc
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal sample request: %w", err)
	}

	resp, data, err := c.send(ctx, http.MethodPost, samplesPath, session, "application/json", body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, newAPIError(resp, samplesPath, data)
	}
	return parseRecord(data, "create_sample")
}

// DatasetParams describes a dataset to create.
type DatasetParams struct {
	Name         string
	InstrumentID string
	SampleID     Identifier
	Files        []string
	Metadata     map[string]any
}

// DatasetRequest is the JSON document sent in the "dataset" part.
type DatasetRequest struct {
	Name         string           `json:"name"`
	SampleID     Identifier       `json:"sample_id"`
	InstrumentID string           `json:"instrument_id"`
	Files        []filetree.Entry `json:"files"`
	Metadata     map[string]any   `json:"metadata"`
}

// EncodeDataset builds the metadata JSON and multipart body for params.
// It returns the body together with the file map used to build it.
func EncodeDataset(params DatasetParams) ([]byte, filetree.FileMap, error) {
	entries, files, err := filetree.Encode(params.Files)
	if err != nil {
		return nil, nil, err
	}
	metadata := params.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	doc, err := json.Marshal(DatasetRequest{
		Name:         params.Name,
		SampleID:     params.SampleID,
		InstrumentID: params.InstrumentID,
		Files:        entries,
		Metadata:     metadata,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal dataset request: %w", err)
	}
	body, err := formbody.Build(doc, files, Boundary)
	if err != nil {
		return nil, nil, err
	}
	return body, files, nil
}

// CreateDataset uploads files as a new dataset attached to a sample.
func (c *Client) CreateDataset(ctx context.Context, session Session, params DatasetParams) (Record, error) {
	body, files, err := EncodeDataset(params)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("dataset body encoded",
		logging.String("dataset", params.Name),
		logging.Int("files", len(files)),
		logging.Int("bytes", len(body)),
	)

	resp, data, err := c.send(ctx, http.MethodPost, datasetsPath, session, formbody.ContentType(Boundary), body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, newAPIError(resp, datasetsPath, data)
	}
	return parseRecord(data, "create_dataset")
}

func (c *Client) get(ctx context.Context, session Session, resource Resource) ([]byte, error) {
	path, err := resource.path()
	if err != nil {
		return nil, err
	}
	resp, data, err := c.send(ctx, http.MethodGet, path, session, "application/json", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp, path, data)
	}
	return data, nil
}

// send issues one request and reads the full response body.
func (c *Client) send(ctx context.Context, method, path string, session Session, contentType string, body []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie := session.CookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	logger := logging.WithContext(ctx, c.logger)
	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, nil, fmt.Errorf("acdata %s %s (latency=%v): %w", method, path, latency, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	logger.Debug("acdata request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency),
	)
	return resp, data, nil
}

func newAPIError(resp *http.Response, endpoint string, body []byte) error {
	return &APIError{
		Status:   resp.StatusCode,
		Message:  statusMessage(resp),
		Endpoint: endpoint,
		Body:     errorBody(body),
	}
}

// parseBody decodes a JSON response. Empty and whitespace-only bodies yield
// nil without error.
func parseBody(data []byte, label string) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", label, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s response: unexpected trailing data", label)
	}
	return out, nil
}

func parseRecord(data []byte, label string) (Record, error) {
	parsed, err := parseBody(data, label)
	if err != nil || parsed == nil {
		return nil, err
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode %s response: expected object, got %T", label, parsed)
	}
	return Record(obj), nil
}
