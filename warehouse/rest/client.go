// Package rest implements the warehouse collaborator interfaces over a
// query-service HTTP API. The service exposes schema introspection,
// dry-run validation, and query execution endpoints in front of the
// actual warehouse engine.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/dqagent/llm"
	"github.com/c360studio/dqagent/warehouse"
)

// maxResponseSize caps query-service response bodies.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client implements warehouse.SchemaProvider, warehouse.Validator, and
// warehouse.Executor against a query service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// New creates a query-service client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type schemaRequest struct {
	ProjectID string `json:"project_id"`
	DatasetID string `json:"dataset_id"`
}

// GetSchema fetches the table/column snapshot for a target.
func (c *Client) GetSchema(ctx context.Context, target warehouse.Target) (*warehouse.Schema, error) {
	var schema warehouse.Schema
	err := c.post(ctx, "/v1/schema", schemaRequest{
		ProjectID: target.ProjectID,
		DatasetID: target.DatasetID,
	}, &schema)
	if err != nil {
		return nil, fmt.Errorf("get schema for %s: %w", target, err)
	}
	schema.Target = target
	return &schema, nil
}

type validateRequest struct {
	SQL       string `json:"sql"`
	ProjectID string `json:"project_id"`
	DatasetID string `json:"dataset_id"`
}

type validateResponse struct {
	Valid    bool   `json:"valid"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Validate submits SQL for a dry run. Engine rejections come back as
// *warehouse.ValidationError; transport errors are wrapped as transient.
func (c *Client) Validate(ctx context.Context, sql string, target warehouse.Target) error {
	var resp validateResponse
	err := c.post(ctx, "/v1/validate", validateRequest{
		SQL:       sql,
		ProjectID: target.ProjectID,
		DatasetID: target.DatasetID,
	}, &resp)
	if err != nil {
		return fmt.Errorf("validate against %s: %w", target, err)
	}

	if resp.Valid {
		return nil
	}

	category := warehouse.ErrorCategory(resp.Category)
	switch category {
	case warehouse.CategorySyntax, warehouse.CategorySemantic:
	default:
		category = warehouse.CategoryOther
	}
	return &warehouse.ValidationError{Category: category, Message: resp.Message}
}

type executeRequest struct {
	Question  string `json:"question"`
	ProjectID string `json:"project_id"`
	DatasetID string `json:"dataset_id"`
}

type executeResponse struct {
	Answer string `json:"answer"`
}

// Execute forwards an exploratory question to the query service and
// returns its answer unmodified.
func (c *Client) Execute(ctx context.Context, questionOrSQL string, target warehouse.Target) (string, error) {
	var resp executeResponse
	err := c.post(ctx, "/v1/execute", executeRequest{
		Question:  questionOrSQL,
		ProjectID: target.ProjectID,
		DatasetID: target.DatasetID,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("execute against %s: %w", target, err)
	}
	return resp.Answer, nil
}

// post sends a JSON request and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return llm.NewFatalError(fmt.Errorf("marshal request: %w", err))
	}

	url := c.baseURL + path
	c.logger.Debug("Query service request", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return llm.NewFatalError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are transient
		return llm.NewTransientError(fmt.Errorf("query service request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return llm.NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return classifyHTTPError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return llm.NewFatalError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// classifyHTTPError determines if a query-service error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("query service error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests, statusCode >= 500:
		return llm.NewTransientError(err)
	default:
		return llm.NewFatalError(err)
	}
}
