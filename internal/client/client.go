// Package client talks to a running Darkwatch server over its REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/services"
)

const (
	rulesPath       = "/api/v1/rules/active-keywords"
	sensitivityPath = "/api/v1/rules/sensitivity"
	actorHeader     = "X-Darkwatch-Actor"
	maxErrorBody    = 64 << 10
)

// TransportError means the request may or may not have been applied: the
// server was unreachable or answered with an unexpected status. Callers
// should re-list before retrying a write.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

type Option func(*Client)

// WithHTTPClient replaces the default client with a 10s timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithActor sends name with every write so the server can audit it.
func WithActor(name string) Option {
	return func(c *Client) { c.actor = name }
}

// Client implements services.RuleRepository against a remote server.
type Client struct {
	baseURL string
	http    *http.Client
	actor   string
}

var _ services.RuleRepository = (*Client)(nil)

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.actor != "" {
		req.Header.Set(actorHeader, c.actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &eb)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		verr := services.NewValidationError()
		for k, v := range eb.Fields {
			verr.Add(k, v)
		}
		if len(verr.Fields) == 0 {
			verr.Add("request", eb.Error)
		}
		return verr
	case http.StatusNotFound:
		if strings.HasPrefix(path, rulesPath) {
			return services.ErrRuleNotFound
		}
	}
	return &TransportError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Message:    eb.Error,
		Err:        errors.New(http.StatusText(resp.StatusCode)),
	}
}

// List returns every rule in insertion order.
func (c *Client) List(ctx context.Context) ([]models.ActiveKeywordRule, error) {
	var rules []models.ActiveKeywordRule
	if err := c.do(ctx, http.MethodGet, rulesPath, nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (c *Client) Get(ctx context.Context, id string) (*models.ActiveKeywordRule, error) {
	var rule models.ActiveKeywordRule
	if err := c.do(ctx, http.MethodGet, rulesPath+"/"+url.PathEscape(id), nil, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (c *Client) Create(ctx context.Context, in models.RuleInput) (*models.ActiveKeywordRule, error) {
	if err := checkFinite(in); err != nil {
		return nil, err
	}
	var rule models.ActiveKeywordRule
	if err := c.do(ctx, http.MethodPost, rulesPath, in, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (c *Client) Update(ctx context.Context, id string, in models.RuleInput) (*models.ActiveKeywordRule, error) {
	if err := checkFinite(in); err != nil {
		return nil, err
	}
	var rule models.ActiveKeywordRule
	if err := c.do(ctx, http.MethodPut, rulesPath+"/"+url.PathEscape(id), in, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// checkFinite rejects NaN and infinite factors, which JSON cannot carry.
func checkFinite(in models.RuleInput) error {
	verr := services.NewValidationError()
	for _, f := range []struct {
		name string
		v    *float64
	}{{"dpc", in.DPC}, {"ei", in.EI}, {"cb", in.CB}} {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			verr.Add(f.name, f.name+" must be a finite number")
		}
	}
	return verr.OrNil()
}

func (c *Client) GetSensitivity(ctx context.Context) (*models.SensitivityConfig, error) {
	var cfg models.SensitivityConfig
	if err := c.do(ctx, http.MethodGet, sensitivityPath, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) SaveSensitivity(ctx context.Context, gamma float64) (*models.SensitivityConfig, error) {
	if math.IsNaN(gamma) || math.IsInf(gamma, 0) {
		verr := services.NewValidationError()
		verr.Add("gamma", "gamma must be a finite number")
		return nil, verr
	}
	var cfg models.SensitivityConfig
	if err := c.do(ctx, http.MethodPut, sensitivityPath, map[string]float64{"gamma": gamma}, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sensitivity adapts the client to the Get/Save shape used by the gamma draft.
func (c *Client) Sensitivity() *SensitivityClient {
	return &SensitivityClient{c: c}
}

type SensitivityClient struct {
	c *Client
}

func (s *SensitivityClient) Get(ctx context.Context) (*models.SensitivityConfig, error) {
	return s.c.GetSensitivity(ctx)
}

func (s *SensitivityClient) Save(ctx context.Context, gamma float64) (*models.SensitivityConfig, error) {
	return s.c.SaveSensitivity(ctx, gamma)
}
