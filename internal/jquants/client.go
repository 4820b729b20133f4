package jquants

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/kabu/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the J-Quants API.
	DefaultBaseURL = "https://api.jquants.com/v1"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5
)

// Credentials hold the J-Quants account secrets. RefreshToken takes
// precedence; otherwise MailAddress+Password are exchanged for one.
type Credentials struct {
	RefreshToken string
	MailAddress  string
	Password     string
}

// Client is a J-Quants API client. The ID token obtained from the refresh
// token is cached and renewed transparently when a request is rejected
// with 401.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter

	mu           sync.Mutex
	refreshToken string
	idToken      string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new J-Quants API client.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		refreshToken: creds.RefreshToken,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// authenticate obtains an ID token, exchanging mail+password for a refresh
// token first when none is configured. Callers must hold c.mu.
func (c *Client) authenticate(ctx context.Context) error {
	if c.refreshToken == "" {
		if c.creds.MailAddress == "" || c.creds.Password == "" {
			return &AuthError{Stage: "auth_user", Message: "no refresh token and no mail address/password configured"}
		}

		body := fmt.Sprintf(`{"mailaddress":%q,"password":%q}`, c.creds.MailAddress, c.creds.Password)
		var result struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.post(ctx, "/token/auth_user", nil, body, &result); err != nil {
			return &AuthError{Stage: "auth_user", Message: err.Error()}
		}
		if result.RefreshToken == "" {
			return &AuthError{Stage: "auth_user", Message: "empty refresh token in response"}
		}
		c.refreshToken = result.RefreshToken
	}

	params := url.Values{}
	params.Set("refreshtoken", c.refreshToken)

	var result struct {
		IDToken string `json:"idToken"`
	}
	if err := c.post(ctx, "/token/auth_refresh", params, "", &result); err != nil {
		return &AuthError{Stage: "auth_refresh", Message: err.Error()}
	}
	if result.IDToken == "" {
		return &AuthError{Stage: "auth_refresh", Message: "empty ID token in response"}
	}

	c.idToken = result.IDToken

	if c.logger != nil {
		c.logger.Debug().Msg("J-Quants ID token refreshed")
	}
	return nil
}

// post performs a POST request without auth headers (token endpoints only).
func (c *Client) post(ctx context.Context, path string, params url.Values, body string, result interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// get performs an authenticated GET request, refreshing the ID token once
// on 401. It returns the raw response body for pagination handling.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	c.mu.Lock()
	if c.idToken == "" {
		if err := c.authenticate(ctx); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	token := c.idToken
	c.mu.Unlock()

	statusCode, err := c.doGet(ctx, path, params, token, result)
	if statusCode == http.StatusUnauthorized {
		// Token expired; refresh once and retry
		c.mu.Lock()
		c.idToken = ""
		if authErr := c.authenticate(ctx); authErr != nil {
			c.mu.Unlock()
			return authErr
		}
		token = c.idToken
		c.mu.Unlock()

		_, err = c.doGet(ctx, path, params, token, result)
	}
	return err
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, token string, result interface{}) (int, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("J-Quants API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// GetStatements retrieves financial statement disclosures for a security
// code, following pagination until exhausted.
func (c *Client) GetStatements(ctx context.Context, code string, opts ...QueryOption) ([]models.Statement, error) {
	params := &queryParams{}
	for _, opt := range opts {
		opt(params)
	}

	queryParams := url.Values{}
	queryParams.Set("code", code)
	if !params.Date.IsZero() {
		queryParams.Set("date", params.Date.Format("20060102"))
	}

	var statements []models.Statement
	paginationKey := ""
	for {
		if paginationKey != "" {
			queryParams.Set("pagination_key", paginationKey)
		}

		var page struct {
			Statements    []models.Statement `json:"statements"`
			PaginationKey string             `json:"pagination_key"`
		}
		if err := c.get(ctx, "/fins/statements", queryParams, &page); err != nil {
			return nil, err
		}

		statements = append(statements, page.Statements...)
		if page.PaginationKey == "" {
			break
		}
		paginationKey = page.PaginationKey
	}

	return statements, nil
}

// GetDailyQuotes retrieves daily price/volume bars for a security code,
// following pagination until exhausted.
func (c *Client) GetDailyQuotes(ctx context.Context, code string, opts ...QueryOption) ([]models.DailyQuote, error) {
	params := &queryParams{}
	for _, opt := range opts {
		opt(params)
	}

	queryParams := url.Values{}
	queryParams.Set("code", code)
	if !params.From.IsZero() {
		queryParams.Set("from", params.From.Format("20060102"))
	}
	if !params.To.IsZero() {
		queryParams.Set("to", params.To.Format("20060102"))
	}

	var quotes []models.DailyQuote
	paginationKey := ""
	for {
		if paginationKey != "" {
			queryParams.Set("pagination_key", paginationKey)
		}

		var page struct {
			DailyQuotes   []models.DailyQuote `json:"daily_quotes"`
			PaginationKey string              `json:"pagination_key"`
		}
		if err := c.get(ctx, "/prices/daily_quotes", queryParams, &page); err != nil {
			return nil, err
		}

		quotes = append(quotes, page.DailyQuotes...)
		if page.PaginationKey == "" {
			break
		}
		paginationKey = page.PaginationKey
	}

	return quotes, nil
}

// GetListedInfo retrieves the listed company master, following pagination
// until exhausted.
func (c *Client) GetListedInfo(ctx context.Context) ([]models.ListedCompany, error) {
	var companies []models.ListedCompany
	queryParams := url.Values{}
	paginationKey := ""
	for {
		if paginationKey != "" {
			queryParams.Set("pagination_key", paginationKey)
		}

		var page struct {
			Info          []models.ListedCompany `json:"info"`
			PaginationKey string                 `json:"pagination_key"`
		}
		if err := c.get(ctx, "/listed/info", queryParams, &page); err != nil {
			return nil, err
		}

		companies = append(companies, page.Info...)
		if page.PaginationKey == "" {
			break
		}
		paginationKey = page.PaginationKey
	}

	return companies, nil
}
