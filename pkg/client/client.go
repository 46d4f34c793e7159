package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/terra-clan/challenge-progress/internal/models"
)

// Client is a Go SDK for the progress-hub API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new progress-hub client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// CompletionResult is the outcome of completing a challenge
type CompletionResult struct {
	ChallengeID         string    `json:"challengeId"`
	NewlyCompleted      bool      `json:"newlyCompleted"`
	Score               int       `json:"score"`
	CompletedChallenges int       `json:"completedChallenges"`
	CompletedAt         time.Time `json:"completedAt"`
}

// Score is the profile's current score
type Score struct {
	Score               int `json:"score"`
	CompletedChallenges int `json:"completedChallenges"`
}

// Rank is the profile's position on the leaderboard
type Rank struct {
	UserID string `json:"userId"`
	Rank   int    `json:"rank,omitempty"`
	Ranked bool   `json:"ranked"`
	Hidden bool   `json:"hidden"`
}

// Normalized is the result of resolving a challenge alias
type Normalized struct {
	Input     string   `json:"input"`
	Canonical string   `json:"canonical"`
	Alias     bool     `json:"alias"`
	Known     bool     `json:"known"`
	Aliases   []string `json:"aliases"`
}

// Profile is the combined view returned by /me
type Profile struct {
	UserID      string                 `json:"userId"`
	Preferences models.UserPreferences `json:"preferences"`
	Progress    models.UserProgress    `json:"progress"`
	Score       int                    `json:"score"`
	Rank        *int                   `json:"rank,omitempty"`
	RankHidden  bool                   `json:"rankHidden,omitempty"`
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// UserID returns the stable profile id
func (c *Client) UserID(ctx context.Context) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/user/id", nil, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// Me returns progress, preferences, score and rank in one call
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Progress returns the profile's progress record
func (c *Client) Progress(ctx context.Context) (*models.UserProgress, error) {
	var out models.UserProgress
	if err := c.do(ctx, http.MethodGet, "/api/v1/progress", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset clears progress, preferences and challenge payloads
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/progress", nil, nil)
}

// Score returns the profile's current score
func (c *Client) Score(ctx context.Context) (*Score, error) {
	var out Score
	if err := c.do(ctx, http.MethodGet, "/api/v1/score", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Preferences returns the profile's preferences
func (c *Client) Preferences(ctx context.Context) (*models.UserPreferences, error) {
	var out models.UserPreferences
	if err := c.do(ctx, http.MethodGet, "/api/v1/preferences", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePreferences applies a partial preferences update
func (c *Client) UpdatePreferences(ctx context.Context, patch models.PreferencesPatch) (*models.UserPreferences, error) {
	var out models.UserPreferences
	if err := c.do(ctx, http.MethodPut, "/api/v1/preferences", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Challenges lists the catalog with completion flags
func (c *Client) Challenges(ctx context.Context) ([]models.ChallengeStatus, error) {
	var out struct {
		Challenges []models.ChallengeStatus `json:"challenges"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/challenges", nil, &out); err != nil {
		return nil, err
	}
	return out.Challenges, nil
}

// Normalize resolves a challenge id to its canonical form
func (c *Client) Normalize(ctx context.Context, id string) (*Normalized, error) {
	var out Normalized
	path := fmt.Sprintf("/api/v1/challenges/%s/normalize", url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Aliases returns the alias table mapping old identifiers to canonical ids
func (c *Client) Aliases(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	if err := c.do(ctx, http.MethodGet, "/api/v1/challenges/aliases", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Complete marks a challenge as completed
func (c *Client) Complete(ctx context.Context, id string) (*CompletionResult, error) {
	var out CompletionResult
	path := fmt.Sprintf("/api/v1/challenges/%s/complete", url.PathEscape(id))
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard returns up to limit ranked entries; limit <= 0 returns all
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]models.RankedEntry, error) {
	path := "/api/v1/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out struct {
		Entries []models.RankedEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Rank returns the profile's leaderboard position
func (c *Client) Rank(ctx context.Context) (*Rank, error) {
	var out Rank
	if err := c.do(ctx, http.MethodGet, "/api/v1/leaderboard/rank", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPayload decodes the payload stored under namespace into out.
// Returns false if nothing is stored.
func (c *Client) GetPayload(ctx context.Context, namespace string, out interface{}) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/api/v1/payloads/"+url.PathEscape(namespace), nil, out)
	if IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// PutPayload stores v under namespace
func (c *Client) PutPayload(ctx context.Context, namespace string, v interface{}) error {
	return c.do(ctx, http.MethodPut, "/api/v1/payloads/"+url.PathEscape(namespace), v, nil)
}

// GetBlob decodes the blob stored for a challenge into out
func (c *Client) GetBlob(ctx context.Context, challengeID string, out interface{}) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/api/v1/blobs/"+url.PathEscape(challengeID), nil, out)
	if IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// PutBlob stores v as the blob for a challenge
func (c *Client) PutBlob(ctx context.Context, challengeID string, v interface{}) error {
	return c.do(ctx, http.MethodPut, "/api/v1/blobs/"+url.PathEscape(challengeID), v, nil)
}

// Translations returns the translation history, newest first
func (c *Client) Translations(ctx context.Context) ([]models.TranslationRecord, error) {
	var out struct {
		Translations []models.TranslationRecord `json:"translations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/translations", nil, &out); err != nil {
		return nil, err
	}
	return out.Translations, nil
}

// AddTranslation saves a translation and returns it with its id
func (c *Client) AddTranslation(ctx context.Context, rec models.TranslationRecord) (*models.TranslationRecord, error) {
	var out models.TranslationRecord
	if err := c.do(ctx, http.MethodPost, "/api/v1/translations", rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends in as the JSON body and decodes the envelope's data into out
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	status, resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		if status >= 400 {
			return fmt.Errorf("HTTP %d: %s", status, string(resp))
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success || status >= 400 {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "unknown", Message: http.StatusText(status)}
		}
		apiErr.Status = status
		return apiErr
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	endpoint := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
