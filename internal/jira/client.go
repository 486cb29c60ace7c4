package jira

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// searchPageSize is the page size used when walking search results.
const searchPageSize = 50

// Client handles communication with the Jira REST API.
type Client struct {
	APIURL *url.URL     // Base API URL (must include /rest/api/X)
	Client *http.Client // Underlying HTTP client
	auth   AuthFunc
}

// NewClient returns a Jira client with the given base URL and authentication function.
func NewClient(apiURL *url.URL, auth AuthFunc, skipVerify bool) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: skipVerify,
		},
	}
	return &Client{
		APIURL: apiURL,
		Client: &http.Client{Transport: tr},
		auth:   auth,
	}
}

// SearchIssues walks all pages of a JQL search and returns the matched
// issues in server order.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]*Issue, error) {
	if strings.TrimSpace(jql) == "" {
		return nil, fmt.Errorf("missing JQL query")
	}

	var issues []*Issue
	for startAt := 0; ; {
		params := url.Values{}
		params.Set("jql", jql)
		params.Set("startAt", strconv.Itoa(startAt))
		params.Set("maxResults", strconv.Itoa(searchPageSize))

		body, _, err := c.doRequest(ctx, http.MethodGet, "search?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var page SearchResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}
		for _, issue := range page.Issues {
			issue.browseURL = c.browseURL(issue.Key)
			issues = append(issues, issue)
		}
		startAt += len(page.Issues)
		if startAt >= page.Total || len(page.Issues) == 0 {
			return issues, nil
		}
	}
}

// GetIssue fetches one issue with its full field map.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	body, _, err := c.doRequest(ctx, http.MethodGet, "issue/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}
	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("decode issue %s: %w", key, err)
	}
	issue.browseURL = c.browseURL(issue.Key)
	return &issue, nil
}

// CreateIssue creates an issue and fetches it back so the caller sees the
// full field map, not just the identifiers of the create reply.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*Issue, error) {
	body, _, err := c.doRequest(ctx, http.MethodPost, "issue", map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}
	var created createResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("decode create response: %w", err)
	}
	return c.GetIssue(ctx, created.Key)
}

// UpdateIssue overwrites the given fields of an issue.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]any) error {
	_, _, err := c.doRequest(ctx, http.MethodPut, "issue/"+url.PathEscape(key), map[string]any{"fields": fields})
	return err
}

// LinkIssues creates a link of the named type between two issues.
func (c *Client) LinkIssues(ctx context.Context, linkType, inwardKey, outwardKey string) error {
	payload := map[string]any{
		"type":         map[string]any{"name": linkType},
		"inwardIssue":  map[string]any{"key": inwardKey},
		"outwardIssue": map[string]any{"key": outwardKey},
	}
	_, _, err := c.doRequest(ctx, http.MethodPost, "issueLink", payload)
	return err
}

// Transitions lists the workflow transitions currently available on an issue.
func (c *Client) Transitions(ctx context.Context, key string) ([]Transition, error) {
	body, _, err := c.doRequest(ctx, http.MethodGet, "issue/"+url.PathEscape(key)+"/transitions", nil)
	if err != nil {
		return nil, err
	}
	var decoded transitionsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode transitions for %s: %w", key, err)
	}
	return decoded.Transitions, nil
}

// TransitionIssue moves an issue to the target status. The target is matched
// case-insensitively against the names of the currently available
// transitions; comment and fields are attached to the transition request
// when set.
func (c *Client) TransitionIssue(ctx context.Context, key, target, comment string, fields map[string]any) error {
	transitions, err := c.Transitions(ctx, key)
	if err != nil {
		return err
	}

	var id string
	names := make([]string, 0, len(transitions))
	for _, t := range transitions {
		names = append(names, t.Name)
		if id == "" && strings.EqualFold(t.Name, target) {
			id = t.ID
		}
	}
	if id == "" {
		return fmt.Errorf("no transition %q available on %s (available: %s)", target, key, strings.Join(names, ", "))
	}

	payload := map[string]any{
		"transition": map[string]any{"id": id},
	}
	if len(fields) > 0 {
		payload["fields"] = fields
	}
	if comment != "" {
		payload["update"] = map[string]any{
			"comment": []any{map[string]any{"add": map[string]any{"body": comment}}},
		}
	}
	_, _, err = c.doRequest(ctx, http.MethodPost, "issue/"+url.PathEscape(key)+"/transitions", payload)
	return err
}

// doRequest performs an authenticated HTTP request and returns response body, status, and error.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (response []byte, statusCode int, err error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	// Parse path into relative URL with optional query
	relURL, err := url.Parse(path)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("parse path: %w", err)
	}
	fullURL := c.APIURL.ResolveReference(relURL).String()

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("create request: %w", err)
	}

	c.auth(req) // apply authentication

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, http.StatusBadGateway, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return respBody, resp.StatusCode, apiError(resp.StatusCode, respBody)
	}
	return respBody, resp.StatusCode, nil
}

// apiError decodes an error body into an APIError, falling back to the raw
// body when it is not the usual JSON error shape.
func apiError(status int, body []byte) *APIError {
	var decoded errorResponse
	if err := json.Unmarshal(body, &decoded); err == nil && (len(decoded.ErrorMessages) > 0 || len(decoded.Errors) > 0) {
		return &APIError{Status: status, Messages: decoded.ErrorMessages, FieldErrors: decoded.Errors}
	}
	apiErr := &APIError{Status: status}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		apiErr.Messages = []string{msg}
	}
	return apiErr
}

// browseURL derives the user-facing issue URL from the API base, e.g.
// https://jira.example.com/rest/api/2/ becomes
// https://jira.example.com/browse/KEY.
func (c *Client) browseURL(key string) string {
	base := c.APIURL.String()
	if i := strings.Index(base, "/rest/"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, "/") + "/browse/" + key
}
