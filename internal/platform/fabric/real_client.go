package fabric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Fabric REST control plane and KQL data plane.
type Client struct {
	apiBase     string
	queryBase   string
	tokens      TokenSource
	http        *http.Client
	callTimeout time.Duration
}

// NewClient creates a client for the given endpoints. Every call gets
// its own timeout, independent of any stage-level poll budget.
func NewClient(apiEndpoint, queryEndpoint string, tokens TokenSource, callTimeout time.Duration) *Client {
	return &Client{
		apiBase:     strings.TrimRight(apiEndpoint, "/"),
		queryBase:   strings.TrimRight(queryEndpoint, "/"),
		tokens:      tokens,
		http:        &http.Client{},
		callTimeout: callTimeout,
	}
}

// collectionPath returns the REST collection for a kind within its
// parent scope. Parent ids are discovered during reconciliation, so the
// paths only ever nest one level.
func collectionPath(kind Kind, parentID string) (string, error) {
	switch kind {
	case KindWorkspace:
		return "/workspaces", nil
	case KindDatabase:
		if parentID == "" {
			return "", fmt.Errorf("database requires a workspace id")
		}
		return "/workspaces/" + url.PathEscape(parentID) + "/kqlDatabases", nil
	case KindTable:
		if parentID == "" {
			return "", fmt.Errorf("table requires a database id")
		}
		return "/kqlDatabases/" + url.PathEscape(parentID) + "/tables", nil
	default:
		return "", fmt.Errorf("unknown resource kind %q", kind)
	}
}

type listResponse struct {
	Value []struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"value"`
}

type createResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CheckExists implements ControlPlane.
func (c *Client) CheckExists(ctx context.Context, kind Kind, name, parentID string) (bool, string, error) {
	path, err := collectionPath(kind, parentID)
	if err != nil {
		return false, "", err
	}

	body, err := c.do(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return false, "", fmt.Errorf("check %s %q: %w", kind, name, err)
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return false, "", fmt.Errorf("check %s %q: decode response: %w", kind, name, err)
	}

	for _, item := range list.Value {
		if item.DisplayName == name {
			return true, item.ID, nil
		}
	}
	return false, "", nil
}

// Create implements ControlPlane.
func (c *Client) Create(ctx context.Context, kind Kind, name, parentID string, def Definition) (string, error) {
	path, err := collectionPath(kind, parentID)
	if err != nil {
		return "", err
	}

	payload := map[string]any{"displayName": name}
	if len(def.Columns) > 0 {
		payload["schema"] = map[string]any{"columns": def.Columns}
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("create %s %q: encode request: %w", kind, name, err)
	}

	body, err := c.do(ctx, http.MethodPost, c.apiBase+path, reqBody)
	if err != nil {
		return "", fmt.Errorf("create %s %q: %w", kind, name, err)
	}

	var created createResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("create %s %q: decode response: %w", kind, name, err)
	}
	return created.ID, nil
}

// Probe implements ControlPlane with a minimal read against the
// workspace collection.
func (c *Client) Probe(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, c.apiBase+"/workspaces", nil); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return nil
}

type queryRequest struct {
	DB  string `json:"db"`
	CSL string `json:"csl"`
}

type queryResponse struct {
	Tables []struct {
		Columns []struct {
			Name string `json:"name"`
		} `json:"columns"`
		Rows [][]any `json:"rows"`
	} `json:"tables"`
}

// Query implements DataPlane against the KQL query endpoint.
func (c *Client) Query(ctx context.Context, database, expression string) (Rows, error) {
	reqBody, err := json.Marshal(queryRequest{DB: database, CSL: expression})
	if err != nil {
		return nil, fmt.Errorf("query %s: encode request: %w", database, err)
	}

	body, err := c.do(ctx, http.MethodPost, c.queryBase+"/v1/rest/query", reqBody)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", database, err)
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("query %s: decode response: %w", database, err)
	}
	if len(resp.Tables) == 0 {
		return nil, nil
	}

	primary := resp.Tables[0]
	rows := make(Rows, 0, len(primary.Rows))
	for _, raw := range primary.Rows {
		row := make(map[string]any, len(primary.Columns))
		for i, col := range primary.Columns {
			if i < len(raw) {
				row[col.Name] = raw[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// do performs one authenticated HTTP round trip with the per-call
// timeout and maps non-2xx responses onto APIError.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed errorResponse
		if json.Unmarshal(respBody, &parsed) == nil {
			apiErr.Code = parsed.Error.Code
			apiErr.Message = parsed.Error.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}

	return respBody, nil
}
