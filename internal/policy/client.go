// Package policy provides a typed client over the policy engine's facts API
// and its permission-check endpoint. The policy engine is the authoritative
// store of role assignments; this package never caches or interprets them.
package policy

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

// Tenant is the single tenant this deployment operates in.
const Tenant = "default"

// ResourceDocument is the only resource type checked by this service.
const ResourceDocument = "Document"

// User is the principal record kept by the policy engine.
type User struct {
	Key       string `json:"key"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type roleAssignment struct {
	Role   string `json:"role"`
	Tenant string `json:"tenant"`
}

type createUserPayload struct {
	User
	RoleAssignments []roleAssignment `json:"role_assignments"`
}

type checkPayload struct {
	User     checkSubject  `json:"user"`
	Action   string        `json:"action"`
	Resource checkResource `json:"resource"`
}

type checkSubject struct {
	Key string `json:"key"`
}

type checkResource struct {
	Type   string `json:"type"`
	Tenant string `json:"tenant"`
}

type checkResult struct {
	Allow bool `json:"allow"`
}

// Config carries the endpoints and credentials for the policy engine.
type Config struct {
	FactsURL    string
	PDPURL      string
	APIKey      string
	Project     string
	Environment string
}

// Client talks to the policy engine over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a Client. A nil httpClient falls back to a 10s-timeout default.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

func (c *Client) factsURL(parts ...string) string {
	base := strings.TrimRight(c.cfg.FactsURL, "/")
	segs := append([]string{c.cfg.Project, c.cfg.Environment}, parts...)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + "/" + strings.Join(segs, "/")
}

// UserExists reports whether the principal is known to the policy engine.
// A clean 404 is a definitive "no", not an error.
func (c *Client) UserExists(ctx context.Context, key string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, c.factsURL("users", key), nil)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, c.statusError("get user", resp)
	}
}

// CreateUser registers the principal and assigns its initial role in one call.
func (c *Client) CreateUser(ctx context.Context, user User, initialRole string) error {
	payload := createUserPayload{
		User:            user,
		RoleAssignments: []roleAssignment{{Role: initialRole, Tenant: Tenant}},
	}
	resp, err := c.do(ctx, http.MethodPost, c.factsURL("users"), payload)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return c.statusError("create user", resp)
}

// AssignRole grants the role to an existing principal in the default tenant.
func (c *Client) AssignRole(ctx context.Context, key, role string) error {
	payload := roleAssignment{Role: role, Tenant: Tenant}
	resp, err := c.do(ctx, http.MethodPost, c.factsURL("users", key, "roles"), payload)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return c.statusError("assign role", resp)
}

// UnassignRole removes the role from the principal. Removing a role the
// principal does not hold surfaces ErrNotFound; callers treat that as done.
func (c *Client) UnassignRole(ctx context.Context, key, role string) error {
	payload := roleAssignment{Role: role, Tenant: Tenant}
	resp, err := c.do(ctx, http.MethodDelete, c.factsURL("users", key, "roles"), payload)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return c.statusError("unassign role", resp)
}

// Check asks the decision point whether the principal may perform the action
// on the Document resource. Transport and server failures surface as errors;
// the caller decides whether to fail open.
func (c *Client) Check(ctx context.Context, key, action string) (bool, error) {
	payload := checkPayload{
		User:     checkSubject{Key: key},
		Action:   action,
		Resource: checkResource{Type: ResourceDocument, Tenant: Tenant},
	}
	target := strings.TrimRight(c.cfg.PDPURL, "/") + "/allowed"
	resp, err := c.do(ctx, http.MethodPost, target, payload)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, c.statusError("check", resp)
	}
	var result checkResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("policy: decode check response: %w: %w", err, ErrTransient)
	}
	return result.Allow, nil
}

func (c *Client) do(ctx context.Context, method, target string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("policy: marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("policy: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("policy: %s %s: %w: %w", method, target, err, ErrTransient)
	}
	return resp, nil
}

// statusError maps a non-2xx response onto the client's error taxonomy.
func (c *Client) statusError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	detail := strings.TrimSpace(string(data))

	var kind error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		kind = ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		kind = ErrConflict
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = ErrUnauthorized
	default:
		kind = ErrTransient
	}
	if detail == "" {
		return fmt.Errorf("policy: %s: status %d: %w", op, resp.StatusCode, kind)
	}
	return fmt.Errorf("policy: %s: status %d: %s: %w", op, resp.StatusCode, detail, kind)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
