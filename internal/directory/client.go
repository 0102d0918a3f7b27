// Package directory looks up display metadata for principals from the
// identity provider. It plays no part in authorization.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// User is the decorated view of a principal.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type providerUser struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name"`
	ImageURL       string `json:"profile_image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// Client fetches users from the identity provider's admin API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a Client. A nil httpClient falls back to a 10s-timeout default.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: httpClient}
}

// GetUsers returns the users matching the given emails, in the order the
// emails were requested. Emails with no directory entry yield a stub record
// so callers can still render the collaborator row.
func (c *Client) GetUsers(ctx context.Context, emails []string) ([]User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/users?limit=100&order_by=-created_at", nil)
	if err != nil {
		return nil, fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory: list users: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("directory: list users: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var raw []providerUser
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("directory: decode users: %w", err)
	}

	byEmail := make(map[string]User, len(raw))
	for _, u := range raw {
		if len(u.EmailAddresses) == 0 {
			continue
		}
		email := u.EmailAddresses[0].EmailAddress
		byEmail[email] = User{
			ID:     u.ID,
			Email:  email,
			Name:   u.FullName,
			Avatar: u.ImageURL,
		}
	}

	users := make([]User, 0, len(emails))
	for _, email := range emails {
		if u, ok := byEmail[email]; ok {
			users = append(users, u)
			continue
		}
		users = append(users, User{Email: email, Name: email})
	}
	return users, nil
}
