// Package collab wraps the collaboration backend's room management REST API.
// The backend owns room membership and document content; this client only
// mirrors access decisions into it.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrRoomNotFound indicates the room does not exist on the backend.
var ErrRoomNotFound = errors.New("collab: room not found")

// Room is the backend's view of a document room.
type Room struct {
	ID              string              `json:"id"`
	Metadata        map[string]string   `json:"metadata"`
	UsersAccesses   map[string][]string `json:"usersAccesses"`
	DefaultAccesses []string            `json:"defaultAccesses"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// CreateRoomParams describes a new room.
type CreateRoomParams struct {
	ID              string              `json:"id"`
	Metadata        map[string]string   `json:"metadata"`
	UsersAccesses   map[string][]string `json:"usersAccesses"`
	DefaultAccesses []string            `json:"defaultAccesses"`
}

// UpdateRoomParams is a partial room update. A nil slice in UsersAccesses
// serializes as null, which deletes that principal's entry on the backend.
type UpdateRoomParams struct {
	Metadata      map[string]string   `json:"metadata,omitempty"`
	UsersAccesses map[string][]string `json:"usersAccesses,omitempty"`
}

// InboxNotification is a best-effort in-app notification trigger.
type InboxNotification struct {
	UserID       string            `json:"userId"`
	Kind         string            `json:"kind"`
	SubjectID    string            `json:"subjectId"`
	ActivityData map[string]string `json:"activityData"`
	RoomID       string            `json:"roomId"`
}

type roomList struct {
	Data []Room `json:"data"`
}

// Client talks to the collaboration backend.
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

// CreateRoom registers a new room with its initial metadata and ACL.
func (c *Client) CreateRoom(ctx context.Context, params CreateRoomParams) (*Room, error) {
	var room Room
	if err := c.do(ctx, http.MethodPost, "/rooms", params, &room); err != nil {
		return nil, fmt.Errorf("create room %s: %w", params.ID, err)
	}
	return &room, nil
}

// GetRoom fetches a room by ID.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	var room Room
	if err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomID), nil, &room); err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return &room, nil
}

// GetRooms lists the rooms a principal has access to.
func (c *Client) GetRooms(ctx context.Context, userID string) ([]Room, error) {
	var list roomList
	path := "/rooms?userId=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, fmt.Errorf("list rooms for %s: %w", userID, err)
	}
	return list.Data, nil
}

// UpdateRoom applies a partial update and returns the resulting room state.
func (c *Client) UpdateRoom(ctx context.Context, roomID string, params UpdateRoomParams) (*Room, error) {
	var room Room
	if err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID), params, &room); err != nil {
		return nil, fmt.Errorf("update room %s: %w", roomID, err)
	}
	return &room, nil
}

// DeleteRoom removes the room and its content.
func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	if err := c.do(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(roomID), nil, nil); err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	return nil
}

// TriggerInboxNotification fires an in-app notification for the user.
func (c *Client) TriggerInboxNotification(ctx context.Context, n InboxNotification) error {
	if err := c.do(ctx, http.MethodPost, "/inbox-notifications/trigger", n, nil); err != nil {
		return fmt.Errorf("trigger notification for %s: %w", n.UserID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrRoomNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
