// Package api is the REST client for the chat server's room and profile
// endpoints. These calls are thin collaborators around the realtime core:
// one-shot requests with no session state.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/JohnnyCleto/atlaschat/internal/chat"
	"github.com/JohnnyCleto/atlaschat/internal/proto"
)

// Room is one entry of the room listing.
type Room struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
}

// Page is one page of room history from the paginated messages endpoint.
type Page struct {
	Items      []proto.RawRecord `json:"items"`
	NextCursor string            `json:"next_cursor"`
}

// Client calls the chat server's REST endpoints.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zerolog.Logger
}

// New builds a client for baseURL. A zero timeout defaults to 10s.
func New(baseURL string, timeout time.Duration, logger *zerolog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
		log:  logger,
	}, nil
}

// ListRooms fetches all visible rooms.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var body struct {
		Rooms []Room `json:"rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &body); err != nil {
		return nil, err
	}
	return body.Rooms, nil
}

// CreateRoom creates a room. The password is only meaningful for private
// rooms; the server ignores it otherwise.
func (c *Client) CreateRoom(ctx context.Context, name string, private bool, password string) error {
	payload := map[string]any{
		"name":       name,
		"is_private": private,
	}
	if password != "" {
		payload["password"] = password
	}
	return c.do(ctx, http.MethodPost, "/rooms", payload, nil)
}

// JoinRoom checks access to a room, supplying the password for private
// rooms. The realtime join happens over the transport; this call only
// validates credentials.
func (c *Client) JoinRoom(ctx context.Context, room, password string) error {
	payload := map[string]any{}
	if password != "" {
		payload["password"] = password
	}
	return c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(room)+"/join", payload, nil)
}

// Messages fetches up to limit messages of room history, older than
// beforeID when set. Records come back raw; callers normalize them.
func (c *Client) Messages(ctx context.Context, room string, limit int, beforeID string) (Page, error) {
	endpoint := "/rooms/" + url.PathEscape(room) + "/messages"
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if beforeID != "" {
		query.Set("before_id", beforeID)
	}
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var page Page
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return Page{}, err
	}
	return page, nil
}

// Presence lists the users seen alive in room within the server's
// presence window.
func (c *Client) Presence(ctx context.Context, room string) ([]string, error) {
	var body struct {
		Online []string `json:"online"`
	}
	if err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(room)+"/presence", nil, &body); err != nil {
		return nil, err
	}
	return body.Online, nil
}

// SaveProfile registers a profile in the server's directory.
func (c *Client) SaveProfile(ctx context.Context, profile chat.Profile) error {
	return c.do(ctx, http.MethodPost, "/users/profile", profile, nil)
}

// profileRecord is the server's profile directory entry.
type profileRecord struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Profiles lists the most recent profiles known to the server.
func (c *Client) Profiles(ctx context.Context) ([]chat.Profile, error) {
	var body struct {
		Profiles []profileRecord `json:"profiles"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/profiles", nil, &body); err != nil {
		return nil, err
	}
	return lo.Map(body.Profiles, func(p profileRecord, _ int) chat.Profile {
		return chat.Profile{Name: p.Name, Avatar: p.Avatar}
	}), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	target := c.base.ResolveReference(ref).String()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %s", method, endpoint, responseDetail(resp))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// responseDetail extracts the error detail the server attaches to failed
// requests, falling back to the HTTP status.
func responseDetail(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var body struct {
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil {
			if body.Detail != "" {
				return body.Detail
			}
			if body.Error != "" {
				return body.Error
			}
		}
	}
	return resp.Status
}
