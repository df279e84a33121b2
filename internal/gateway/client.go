// Package gateway adapts the external chat bridge to the tracker. The
// bridge process owns the platform connection (session, auth, rate
// limits, wire decoding) and exposes plain JSON over HTTP; this package
// implements the tracker Session against it and receives the live event
// push on a local listener.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/tracker"
)

// Client speaks to the bridge's query endpoints.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ tracker.Session = (*Client)(nil)

// NewClient builds a bridge client. token, when set, is sent as a bearer
// credential on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type wireIdentity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Bot         bool   `json:"bot,omitempty"`
}

func (w wireIdentity) identity() tracker.Identity {
	return tracker.Identity{ID: w.ID, DisplayName: w.DisplayName, Bot: w.Bot}
}

type wireGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireReaction struct {
	Emoji string `json:"emoji"`
}

type wireMessage struct {
	ID        string         `json:"id"`
	Author    wireIdentity   `json:"author"`
	Reactions []wireReaction `json:"reactions,omitempty"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusForbidden:
		return tracker.ErrForbidden
	case resp.StatusCode >= 300:
		return fmt.Errorf("bridge status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Groups(ctx context.Context) ([]tracker.GroupRef, error) {
	var out []wireGroup
	if err := c.get(ctx, "/guilds", nil, &out); err != nil {
		return nil, err
	}
	groups := make([]tracker.GroupRef, 0, len(out))
	for _, g := range out {
		groups = append(groups, tracker.GroupRef{ID: g.ID, Name: g.Name})
	}
	return groups, nil
}

func (c *Client) Group(ctx context.Context, id string) (tracker.GroupRef, error) {
	var out wireGroup
	if err := c.get(ctx, "/guilds/"+url.PathEscape(id), nil, &out); err != nil {
		return tracker.GroupRef{}, err
	}
	return tracker.GroupRef{ID: out.ID, Name: out.Name}, nil
}

func (c *Client) Channels(ctx context.Context, groupID string) ([]tracker.ChannelRef, error) {
	var out []wireChannel
	if err := c.get(ctx, "/guilds/"+url.PathEscape(groupID)+"/channels", nil, &out); err != nil {
		return nil, err
	}
	channels := make([]tracker.ChannelRef, 0, len(out))
	for _, ch := range out {
		channels = append(channels, tracker.ChannelRef{ID: ch.ID, Name: ch.Name})
	}
	return channels, nil
}

func (c *Client) MessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]tracker.Message, error) {
	q := url.Values{}
	if afterID != "" {
		q.Set("after", afterID)
	}
	q.Set("limit", strconv.Itoa(limit))
	var out []wireMessage
	if err := c.get(ctx, "/channels/"+url.PathEscape(channelID)+"/messages", q, &out); err != nil {
		return nil, err
	}
	msgs := make([]tracker.Message, 0, len(out))
	for _, m := range out {
		msg := tracker.Message{ID: m.ID, Author: m.Author.identity()}
		for _, re := range m.Reactions {
			msg.Reactions = append(msg.Reactions, tracker.Reaction{Emoji: re.Emoji})
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (c *Client) Reactors(ctx context.Context, channelID, messageID, emoji string) ([]string, error) {
	var out []string
	path := "/channels/" + url.PathEscape(channelID) +
		"/messages/" + url.PathEscape(messageID) +
		"/reactions/" + url.PathEscape(emoji)
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ResolveIdentity(ctx context.Context, id string) (tracker.Identity, error) {
	var out wireIdentity
	if err := c.get(ctx, "/users/"+url.PathEscape(id), nil, &out); err != nil {
		return tracker.Identity{}, err
	}
	return out.identity(), nil
}

func (c *Client) Boosters(ctx context.Context, groupID string) ([]tracker.Identity, error) {
	var out []wireIdentity
	if err := c.get(ctx, "/guilds/"+url.PathEscape(groupID)+"/boosters", nil, &out); err != nil {
		return nil, err
	}
	boosters := make([]tracker.Identity, 0, len(out))
	for _, b := range out {
		boosters = append(boosters, b.identity())
	}
	return boosters, nil
}
