// Package twitchapi contains minimal helpers to interact with the Twitch
// Helix API (user resolution, chatter lists, block lists), the recent-messages
// history service, and the third-party emote/badge providers.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// ErrNoCredentials is returned when a Helix call is attempted with neither a
// user token nor app credentials configured, as in anonymous read-only mode.
var ErrNoCredentials = errors.New("no twitch credentials configured")

// HelixClient provides the Helix methods the chat core needs.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client

	mu        sync.RWMutex
	userToken string
}

// SetUserToken installs or replaces the user token. When set, it is preferred
// over the app token; chatter and block-list endpoints require a user token.
func (hc *HelixClient) SetUserToken(tok string) {
	hc.mu.Lock()
	hc.userToken = tok
	hc.mu.Unlock()
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) authorize(ctx context.Context, req *http.Request) error {
	hc.mu.RLock()
	tok := hc.userToken
	hc.mu.RUnlock()
	if tok == "" {
		if hc.AppTokenSource == nil {
			return ErrNoCredentials
		}
		t, err := hc.AppTokenSource.Get(ctx)
		if err != nil {
			return err
		}
		tok = t
	}
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}

// User is the subset of a Helix user object the chat core uses.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// GetUser resolves a login name to its user record.
func (hc *HelixClient) GetUser(ctx context.Context, login string) (*User, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/users", nil)
	q := req.URL.Query()
	q.Set("login", login)
	req.URL.RawQuery = q.Encode()
	if err := hc.authorize(ctx, req); err != nil {
		return nil, err
	}
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	var body struct {
		Data []User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return &body.Data[0], nil
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	u, err := hc.GetUser(ctx, login)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

type chattersPage struct {
	Data []struct {
		UserLogin string `json:"user_login"`
	} `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

// GetChatters lists the logins currently connected to a channel's chat.
// Requires a user token with moderator access to the channel.
func (hc *HelixClient) GetChatters(ctx context.Context, broadcasterID, moderatorID string) ([]string, error) {
	if broadcasterID == "" || moderatorID == "" {
		return nil, fmt.Errorf("broadcasterID/moderatorID empty")
	}
	var out []string
	after := ""
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/chat/chatters", nil)
		q := req.URL.Query()
		q.Set("broadcaster_id", broadcasterID)
		q.Set("moderator_id", moderatorID)
		q.Set("first", "1000")
		if after != "" {
			q.Set("after", after)
		}
		req.URL.RawQuery = q.Encode()
		if err := hc.authorize(ctx, req); err != nil {
			return nil, err
		}
		resp, err := hc.http().Do(req)
		if err != nil {
			return nil, err
		}
		var page chattersPage
		err = json.NewDecoder(resp.Body).Decode(&page)
		closeBody(resp)
		if err != nil {
			return nil, err
		}
		for _, c := range page.Data {
			out = append(out, c.UserLogin)
		}
		if page.Pagination.Cursor == "" {
			return out, nil
		}
		after = page.Pagination.Cursor
	}
}

// GetBlockedUserIDs lists the ids the given user has blocked, feeding the
// ignore filter.
func (hc *HelixClient) GetBlockedUserIDs(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID empty")
	}
	var out []string
	after := ""
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/users/blocks", nil)
		q := req.URL.Query()
		q.Set("broadcaster_id", userID)
		q.Set("first", "100")
		if after != "" {
			q.Set("after", after)
		}
		req.URL.RawQuery = q.Encode()
		if err := hc.authorize(ctx, req); err != nil {
			return nil, err
		}
		resp, err := hc.http().Do(req)
		if err != nil {
			return nil, err
		}
		var body struct {
			Data []struct {
				UserID string `json:"user_id"`
			} `json:"data"`
			Pagination struct {
				Cursor string `json:"cursor"`
			} `json:"pagination"`
		}
		err = json.NewDecoder(resp.Body).Decode(&body)
		closeBody(resp)
		if err != nil {
			return nil, err
		}
		for _, b := range body.Data {
			out = append(out, b.UserID)
		}
		if body.Pagination.Cursor == "" {
			return out, nil
		}
		after = body.Pagination.Cursor
	}
}

// BlockUser adds a user to the logged-in account's block list.
func (hc *HelixClient) BlockUser(ctx context.Context, targetID string) error {
	return hc.blockOp(ctx, http.MethodPut, targetID)
}

// UnblockUser removes a user from the block list.
func (hc *HelixClient) UnblockUser(ctx context.Context, targetID string) error {
	return hc.blockOp(ctx, http.MethodDelete, targetID)
}

func (hc *HelixClient) blockOp(ctx context.Context, method, targetID string) error {
	if targetID == "" {
		return fmt.Errorf("targetID empty")
	}
	req, _ := http.NewRequestWithContext(ctx, method, "https://api.twitch.tv/helix/users/blocks", nil)
	q := req.URL.Query()
	q.Set("target_user_id", targetID)
	req.URL.RawQuery = q.Encode()
	if err := hc.authorize(ctx, req); err != nil {
		return err
	}
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("block operation failed: %s", resp.Status)
	}
	return nil
}
