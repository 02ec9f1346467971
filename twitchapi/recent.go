package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// HistoryError reports why a recent-messages fetch failed in a shape the
// orchestrator can turn into a typed system message.
type HistoryError struct {
	Status int
	// ChannelIgnored is set when the history service refuses the channel
	// (the broadcaster opted out).
	ChannelIgnored bool
}

func (e *HistoryError) Error() string {
	if e.ChannelIgnored {
		return "recent messages: channel ignored"
	}
	return fmt.Sprintf("recent messages: status %d", e.Status)
}

// RecentMessagesClient fetches raw historical IRC lines from a
// recent-messages compatible service.
type RecentMessagesClient struct {
	// BaseURL defaults to the public recent-messages instance.
	BaseURL    string
	HTTPClient *http.Client
}

const defaultRecentMessagesURL = "https://recent-messages.robotty.de/api/v2"

func (c *RecentMessagesClient) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// RecentMessages returns up to limit raw IRC lines for a channel, oldest
// first, ready to be replayed through the normal parse pipeline.
func (c *RecentMessagesClient) RecentMessages(ctx context.Context, channel string, limit int) ([]string, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultRecentMessagesURL
	}
	if limit <= 0 {
		limit = 100
	}
	u := base + "/recent-messages/" + url.PathEscape(channel) + "?limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	var body struct {
		Messages  []string `json:"messages"`
		ErrorCode string   `json:"error_code"`
	}
	if resp.StatusCode != http.StatusOK {
		// The service reports the opt-out case in the error body.
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, &HistoryError{
			Status:         resp.StatusCode,
			ChannelIgnored: body.ErrorCode == "channel_ignored",
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &HistoryError{Status: resp.StatusCode}
	}
	return body.Messages, nil
}
