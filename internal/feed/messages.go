package feed

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// UnreadCount returns the number of unread messages from the feed peer.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp peerResponse
	if err := c.get(ctx, "/peers/"+url.PathEscape(c.peer), nil, &resp); err != nil {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return resp.Peer.UnreadCount, nil
}

// Messages fetches up to limit messages older than beforeID, newest first.
// A beforeID of 0 starts from the newest message.
func (c *Client) Messages(ctx context.Context, limit int, beforeID int64) ([]Message, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if beforeID > 0 {
		query.Set("before_id", strconv.FormatInt(beforeID, 10))
	}

	var resp messagesResponse
	if err := c.get(ctx, "/peers/"+url.PathEscape(c.peer)+"/messages", query, &resp); err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	return resp.Messages, nil
}

// Acknowledge marks every message up to and including maxID as read. The
// gateway's unread count excludes acknowledged messages, so an acknowledged
// message is never fetched again.
func (c *Client) Acknowledge(ctx context.Context, maxID int64) error {
	query := url.Values{}
	query.Set("max_id", strconv.FormatInt(maxID, 10))

	if err := c.post(ctx, "/peers/"+url.PathEscape(c.peer)+"/read", query); err != nil {
		return fmt.Errorf("acknowledge messages: %w", err)
	}

	return nil
}
