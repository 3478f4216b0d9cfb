// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// watchPollInterval paces the long-poll loop between event batches.
const watchPollInterval = 2 * time.Second

// WatchSession long-polls /api/client/events and delivers session-change
// events on the returned channel. The goroutine stops and closes the channel
// when ctx is cancelled. Poll failures are absorbed with a backoff; a watch
// must never crash the subscriber.
func (h *HTTP) WatchSession(ctx context.Context, accessToken string) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		cursor := ""
		for {
			batch, next, err := h.pollEvents(ctx, accessToken, cursor)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * watchPollInterval):
				}
				continue
			}
			cursor = next

			for _, ev := range batch {
				select {
				case <-ctx.Done():
					return
				case events <- ev:
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(watchPollInterval):
			}
		}
	}()

	return events
}

// pollEvents fetches one batch of events after the given cursor.
func (h *HTTP) pollEvents(ctx context.Context, accessToken, cursor string) ([]Event, string, error) {
	path := h.endpoints.Events
	if cursor != "" {
		path += "?cursor=" + url.QueryEscape(cursor)
	}
	req, err := h.newRequest(ctx, http.MethodGet, path, accessToken, nil)
	if err != nil {
		return nil, cursor, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, cursor, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, cursor, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, cursor, ErrUnauthorized
	}

	var out struct {
		Events []Event `json:"events"`
		Cursor string  `json:"cursor"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, cursor, err
	}
	next := out.Cursor
	if next == "" {
		next = cursor
	}
	return out.Events, next, nil
}
