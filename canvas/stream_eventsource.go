// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"context"
	"fmt"
	"net/http"
)

// eventSourceStrategy reads the push stream the way a platform
// event-source client does. Such clients cannot attach headers, so the
// context, the bearer token and the resumption cursor travel as query
// parameters, and the per-message event id updates the cursor.
type eventSourceStrategy struct{}

func (eventSourceStrategy) stream(ctx context.Context, channel *PushStream, canvasID string) error {
	query := contextQuery(channel.context)
	if channel.token != "" {
		query.Set(queryAccessToken, channel.token)
	}
	if cursor := channel.LastEventID(); cursor != "" {
		query.Set(queryLastEventID, cursor)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, channel.streamURL(canvasID, query), nil)
	if err != nil {
		return fmt.Errorf("canvas: creating push stream request: %w", err)
	}

	response, err := channel.open(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	channel.opened(canvasID)

	scanner := NewSSEScanner(response.Body)
	for scanner.Next() {
		event := scanner.Event()
		if event.ID != "" {
			channel.setLastEventID(event.ID)
		}
		channel.deliver(event.Data)
	}
	if id := scanner.LastEventID(); id != "" {
		channel.setLastEventID(id)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("canvas: reading push stream: %w", err)
	}
	return errStreamEnded
}
