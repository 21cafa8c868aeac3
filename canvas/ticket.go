// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"context"
	"errors"
	"net/http"
)

const ticketPath = "/auth/ticket"

// TicketClient exchanges the authorization headers for a short-lived
// socket ticket.
type TicketClient struct {
	requester *requester
}

type ticketResponse struct {
	Ticket string `json:"ticket"`
}

// Ticket posts the request context to the ticket endpoint and returns
// the issued ticket. A non-2xx response returns a *RequestError.
// Ticket never retries; the socket channel owns retry policy.
func (c *TicketClient) Ticket(ctx context.Context) (string, error) {
	resp, err := c.requester.doJSON(ctx, http.MethodPost, ticketPath, c.requester.context, nil)
	if err != nil {
		return "", err
	}
	var result ticketResponse
	if err := decodeOK(ticketPath, resp, &result); err != nil {
		return "", err
	}
	if result.Ticket == "" {
		return "", errors.New("canvas: ticket endpoint returned an empty ticket")
	}
	return result.Ticket, nil
}
