package assist

import (
	"context"
	"fmt"
)

// messageRequest is the wire shape for a backend compute call.
type messageRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// messageResponse is the backend's reply.
type messageResponse struct {
	Reply string `json:"reply"`
}

// Process sends one user message to the backend and returns its reply.
func (c *Client) Process(ctx context.Context, userID, message string) (string, error) {
	req := messageRequest{
		UserID:  userID,
		Message: message,
	}

	var resp messageResponse
	if err := c.post(ctx, "/v1/messages", req, &resp); err != nil {
		return "", fmt.Errorf("process message: %w", err)
	}

	return resp.Reply, nil
}
