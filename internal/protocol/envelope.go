package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Envelope actions.
const (
	ActionSendMessage     = "sendMessage"
	ActionMessageResponse = "messageResponse"
)

// Response statuses.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// ErrMalformedEnvelope indicates a payload that could not be decoded into a
// valid envelope. Decode failures are reported back to the sender when a
// request id survived parsing, and dropped otherwise.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Request is the client → server envelope.
type Request struct {
	Action    string `json:"action"`
	RequestID string `json:"requestId"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Response is the server → client envelope.
type Response struct {
	Action    string `json:"action"`
	RequestID string `json:"requestId"`
	Response  string `json:"response"`
	Status    string `json:"status"`
}

// NewRequest builds a sendMessage envelope stamped with the current time.
func NewRequest(requestID, userID, message string) Request {
	return Request{
		Action:    ActionSendMessage,
		RequestID: requestID,
		UserID:    userID,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewResponse builds a completed messageResponse envelope.
func NewResponse(requestID, result string) Response {
	return Response{
		Action:    ActionMessageResponse,
		RequestID: requestID,
		Response:  result,
		Status:    StatusCompleted,
	}
}

// NewErrorResponse builds an error messageResponse envelope.
func NewErrorResponse(requestID, message string) Response {
	return Response{
		Action:    ActionMessageResponse,
		RequestID: requestID,
		Response:  message,
		Status:    StatusError,
	}
}

// DecodeRequest parses and validates a client → server envelope.
//
// On a decode failure the returned Request still carries whatever request id
// survived parsing, so callers can tag an error reply when possible.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if req.Action != ActionSendMessage {
		return req, fmt.Errorf("%w: unexpected action %q", ErrMalformedEnvelope, req.Action)
	}
	if req.RequestID == "" {
		return req, fmt.Errorf("%w: missing requestId", ErrMalformedEnvelope)
	}
	if req.UserID == "" {
		return req, fmt.Errorf("%w: missing userId", ErrMalformedEnvelope)
	}

	return req, nil
}

// DecodeResponse parses and validates a server → client envelope.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if resp.Action != ActionMessageResponse {
		return resp, fmt.Errorf("%w: unexpected action %q", ErrMalformedEnvelope, resp.Action)
	}
	if resp.RequestID == "" {
		return resp, fmt.Errorf("%w: missing requestId", ErrMalformedEnvelope)
	}

	return resp, nil
}
