package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unpuzzle-ai/usagekit/pkg/throttle"
)

// RemoteResponder performs the live backend call. Transport failures,
// non-2xx statuses and quota denials from the server-side throttle all come
// back as returned errors in one normalized family; nothing panics across
// this boundary.
type RemoteResponder struct {
	baseURL string
	client  *http.Client
}

// RemoteOption configures a RemoteResponder.
type RemoteOption func(*RemoteResponder)

// WithHTTPClient overrides the default HTTP client, e.g. to tune timeouts.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(rr *RemoteResponder) {
		if client != nil {
			rr.client = client
		}
	}
}

// NewRemoteResponder creates the live-mode responder for the given backend
// base URL. The default client enforces a 30s request timeout; callers can
// tighten it per request through the context deadline.
func NewRemoteResponder(baseURL string, opts ...RemoteOption) *RemoteResponder {
	rr := &RemoteResponder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(rr)
	}
	return rr
}

// Respond posts the message to the backend and maps the reply into the
// canonical response shape. A 429 becomes a *RateLimitError; any other
// failure is wrapped with ErrTransport. Context cancellation propagates
// unchanged so callers can detect it with errors.Is.
func (rr *RemoteResponder) Respond(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return ChatResponse{}, errors.Join(ErrTransport, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		rr.baseURL+"/v1/assistant/message", bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, errors.Join(ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := rr.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ChatResponse{}, errors.Join(ErrTransport, ctxErr)
		}
		return ChatResponse{}, errors.Join(ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ChatResponse{}, errors.Join(ErrTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ChatResponse{}, decodeRateLimit(body)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return ChatResponse{}, errors.Join(ErrTransport,
			fmt.Errorf("backend returned status %d", resp.StatusCode))
	}

	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return ChatResponse{}, errors.Join(ErrTransport, err)
	}
	return out, nil
}

// decodeRateLimit turns the server's 429 envelope into a *RateLimitError.
// A malformed body still yields a rate-limit error, just without details.
func decodeRateLimit(body []byte) error {
	var envelope throttle.RateLimitBody
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &RateLimitError{Message: "rate limit exceeded"}
	}
	return &RateLimitError{
		Message: envelope.Message,
		Details: envelope.Details,
	}
}
