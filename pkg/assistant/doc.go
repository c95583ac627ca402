// Package assistant provides the dual-mode facade in front of the AI tutor
// backend. Callers send messages through one Service; whether the reply
// comes from a deterministic local fixture or a real HTTP call is decided
// once at construction by injecting the Responder strategy.
//
// Fixture mode never touches the network and always produces the same reply
// for the same input. Live mode maps every transport failure into an
// ErrTransport-wrapped error and decodes server-side quota denials (HTTP
// 429) into *RateLimitError, so callers have exactly one error-handling
// path and can distinguish "upgrade your plan" from "backend is down":
//
//	var rle *assistant.RateLimitError
//	switch {
//	case errors.As(err, &rle):
//	    // show upgrade prompt from rle.Details
//	case errors.Is(err, assistant.ErrTransport):
//	    // generic failure, maybe retry
//	}
package assistant
