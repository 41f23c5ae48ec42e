// Package protocol defines the chat wire format: one JSON object per text
// frame, tagged by message_type.
//
// Decoding is strict. Anything that is not a well-formed ChatMessage is
// reported as ErrMalformed so the caller can apply the plain-text fallback
// (see ParseFrame) instead of treating the frame as a protocol error.
package protocol
