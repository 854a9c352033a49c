package event

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewTraceID returns a random 32-character lowercase hex trace ID. A UUID is
// 16 bytes, which is exactly the OTLP trace ID width.
func NewTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// NewSpanID returns a random 16-character lowercase hex span ID.
func NewSpanID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:8])
}
