package webhook

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HeaderMap stores flattened request headers as JSONB
type HeaderMap map[string]string

// Value implements driver.Valuer
func (h HeaderMap) Value() (driver.Value, error) {
	if h == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(h)
}

// Scan implements sql.Scanner
func (h *HeaderMap) Scan(src interface{}) error {
	if src == nil {
		*h = HeaderMap{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported header map type: %T", src)
	}

	return json.Unmarshal(data, h)
}

// FlattenHeaders keeps the first value of each header
func FlattenHeaders(headers http.Header) HeaderMap {
	out := make(HeaderMap, len(headers))
	for k, v := range headers {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// Log is an append-only audit record of an inbound callback. The row is
// written before signature verification, so forged attempts are recoverable.
type Log struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Provider        string          `db:"provider" json:"provider"`
	Reference       *string         `db:"reference" json:"reference,omitempty"`
	Payload         json.RawMessage `db:"payload" json:"payload"`
	Headers         HeaderMap       `db:"headers" json:"headers"`
	Processed       bool            `db:"processed" json:"processed"`
	ProcessingError *string         `db:"processing_error" json:"processing_error,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// SecurityEvent records a rejected or suspicious callback
type SecurityEvent struct {
	ID        uuid.UUID `db:"id" json:"id"`
	EventType string    `db:"event_type" json:"event_type"`
	Provider  string    `db:"provider" json:"provider"`
	Reference *string   `db:"reference" json:"reference,omitempty"`
	SourceIP  string    `db:"source_ip" json:"source_ip"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Security event types
const (
	EventInvalidSignature = "invalid_signature"
	EventUnknownProvider  = "unknown_provider"
)
