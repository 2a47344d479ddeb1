package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Default limits for inbound JSON payloads (webhook events, admin API).
const (
	DefaultMaxPayloadSize = 256 << 10 // 256 KiB
	DefaultMaxJSONDepth   = 16
)

// Payload validation errors.
var (
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	ErrJSONTooDeep     = errors.New("JSON nesting exceeds maximum depth")
	ErrInvalidJSON     = errors.New("invalid JSON")
)

// PayloadLimits bounds an inbound JSON document. Zero fields select the
// defaults.
type PayloadLimits struct {
	MaxSize  int
	MaxDepth int
}

// ValidatePayload checks the size of data and that it is JSON nested no
// deeper than the configured depth. Empty data is accepted.
func ValidatePayload(data []byte, limits PayloadLimits) error {
	maxSize := limits.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPayloadSize
	}
	if len(data) > maxSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(data), maxSize)
	}
	return validateDepth(data, limits.MaxDepth)
}

func validateDepth(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxJSONDepth
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if !json.Valid(data) {
		return ErrInvalidJSON
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}

		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > limit {
				return fmt.Errorf("%w: depth %d (max %d)", ErrJSONTooDeep, depth, limit)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}
