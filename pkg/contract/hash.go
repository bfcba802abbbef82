package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// volatileKeys are dropped during hash normalization: capture-time noise
// that must not distinguish logically identical interactions. Header maps
// pass through the same normalization, so transport-noise header names
// are listed here too.
var volatileKeys = map[string]struct{}{
	"timestamp":       {},
	"date":            {},
	"time":            {},
	"created_at":      {},
	"createdat":       {},
	"updated_at":      {},
	"updatedat":       {},
	"host":            {},
	"user-agent":      {},
	"connection":      {},
	"accept-encoding": {},
	"content-length":  {},
}

func isVolatileKey(key string) bool {
	_, ok := volatileKeys[strings.ToLower(key)]
	return ok
}

// HashFields computes the canonical fingerprint of a set of semantically
// relevant fields. The value is round-tripped through JSON, volatile keys
// are stripped recursively, object keys are serialized in sorted order,
// and the result is SHA-256 hashed to lowercase hex. Two logically
// identical payloads captured at different times or ports hash
// identically.
func HashFields(fields map[string]any) (string, error) {
	normalized, err := normalizeValue(fields)
	if err != nil {
		return "", err
	}
	// encoding/json writes map keys in sorted order, which makes the
	// serialization deterministic once the value is reduced to maps,
	// slices, and scalars.
	canonical, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("serialize canonical form: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// InteractionHash fingerprints one recorded request/response exchange for
// dedup at the storage layer.
func InteractionHash(service, consumer, consumerVersion, operation string, req, resp any) (string, error) {
	return HashFields(map[string]any{
		"service":         service,
		"consumer":        consumer,
		"consumerVersion": consumerVersion,
		"operation":       operation,
		"request":         req,
		"response":        resp,
	})
}

// FixtureHash fingerprints a fixture proposal: the operation plus its
// stored payload, independent of provenance.
func FixtureHash(service, operation string, specType SpecType, data FixtureData) (string, error) {
	return HashFields(map[string]any{
		"service":   service,
		"operation": operation,
		"specType":  string(specType),
		"data":      data,
	})
}

// normalizeValue reduces v to maps, slices, and scalars with volatile
// keys removed at every depth.
func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	return stripVolatile(decoded), nil
}

func stripVolatile(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if isVolatileKey(k) {
				continue
			}
			out[k] = stripVolatile(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = stripVolatile(inner)
		}
		return out
	default:
		return v
	}
}
