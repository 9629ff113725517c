// Package canonical implements the serialization contract used for content
// hashing. The contract is versioned: object keys are sorted
// lexicographically, timestamps are rendered as RFC 3339 UTC with nanosecond
// precision, and nil values encode as JSON null. Changing any of these rules
// invalidates every previously computed hash, so the rules only change
// together with ContractVersion.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ContractVersion identifies the canonicalization rules in effect.
const ContractVersion = 1

// Marshal returns the canonical JSON encoding of v.
func Marshal(v interface{}) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	// encoding/json writes map keys in sorted order, which gives us the
	// key-ordering guarantee of the contract.
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal canonical value: %w", err)
	}
	return data, nil
}

// Hash returns the lowercase hex SHA-256 digest of the canonical encoding of v.
func Hash(v interface{}) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FormatTime renders a timestamp under the contract: RFC 3339, UTC,
// nanosecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// normalize rewrites v so that every timestamp is a contract-formatted string
// and every container holds only normalized values.
func normalize(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return FormatTime(val), nil
	case *time.Time:
		if val == nil {
			return nil, nil
		}
		return FormatTime(*val), nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			normalized, err := normalize(inner)
			if err != nil {
				return nil, err
			}
			out[k] = normalized
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, 0, len(val))
		for _, inner := range val {
			normalized, err := normalize(inner)
			if err != nil {
				return nil, err
			}
			out = append(out, normalized)
		}
		return out, nil
	case []string:
		// Encode an empty or nil hash list as [], never null: zero-child
		// records must still hash to the digest of an empty list.
		out := make([]interface{}, 0, len(val))
		for _, s := range val {
			out = append(out, s)
		}
		return out, nil
	default:
		return val, nil
	}
}
