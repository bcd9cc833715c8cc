// Package canonical turns logical payloads into byte-stable representations
// and content digests. Two logically equivalent payloads always canonicalize
// to identical bytes, regardless of field insertion order.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Canonicalize produces the byte-stable serialization of v.
//
// The value is marshaled to JSON, decoded back into a generic tree with
// json.Number (preserving numeric precision, no float64 detour), and
// re-marshaled compactly. encoding/json emits map keys in sorted order, so
// the result is independent of insertion order and carries no incidental
// whitespace.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var tree any
	if err := decoder.Decode(&tree); err != nil {
		return nil, fmt.Errorf("failed to normalize payload: %w", err)
	}

	out, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize payload: %w", err)
	}
	return out, nil
}

// HashBytes computes the SHA-256 digest of b as 64 lowercase hex characters.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashOf canonicalizes v and returns its content digest.
func HashOf(v any) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}
