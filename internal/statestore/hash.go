// Package statestore persists one JSON state document per strategy
// configuration. Writes go through a uniquely named temp file and an atomic
// rename, so a crash or a concurrent writer never leaves a torn file behind.
package statestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
)

// HashLength is the number of hex characters kept from the config digest.
const HashLength = 16

// ComputeHash returns the truncated SHA-256 of cfg's canonical JSON form.
// Canonical means object keys sorted at every depth and numbers kept as
// written, so two configs that differ only in field order hash the same.
func ComputeHash(cfg any) (string, error) {
	canon, err := CanonicalJSON(cfg)
	if err != nil {
		return "", fmt.Errorf("statestore: hash: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])[:HashLength], nil
}

// CanonicalJSON encodes v with sorted object keys.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	// encoding/json writes map keys in sorted order.
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("re-marshal: %w", err)
	}
	return out, nil
}

// DefaultPath is where a strategy's state lives unless overridden.
func DefaultPath(dir, kind, hash string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", kind, hash))
}
