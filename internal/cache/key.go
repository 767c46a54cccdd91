// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// keyDomain versions the key derivation. Bumping it orphans every entry.
const keyDomain = "kernel-press/cache/v1"

var kindPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Key derives a content-addressed cache key for an operation kind and its
// inputs. Inputs are canonicalized first: round-tripped through JSON so that
// object keys are sorted, and every string is NFC-normalized so that
// visually identical content maps to one entry. The key has the form
// "<kind>-<sha256 hex>".
func Key(kind string, fields map[string]any) (string, error) {
	if !kindPattern.MatchString(kind) {
		return "", fmt.Errorf("invalid cache kind %q", kind)
	}
	canonical, err := canonicalJSON(fields)
	if err != nil {
		return "", fmt.Errorf("canonicalizing %s key: %w", kind, err)
	}

	h := sha256.New()
	h.Write([]byte(keyDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(kind))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return kind + "-" + hex.EncodeToString(h.Sum(nil)), nil
}

func canonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(normalize(generic))
}

// normalize NFC-normalizes every string in a decoded JSON value.
func normalize(v any) any {
	switch val := v.(type) {
	case string:
		return norm.NFC.String(val)
	case []any:
		for i := range val {
			val[i] = normalize(val[i])
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[norm.NFC.String(k)] = normalize(elem)
		}
		return out
	default:
		return val
	}
}
