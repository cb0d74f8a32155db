// Package store holds the snapshot stores that keep the accepted snapshot
// between runs. The sqlite store lives in the database package alongside the
// sync history.
package store

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"fonttrack/internal/ft"
)

// rawPathMarker prefixes the key of a path that is not valid UTF-8. The rest
// of the key is the path bytes in unpadded base64url. A NUL byte cannot occur
// in a filesystem path, so marked keys never collide with plain ones.
const rawPathMarker = "\x00b64:"

func encodePathKey(path ft.FontPath) string {
	if utf8.ValidString(string(path)) {
		return string(path)
	}
	return rawPathMarker + base64.RawURLEncoding.EncodeToString([]byte(path))
}

func decodePathKey(key string) (ft.FontPath, error) {
	encoded, ok := strings.CutPrefix(key, rawPathMarker)
	if !ok {
		return ft.FontPath(key), nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding path key %q: %w", key, err)
	}
	return ft.FontPath(raw), nil
}

// MarshalSnapshot encodes a snapshot as a single JSON object of
// path -> {attribute: value}. Keys are written in sorted order so equal
// snapshots encode to identical bytes. Paths that are not valid UTF-8 are
// written as marked base64 keys and restored exactly by UnmarshalSnapshot.
func MarshalSnapshot(snap ft.Snapshot) ([]byte, error) {
	doc := make(map[string]ft.Attributes, len(snap))
	for path, attrs := range snap {
		doc[encodePathKey(path)] = attrs
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a document written by MarshalSnapshot.
// A JSON null decodes to an empty snapshot, and a font mapped to null decodes
// to empty attributes.
func UnmarshalSnapshot(data []byte) (ft.Snapshot, error) {
	var raw map[string]ft.Attributes
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	snap := ft.NewSnapshot()
	for key, attrs := range raw {
		path, err := decodePathKey(key)
		if err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
		if attrs == nil {
			attrs = ft.Attributes{}
		}
		snap[path] = attrs
	}
	return snap, nil
}
