package shared

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Lenient readers for documents written by older clients. A field of the wrong type reads as its
// zero value instead of failing the whole document.

// IsNull reports whether raw is absent or JSON null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

// LooseString reads a string, or the literal text of a number.
func LooseString(raw json.RawMessage) string {
	if IsNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// LooseFloat reads a number, or a string holding one.
func LooseFloat(raw json.RawMessage) float64 {
	if IsNull(raw) {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return 0
}

// LooseBool reads true or "true".
func LooseBool(raw json.RawMessage) bool {
	if IsNull(raw) {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return LooseString(raw) == "true"
}

// KeyedEntry is one child of an id-keyed collection.
type KeyedEntry struct {
	ID  string
	Raw json.RawMessage
}

// KeyedEntries reads either an id-keyed object or a list. List positions become ids and nulls are
// skipped. Objects come back in key order: integer keys numerically, so a sparse list stored as an
// object keeps its positions, then every other key by string. Anything else yields nothing.
func KeyedEntries(raw json.RawMessage) []KeyedEntry {
	if IsNull(raw) {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]KeyedEntry, 0, len(list))
		for i, item := range list {
			if IsNull(item) {
				continue
			}
			out = append(out, KeyedEntry{ID: strconv.Itoa(i), Raw: item})
		}
		return out
	}
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil
	}
	keys := make([]string, 0, len(byID))
	for k := range byID {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
	out := make([]KeyedEntry, 0, len(keys))
	for _, k := range keys {
		if IsNull(byID[k]) {
			continue
		}
		out = append(out, KeyedEntry{ID: k, Raw: byID[k]})
	}
	return out
}

func keyLess(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
