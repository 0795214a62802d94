package feed

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ShapeMatcher inspects a raw feed payload and, if it recognizes the shape,
// returns the raw item list.
type ShapeMatcher struct {
	Name  string
	Match func(payload json.RawMessage) ([]json.RawMessage, bool)
}

// Shapes lists the accepted payload shapes in the order they are tried.
// The first match wins.
var Shapes = []ShapeMatcher{
	{Name: "array", Match: matchArray},
	{Name: "items", Match: matchField("items")},
	{Name: "data", Match: matchField("data")},
}

// Normalize extracts the item list from a feed payload of any accepted shape:
// a bare array, {"items": [...]}, or {"data": [...]}. Anything else (null,
// numbers, objects without either array field) yields an empty list.
//
// Array members that are not JSON objects are skipped.
func Normalize(payload json.RawMessage) []Item {
	items, _ := NormalizeShape(payload)
	return items
}

// NormalizeShape is Normalize that also reports which shape matched ("" if none).
func NormalizeShape(payload json.RawMessage) ([]Item, string) {
	for _, sh := range Shapes {
		raw, ok := sh.Match(payload)
		if !ok {
			continue
		}
		out := make([]Item, 0, len(raw))
		for _, r := range raw {
			if it, ok := decodeItem(r); ok {
				out = append(out, it)
			}
		}
		return out, sh.Name
	}
	return []Item{}, ""
}

func matchArray(payload json.RawMessage) ([]json.RawMessage, bool) {
	p := bytes.TrimSpace(payload)
	if len(p) == 0 || p[0] != '[' {
		return nil, false
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(p, &raw); err != nil {
		return nil, false
	}
	return raw, true
}

func matchField(name string) func(json.RawMessage) ([]json.RawMessage, bool) {
	return func(payload json.RawMessage) ([]json.RawMessage, bool) {
		p := bytes.TrimSpace(payload)
		if len(p) == 0 || p[0] != '{' {
			return nil, false
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(p, &obj); err != nil {
			return nil, false
		}
		v, ok := obj[name]
		if !ok {
			return nil, false
		}
		return matchArray(v)
	}
}

// itemWire mirrors Item but accepts numeric ids.
type itemWire struct {
	Item
	ID json.RawMessage `json:"id"`
}

func decodeItem(raw json.RawMessage) (Item, bool) {
	r := bytes.TrimSpace(raw)
	if len(r) == 0 || r[0] != '{' {
		return Item{}, false
	}
	var w itemWire
	if err := json.Unmarshal(r, &w); err != nil {
		return Item{}, false
	}
	it := w.Item
	// Without an id an item cannot be told apart from the next one.
	if it.ID = idString(w.ID); it.ID == "" {
		return Item{}, false
	}
	return it, true
}

func idString(raw json.RawMessage) string {
	r := bytes.TrimSpace(raw)
	if len(r) == 0 || bytes.Equal(r, []byte("null")) {
		return ""
	}
	if r[0] == '"' {
		var s string
		if json.Unmarshal(r, &s) == nil {
			return strings.TrimSpace(s)
		}
		return ""
	}
	// Numbers keep their literal form ("17", not "17.0").
	return strings.TrimSpace(string(r))
}
