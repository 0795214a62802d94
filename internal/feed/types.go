package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Item is one entry of the notification feed.
type Item struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Type     string         `json:"type"`
	Channels Channels       `json:"channels"`
	IsRead   bool           `json:"isRead"`
	Data     map[string]any `json:"data"`
	// Priority is a display-only hint; it never affects ordering or delivery.
	Priority string `json:"priority,omitempty"`
}

// Channels holds the item's delivery channel(s). The feed sends either a
// single string, a list of strings, or nothing.
type Channels struct {
	list   []string
	single bool
}

// SingleChannel returns a Channels holding one string value.
func SingleChannel(s string) Channels { return Channels{list: []string{s}, single: true} }

// ChannelList returns a Channels holding a list value.
func ChannelList(s ...string) Channels { return Channels{list: append([]string(nil), s...)} }

// Primary returns the channel to present on: the string itself, or the first
// element of a non-empty list.
func (c Channels) Primary() (string, bool) {
	if len(c.list) == 0 {
		return "", false
	}
	return c.list[0], true
}

// Values returns a copy of all channel values.
func (c Channels) Values() []string { return append([]string(nil), c.list...) }

func (c Channels) IsZero() bool { return len(c.list) == 0 && !c.single }

func (c *Channels) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*c = Channels{}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = SingleChannel(s)
		return nil
	case b[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			// Non-string members are ignored rather than failing the item.
			var s string
			if json.Unmarshal(r, &s) == nil {
				out = append(out, s)
			}
		}
		*c = Channels{list: out}
		return nil
	default:
		// Unexpected shape (number/object): treat as absent.
		*c = Channels{}
		return nil
	}
}

func (c Channels) MarshalJSON() ([]byte, error) {
	switch {
	case c.single && len(c.list) == 1:
		return json.Marshal(c.list[0])
	case c.list != nil:
		return json.Marshal(c.list)
	default:
		return []byte("null"), nil
	}
}

func (c Channels) String() string {
	if c.single && len(c.list) == 1 {
		return c.list[0]
	}
	return fmt.Sprint(c.list)
}

// Query is the paging window requested from the feed.
type Query struct {
	Page       int
	PageSize   int
	UnreadOnly bool
}

// DefaultQuery is the window the watcher polls: first page, ten items, unread only.
func DefaultQuery() Query { return Query{Page: 1, PageSize: 10, UnreadOnly: true} }
