package feed

import (
	"encoding/json"
	"testing"
)

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestNormalizeShapes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		payload string
		want    []string
		shape   string
	}{
		{name: "null", payload: `null`, want: []string{}},
		{name: "number", payload: `42`, want: []string{}},
		{name: "empty", payload: ``, want: []string{}},
		{name: "bare array", payload: `[{"id":"x"},{"id":"y"}]`, want: []string{"x", "y"}, shape: "array"},
		{name: "items field", payload: `{"items":[{"id":"x"}]}`, want: []string{"x"}, shape: "items"},
		{name: "data field", payload: `{"data":[{"id":"x"}]}`, want: []string{"x"}, shape: "data"},
		{name: "items wins over data", payload: `{"data":[{"id":"d"}],"items":[{"id":"i"}]}`, want: []string{"i"}, shape: "items"},
		{name: "non-array items falls through to data", payload: `{"items":{"id":"i"},"data":[{"id":"d"}]}`, want: []string{"d"}, shape: "data"},
		{name: "object without fields", payload: `{"total":3}`, want: []string{}},
		{name: "string", payload: `"hello"`, want: []string{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, shape := NormalizeShape(json.RawMessage(tt.payload))
			if got == nil {
				t.Fatal("Normalize must never return nil")
			}
			if g := ids(got); len(g) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", g, tt.want)
			} else {
				for i := range g {
					if g[i] != tt.want[i] {
						t.Fatalf("ids = %v, want %v", g, tt.want)
					}
				}
			}
			if shape != tt.shape {
				t.Fatalf("shape = %q, want %q", shape, tt.shape)
			}
		})
	}
}

func TestNormalizeDecodesFields(t *testing.T) {
	t.Parallel()
	payload := `[
		{"id":"1","title":"Pickup","message":"Bus at 4pm","type":"schedule","channels":"alerts","isRead":false,"data":{"bookingId":7},"priority":"high"},
		{"id":2,"channels":["wallet","other"],"isRead":true},
		{"id":"3","channels":[]},
		"garbage",
		7
	]`
	items := Normalize(json.RawMessage(payload))
	if len(items) != 3 {
		t.Fatalf("expected 3 items (non-objects skipped), got %d", len(items))
	}

	first := items[0]
	if first.Title != "Pickup" || first.Message != "Bus at 4pm" || first.Type != "schedule" || first.Priority != "high" {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if ch, ok := first.Channels.Primary(); !ok || ch != "alerts" {
		t.Fatalf("Primary = %q,%v want alerts", ch, ok)
	}
	if first.Data["bookingId"] != float64(7) {
		t.Fatalf("data = %v", first.Data)
	}

	if items[1].ID != "2" {
		t.Fatalf("numeric id should become %q, got %q", "2", items[1].ID)
	}
	if ch, ok := items[1].Channels.Primary(); !ok || ch != "wallet" {
		t.Fatalf("Primary = %q,%v want wallet", ch, ok)
	}
	if !items[1].IsRead {
		t.Fatal("isRead not decoded")
	}
	if _, ok := items[2].Channels.Primary(); ok {
		t.Fatal("empty channel list must have no primary")
	}
}

func TestChannelsRoundTripShape(t *testing.T) {
	t.Parallel()
	for _, in := range []string{`"alerts"`, `["a","b"]`, `null`} {
		var c Channels
		if err := json.Unmarshal([]byte(in), &c); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		out, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("marshal %s: %v", in, err)
		}
		if string(out) != in {
			t.Fatalf("round trip %s -> %s", in, out)
		}
	}
}

func TestNormalizeSkipsItemsWithoutID(t *testing.T) {
	t.Parallel()
	payload := `[{"id":"a"},{"title":"no id"},{"id":null},{"id":""},{"id":"  "},{"id":0},{"id":"b"}]`
	got := ids(Normalize(json.RawMessage(payload)))
	want := []string{"a", "0", "b"}
	if len(got) != len(want) {
		t.Fatalf("ids = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %q, want %q", got, want)
		}
	}
}
