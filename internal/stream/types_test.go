package stream

import (
	"encoding/json"
	"testing"
)

func decodeEnvelope(t *testing.T, raw string) *envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return &env
}

func TestEnvelopeErrText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"success plain", `{"action":"subscribe","status":"ok"}`, ""},
		{"success no status", `{"action":"subscribe","topics":["market.ticker-ES"]}`, ""},
		{"error string", `{"action":"subscribe","error":"unknown symbol"}`, "unknown symbol"},
		{"error object", `{"action":"subscribe","error":{"code":403,"message":"not entitled"}}`, "403: not entitled"},
		{"error object message only", `{"action":"subscribe","error":{"message":"bad topic"}}`, "bad topic"},
		{"error object code only", `{"action":"subscribe","error":{"code":"E42"}}`, "error code E42"},
		{"error true", `{"action":"subscribe","error":true}`, "subscription rejected"},
		{"error false", `{"action":"subscribe","error":false}`, ""},
		{"error null", `{"action":"subscribe","error":null}`, ""},
		{"ok false", `{"action":"subscribe","ok":false}`, "subscription rejected"},
		{"ok false with message", `{"action":"subscribe","ok":false,"message":"limit reached"}`, "limit reached"},
		{"ok true", `{"action":"subscribe","ok":true}`, ""},
		{"success false", `{"action":"subscribe","success":false}`, "subscription rejected"},
		{"status rejected", `{"action":"subscribe","status":"rejected"}`, "subscription rejected"},
		{"status error with message", `{"action":"subscribe","status":"error","message":"nope"}`, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := decodeEnvelope(t, tt.raw)
			if got := env.errText(); got != tt.want {
				t.Errorf("errText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnvelopeTopicName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"topic":"market.ticker-ES"}`, "market.ticker-ES"},
		{`{"channel":"market.dom-ES"}`, "market.dom-ES"},
		{`{"event":"market.bar-ES"}`, "market.bar-ES"},
		{`{"topic":"market.ticker-ES","event":"ignored"}`, "market.ticker-ES"},
		{`{}`, ""},
	}

	for _, tt := range tests {
		env := decodeEnvelope(t, tt.raw)
		if got := env.topicName(); got != tt.want {
			t.Errorf("topicName(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestResolveSnapshotRecords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{
			"top level snapshot object",
			`{"action":"subscribe","snapshot":{"bid":1}}`,
			1,
		},
		{
			"top level snapshots array",
			`{"action":"subscribe","snapshots":[{"bid":1},{"ask":2}]}`,
			2,
		},
		{
			"nested under payload",
			`{"action":"subscribe","payload":{"snapshot":{"bid":1}}}`,
			1,
		},
		{
			"nested array under data",
			`{"action":"subscribe","data":{"snapshots":[{"bid":1}]}}`,
			1,
		},
		{
			"snapshot wins over nested",
			`{"action":"subscribe","snapshot":{"bid":1},"payload":{"snapshots":[{"a":1},{"b":2}]}}`,
			1,
		},
		{"no snapshot anywhere", `{"action":"subscribe","payload":{"x":1}}`, 0},
		{"null snapshot", `{"action":"subscribe","snapshot":null}`, 0},
		{"empty array", `{"action":"subscribe","snapshots":[]}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := decodeEnvelope(t, tt.raw)
			if got := len(resolveSnapshotRecords(env)); got != tt.want {
				t.Errorf("resolveSnapshotRecords() returned %d records, want %d", got, tt.want)
			}
		})
	}
}

func TestEnvelopePayloadMapPrefersPayload(t *testing.T) {
	env := decodeEnvelope(t, `{"payload":{"bid":1},"data":{"bid":2}}`)
	m := env.payloadMap()
	if m == nil {
		t.Fatal("payloadMap returned nil")
	}
	if m["bid"].(float64) != 1 {
		t.Errorf("payloadMap preferred data over payload: %v", m)
	}

	env = decodeEnvelope(t, `{"data":{"bid":2}}`)
	if m := env.payloadMap(); m == nil || m["bid"].(float64) != 2 {
		t.Errorf("payloadMap did not fall back to data: %v", m)
	}
}
