package groups

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type quarter struct{ year, q int }

func (q quarter) String() string { return "Q" + FormatKey(q.q) + "-" + FormatKey(q.year) }

func TestFormatKey(t *testing.T) {
	t.Parallel()

	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	instant := time.Date(2023, 1, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "nil", in: nil, want: NullKey},
		{name: "string", in: "2023-01", want: "2023-01"},
		{name: "empty string", in: "", want: ""},
		{name: "int", in: 42, want: "42"},
		{name: "negative int64", in: int64(-7), want: "-7"},
		{name: "uint8", in: uint8(255), want: "255"},
		{name: "float", in: 2.5, want: "2.5"},
		{name: "integral float", in: 3.0, want: "3"},
		{name: "float32", in: float32(0.1), want: "0.1"},
		{name: "bool", in: true, want: "true"},
		{name: "json number", in: json.Number("12.50"), want: "12.50"},
		{name: "date", in: day, want: "2023-01-02"},
		{name: "date pointer", in: &day, want: "2023-01-02"},
		{name: "nil time pointer", in: (*time.Time)(nil), want: NullKey},
		{name: "timestamp", in: instant, want: "2023-01-02T15:04:05Z"},
		{name: "stringer", in: quarter{year: 2023, q: 1}, want: "Q1-2023"},
		{name: "fallback", in: []int{1, 2}, want: "[1 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatKey(tt.in))
		})
	}
}

func TestFormatKey_MidnightInOtherZone(t *testing.T) {
	t.Parallel()

	zone := time.FixedZone("UTC+2", 2*60*60)
	local := time.Date(2023, 1, 2, 0, 0, 0, 0, zone)

	assert.Equal(t, "2023-01-02T00:00:00+02:00", FormatKey(local))
	assert.Equal(t, "2023-01-02", FormatKey(time.Date(2023, 1, 2, 2, 0, 0, 0, zone)))
}
