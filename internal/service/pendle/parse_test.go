package pendle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFields(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		pt, sy, tvl  *float64
	}{
		{
			name: "top level numbers",
			raw:  `{"ptPrice":0.95,"syPrice":1.01,"tvl":1500000}`,
			pt:   f(0.95), sy: f(1.01), tvl: f(1500000),
		},
		{
			name: "prices fallback",
			raw:  `{"prices":{"pt":0.9,"sy":"1.2"}}`,
			pt:   f(0.9), sy: f(1.2),
		},
		{
			name: "usd objects and numeric strings",
			raw:  `{"ptPrice":{"usd":0.97},"tvl":{"usd":"2500.5"}}`,
			pt:   f(0.97), tvl: f(2500.5),
		},
		{
			name: "zero is kept",
			raw:  `{"ptPrice":0,"prices":{"pt":0.5},"tvl":0}`,
			pt:   f(0), tvl: f(0),
		},
		{
			name: "unparsable values are nil",
			raw:  `{"ptPrice":"n/a","syPrice":true,"tvl":null}`,
		},
		{
			name: "non json",
			raw:  `<html>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFields([]byte(tt.raw))
			assert.Equal(t, tt.pt, got.PTPrice)
			assert.Equal(t, tt.sy, got.SYPrice)
			assert.Equal(t, tt.tvl, got.TVL)
		})
	}
}

func TestParseMarketIDs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"data wrapper", `{"data":[{"id":"a"},{"marketId":"b"},{"address":"0xc"},{"name":"skip"}]}`, []string{"a", "b", "0xc"}},
		{"markets wrapper", `{"markets":[{"address":"0x1"}]}`, []string{"0x1"}},
		{"bare array", `[{"id":"","marketId":"","address":"0x2"}]`, []string{"0x2"}},
		{"empty", `{}`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMarketIDs([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMarketIDs([]byte(`not json`))
	assert.Error(t, err)
}

func f(v float64) *float64 { return &v }
