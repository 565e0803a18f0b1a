package pendle

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Fields are the numerics lifted from a market detail record.
type Fields struct {
	PTPrice *float64
	SYPrice *float64
	TVL     *float64
}

// ExtractFields reads ptPrice/syPrice (falling back to prices.pt/prices.sy) and tvl.
// A present zero is kept; missing or unparsable values are nil.
func ExtractFields(raw []byte) Fields {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Fields{}
	}
	var prices map[string]json.RawMessage
	if p, ok := doc["prices"]; ok {
		_ = json.Unmarshal(p, &prices)
	}
	return Fields{
		PTPrice: firstNumber(doc["ptPrice"], prices["pt"]),
		SYPrice: firstNumber(doc["syPrice"], prices["sy"]),
		TVL:     parseNumber(doc["tvl"]),
	}
}

func firstNumber(candidates ...json.RawMessage) *float64 {
	for _, c := range candidates {
		if v := parseNumber(c); v != nil {
			return v
		}
	}
	return nil
}

// parseNumber accepts a JSON number, a numeric string, or an object carrying "usd".
func parseNumber(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	switch raw[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		return parseNumber(obj["usd"])
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		return finite(f)
	default:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil
		}
		return finite(f)
	}
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ParseMarketIDs accepts {"data":[...]}, {"markets":[...]} or a bare array and
// takes each id from id, marketId or address, skipping entries with none.
func ParseMarketIDs(raw []byte) ([]string, error) {
	var entries []json.RawMessage
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
	} else {
		var wrapper struct {
			Data    []json.RawMessage `json:"data"`
			Markets []json.RawMessage `json:"markets"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, err
		}
		entries = wrapper.Data
		if entries == nil {
			entries = wrapper.Markets
		}
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		var m struct {
			ID       any `json:"id"`
			MarketID any `json:"marketId"`
			Address  any `json:"address"`
		}
		if err := json.Unmarshal(e, &m); err != nil {
			continue
		}
		for _, c := range []any{m.ID, m.MarketID, m.Address} {
			if s, ok := c.(string); ok && s != "" {
				ids = append(ids, s)
				break
			}
		}
	}
	return ids, nil
}
