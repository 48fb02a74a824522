package models

import (
	"bytes"
	"encoding/json"
)

// Product is a catalogue record as served by the backend. Only display and
// aggregation use it, so decoding never fails on the type of a single field.
type Product struct {
	UniqID       string `json:"uniq_id"`
	Title        string `json:"title"`
	Brand        string `json:"brand,omitempty"`
	Price        string `json:"price"`
	PrimaryImage string `json:"primary_image,omitempty"`
	// Categories is either a JSON array of labels or a string holding a
	// python-style list literal. It is kept verbatim.
	Categories json.RawMessage `json:"categories,omitempty"`
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// Not an object: the record carries nothing usable.
		*p = Product{}
		return nil
	}

	*p = Product{
		UniqID:       scalarText(fields["uniq_id"]),
		Title:        scalarText(fields["title"]),
		Brand:        scalarText(fields["brand"]),
		Price:        stringValue(fields["price"]),
		PrimaryImage: stringValue(fields["primary_image"]),
	}
	if raw := bytes.TrimSpace(fields["categories"]); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		p.Categories = raw
	}
	return nil
}

// stringValue returns raw decoded as a JSON string, or "" for any other type.
func stringValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// scalarText is like stringValue but keeps the literal text of numbers and
// booleans, which show up as ids in some catalogue dumps.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		return stringValue(raw)
	case '{', '[', 'n':
		return ""
	default:
		return string(raw)
	}
}
