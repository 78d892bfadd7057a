package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ResultSet is the immutable outcome of a run: records grouped by shop and
// the same records flattened in accumulation order.
type ResultSet struct {
	Groups  []ShopGroup
	Records []Material
}

// Count returns the number of flat records.
func (rs ResultSet) Count() int {
	return len(rs.Records)
}

// Shop returns the records stored for shop, or nil.
func (rs ResultSet) Shop(shop string) []Material {
	for _, g := range rs.Groups {
		if g.Shop == shop {
			return g.Materials
		}
	}
	return nil
}

// MarshalJSON encodes the grouped view as an object keyed by shop name.
// Keys keep the order in which shops were first seen.
func (rs ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range rs.Groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(g.Shop)
		if err != nil {
			return nil, fmt.Errorf("encode shop %q: %w", g.Shop, err)
		}
		materials := g.Materials
		if materials == nil {
			materials = []Material{}
		}
		value, err := json.Marshal(materials)
		if err != nil {
			return nil, fmt.Errorf("encode materials for %q: %w", g.Shop, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
