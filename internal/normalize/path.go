package normalize

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// doc is an optional-path reader over one raw payload. Every read goes
// through a default-substituting accessor; a nil payload reads as absent
// everywhere.
type doc struct {
	root gjson.Result
}

func parse(payload json.RawMessage) doc {
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return doc{}
	}
	return doc{root: gjson.ParseBytes(payload)}
}

func (d doc) get(path string) gjson.Result {
	if !d.root.Exists() {
		return gjson.Result{}
	}
	return d.root.Get(path)
}

// object reports whether path holds a JSON object; null and scalars do not count.
func (d doc) object(path string) bool {
	return d.get(path).IsObject()
}

// str returns the trimmed string at path, or fallback when the value is
// absent, null or blank.
func (d doc) str(path, fallback string) string {
	return orDefault(d.get(path), fallback)
}

// float returns the number at path; absent or non-numeric values are 0.
func (d doc) float(path string) float64 {
	v := d.get(path)
	switch v.Type {
	case gjson.Number:
		return v.Num
	case gjson.String:
		return v.Float()
	default:
		return 0
	}
}

func orDefault(v gjson.Result, fallback string) string {
	if !v.Exists() || v.Type == gjson.Null {
		return fallback
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return fallback
	}
	return s
}
