package catalog

import (
	"fmt"

	"fonttrack/internal/ft"
)

// Identity fields of the wire form. Every other key is a schema field.
const (
	fieldUserName = "user_name"
	fieldFontPath = "font_path"
)

// encodeRecord flattens a record into the catalog's JSON object:
// {"user_name": ..., "font_path": ..., <field>: <value>, ...}.
func encodeRecord(rec ft.FontRecord) map[string]string {
	out := make(map[string]string, len(rec.Fields)+2)
	for k, v := range rec.Fields {
		out[k] = v
	}
	out[fieldUserName] = rec.UserName
	out[fieldFontPath] = string(rec.FontPath)
	return out
}

func encodeRecords(recs []ft.FontRecord) []map[string]string {
	out := make([]map[string]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, encodeRecord(rec))
	}
	return out
}

// encodeQuery sends only the fields that constrain the listing.
func encodeQuery(q ft.FontQuery) map[string]string {
	out := make(map[string]string, len(q.Fields)+2)
	for k, v := range q.Fields {
		if v != "" {
			out[k] = v
		}
	}
	if q.UserName != "" {
		out[fieldUserName] = q.UserName
	}
	if q.FontPath != "" {
		out[fieldFontPath] = string(q.FontPath)
	}
	return out
}

// decodeRecord accepts loosely typed values: the catalog may return nulls or
// numbers for fields it stores.
func decodeRecord(raw map[string]any) ft.FontRecord {
	rec := ft.FontRecord{Fields: make(map[string]string, len(raw))}
	for k, v := range raw {
		s := stringify(v)
		switch k {
		case fieldUserName:
			rec.UserName = s
		case fieldFontPath:
			rec.FontPath = ft.FontPath(s)
		default:
			rec.Fields[k] = s
		}
	}
	return rec
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
