package ft

// FontRecord is the unit exchanged with the remote catalog: one font owned by
// one user, with a value for every field in the schema.
type FontRecord struct {
	UserName string
	FontPath FontPath
	Fields   map[string]string
}

// Schema is the list of record fields the remote catalog accepts.
// It is injected from configuration rather than derived from a client.
type Schema struct {
	fields []string
}

// NewSchema creates a Schema for the given field names. Duplicates are dropped,
// keeping first occurrence order.
func NewSchema(fields []string) *Schema {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return &Schema{fields: out}
}

// Fields returns the schema's field names.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Record builds the FontRecord for path owned by owner. Every schema field is
// present; fields missing from attrs are set to "". Attributes outside the
// schema are not sent.
func (s *Schema) Record(owner string, path FontPath, attrs Attributes) FontRecord {
	fields := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		fields[f] = attrs[f]
	}
	return FontRecord{
		UserName: owner,
		FontPath: path,
		Fields:   fields,
	}
}

// FontQuery filters catalog listings. Empty fields match everything.
type FontQuery struct {
	UserName string
	FontPath FontPath
	Fields   map[string]string
}
