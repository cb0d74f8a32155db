// Package fontmeta reads font metadata from the OpenType name table.
package fontmeta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/sfnt"

	"fonttrack/internal/ft"
)

// nameFields maps name table entries to attribute names. The attribute
// names match the catalog's default record schema.
var nameFields = []struct {
	id   sfnt.NameID
	attr string
}{
	{sfnt.NameIDCopyright, "copyright"},
	{sfnt.NameIDFamily, "family"},
	{sfnt.NameIDSubfamily, "subfamily"},
	{sfnt.NameIDUniqueIdentifier, "unique_id"},
	{sfnt.NameIDFull, "full_name"},
	{sfnt.NameIDVersion, "version"},
	{sfnt.NameIDPostScript, "postscript_name"},
	{sfnt.NameIDTrademark, "trademark"},
	{sfnt.NameIDManufacturer, "manufacturer"},
	{sfnt.NameIDDesigner, "designer"},
	{sfnt.NameIDDescription, "description"},
	{sfnt.NameIDVendorURL, "vendor_url"},
	{sfnt.NameIDDesignerURL, "designer_url"},
	{sfnt.NameIDLicense, "license"},
	{sfnt.NameIDLicenseURL, "license_url"},
	{sfnt.NameIDTypographicFamily, "typographic_family"},
	{sfnt.NameIDTypographicSubfamily, "typographic_subfamily"},
	{sfnt.NameIDSampleText, "sample_text"},
}

// AttributeNames returns the attribute names an SFNTExtractor can produce,
// in name ID order.
func AttributeNames() []string {
	names := make([]string, len(nameFields))
	for i, f := range nameFields {
		names[i] = f.attr
	}
	return names
}

// SFNTExtractor extracts attributes from TrueType and OpenType files.
// Collections (.ttc, .otc) are described by their first face.
type SFNTExtractor struct{}

func NewSFNTExtractor() *SFNTExtractor {
	return &SFNTExtractor{}
}

// Extract returns the name table entries present in the font at path.
// Entries that are missing, or stored in an encoding the parser does not
// support, are left out.
func (e *SFNTExtractor) Extract(path ft.FontPath) (ft.Attributes, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}

	font, err := parse(string(path), data)
	if err != nil {
		return nil, err
	}

	var buf sfnt.Buffer
	attrs := ft.Attributes{}
	for _, f := range nameFields {
		v, err := font.Name(&buf, f.id)
		if err != nil {
			// sfnt.ErrNotFound, or an entry in an unsupported encoding.
			continue
		}
		v = strings.TrimRight(v, "\x00")
		if v == "" {
			continue
		}
		attrs[f.attr] = v
	}
	return attrs, nil
}

func parse(path string, data []byte) (*sfnt.Font, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttc", ".otc":
		c, err := sfnt.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("parsing font collection: %w", err)
		}
		if c.NumFonts() == 0 {
			return nil, fmt.Errorf("parsing font collection: no fonts")
		}
		font, err := c.Font(0)
		if err != nil {
			return nil, fmt.Errorf("reading first font of collection: %w", err)
		}
		return font, nil
	default:
		font, err := sfnt.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing font: %w", err)
		}
		return font, nil
	}
}

var _ ft.Extractor = (*SFNTExtractor)(nil)
