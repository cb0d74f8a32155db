package ft

// Extractor reads the metadata of a single font file.
type Extractor interface {
	Extract(path FontPath) (Attributes, error)
}

// Scanner enumerates the font files currently present.
// An error means the candidate set is unknown, not that it is empty.
type Scanner interface {
	Scan() ([]FontPath, error)
}
