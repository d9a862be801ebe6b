package spec

const (
	// Version represents the output format specification version
	// It should be updated when breaking changes are made to the
	// mapping document structure
	Version = "0.1"
)
