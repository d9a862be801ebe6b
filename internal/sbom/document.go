package sbom

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed sbom-schema.json
var schemaData []byte

// MalformedSBOMError indicates the input document is unusable: invalid
// JSON or missing required fields. It is the only error that crosses
// the component boundary; the driver treats it as fatal.
type MalformedSBOMError struct {
	Reason string
	Err    error
}

func (e *MalformedSBOMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed SBOM: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed SBOM: %s", e.Reason)
}

func (e *MalformedSBOMError) Unwrap() error {
	return e.Err
}

// Document is the raw SBOM as produced by syft -o json, reduced to the
// fields the resolver consumes.
type Document struct {
	Artifacts []Artifact `json:"artifacts"`
}

// Artifact is a single SBOM entry. Immutable after ingestion.
type Artifact struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Version   string     `json:"version"`
	Type      string     `json:"type"`
	Language  string     `json:"language"`
	PURL      string     `json:"purl"`
	Locations []Location `json:"locations"`
	Metadata  *Metadata  `json:"metadata"`
}

// Location is a path/accessPath pair. For archives embedded in other
// archives the accessPath carries the containment chain
// (e.g. "/app.jar:BOOT-INF/lib/spring-web.jar").
type Location struct {
	Path       string `json:"path"`
	AccessPath string `json:"accessPath"`
}

// Metadata carries the optional java-archive metadata blocks
type Metadata struct {
	Manifest      *Manifest      `json:"manifest"`
	PomProperties *PomProperties `json:"pomProperties"`
	PomProject    *PomProject    `json:"pomProject"`
}

// Manifest is the JAR manifest; Main preserves source order and
// duplicate keys.
type Manifest struct {
	Main []ManifestEntry `json:"main"`
}

// ManifestEntry is one key/value pair from the manifest main section
type ManifestEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PomProperties mirrors the pom.properties block
type PomProperties struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
}

// PomProject mirrors the pom.xml project block
type PomProject struct {
	URL    string            `json:"url"`
	Parent *ParentCoordinate `json:"parent"`
}

// ParentCoordinate is the parent POM coordinate, if declared
type ParentCoordinate struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
}

// Load reads, validates and decodes an SBOM document. Any JSON or
// schema failure is reported as *MalformedSBOMError.
func Load(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &MalformedSBOMError{Reason: "cannot read input", Err: err}
	}

	// Validate against the embedded schema before decoding so that
	// shape problems surface with a message naming the offending field.
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedSBOMError{Reason: "invalid JSON", Err: err}
	}
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var doc Document
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&doc); err != nil {
		return nil, &MalformedSBOMError{Reason: "cannot decode document", Err: err}
	}
	return &doc, nil
}

// validateDocument validates parsed JSON against the embedded schema
func validateDocument(raw interface{}) error {
	schema, err := jsonschema.CompileString("sbom-schema.json", string(schemaData))
	if err != nil {
		return fmt.Errorf("failed to compile SBOM schema: %w", err)
	}

	if err := schema.Validate(raw); err != nil {
		var messages []string
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			for _, cause := range validationErr.Causes {
				messages = append(messages, cause.Message)
			}
			if len(messages) == 0 {
				messages = append(messages, validationErr.Message)
			}
		} else {
			messages = append(messages, err.Error())
		}
		return &MalformedSBOMError{Reason: strings.Join(messages, "; ")}
	}
	return nil
}
