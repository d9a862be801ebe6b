package sbom

import (
	"errors"

	"github.com/package-url/packageurl-go"
	"github.com/stackmap/source-mapper/internal/types"
)

// ErrNotMavenCoordinate is returned by View.Coordinate when the archive
// has no package URL or the URL is not a Maven purl. Callers fall
// through to the manifest-only path; this is not a document error.
var ErrNotMavenCoordinate = errors.New("artifact has no Maven coordinate")

const (
	typeJavaArchive = "java-archive"
	languageJava    = "java"
)

// View is the normalized read-only projection of an SBOM document.
// Consumers never reach into the raw document beyond it.
type View struct {
	doc *Document
}

// NewView wraps a loaded document
func NewView(doc *Document) *View {
	return &View{doc: doc}
}

// Archives returns the java-archive artifacts in document order.
// Pointers index into the underlying document; archives are immutable.
func (v *View) Archives() []*Artifact {
	var archives []*Artifact
	for i := range v.doc.Artifacts {
		a := &v.doc.Artifacts[i]
		if a.Type == typeJavaArchive && a.Language == languageJava {
			archives = append(archives, a)
		}
	}
	return archives
}

// Coordinate parses the archive's package URL into a Maven coordinate.
// The purl namespace (subcomponents joined by "/") becomes the groupId
// and the purl name the artifactId.
func (v *View) Coordinate(a *Artifact) (types.MavenCoordinate, error) {
	if a.PURL == "" {
		return types.MavenCoordinate{}, ErrNotMavenCoordinate
	}
	purl, err := packageurl.FromString(a.PURL)
	if err != nil {
		return types.MavenCoordinate{}, ErrNotMavenCoordinate
	}
	if purl.Type != packageurl.TypeMaven || purl.Namespace == "" || purl.Name == "" || purl.Version == "" {
		return types.MavenCoordinate{}, ErrNotMavenCoordinate
	}
	return types.MavenCoordinate{
		GroupID:    purl.Namespace,
		ArtifactID: purl.Name,
		Version:    purl.Version,
	}, nil
}

// ManifestMain returns the ordered manifest main section. Keys are
// case-sensitive and duplicates are preserved in source order.
func (v *View) ManifestMain(a *Artifact) []ManifestEntry {
	if a.Metadata == nil || a.Metadata.Manifest == nil {
		return nil
	}
	return a.Metadata.Manifest.Main
}

// PomProject returns the pom.xml project block, zero-valued when absent
func (v *View) PomProject(a *Artifact) PomProject {
	if a.Metadata == nil || a.Metadata.PomProject == nil {
		return PomProject{}
	}
	return *a.Metadata.PomProject
}

// PomProperties returns the pom.properties block, zero-valued when absent
func (v *View) PomProperties(a *Artifact) PomProperties {
	if a.Metadata == nil || a.Metadata.PomProperties == nil {
		return PomProperties{}
	}
	return *a.Metadata.PomProperties
}
