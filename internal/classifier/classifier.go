// Package classifier decides which SBOM archives are application code
// and which are embedded dependencies, and identifies the archive that
// acts as the application's entry point.
package classifier

import (
	"strings"

	"github.com/stackmap/source-mapper/internal/sbom"
)

const (
	// bootLibMarker appears in the accessPath of archives embedded in a
	// self-extracting launcher archive.
	bootLibMarker = ":BOOT-INF/lib/"

	keyMainClass  = "Main-Class"
	keyStartClass = "Start-Class"
)

// DefaultLauncherPackages are Main-Class package roots that identify a
// launcher shim rather than application code. The list is configurable
// because other packaging conventions exist.
var DefaultLauncherPackages = []string{"org.springframework.boot.loader"}

// Classifier classifies archives relative to the main application archive
type Classifier struct {
	view             *sbom.View
	launcherPackages []string
}

// Option configures a Classifier
type Option func(*Classifier)

// WithLauncherPackages overrides the launcher-loader package list
func WithLauncherPackages(packages []string) Option {
	return func(c *Classifier) {
		c.launcherPackages = packages
	}
}

// New creates a Classifier over the given SBOM view
func New(view *sbom.View, opts ...Option) *Classifier {
	c := &Classifier{
		view:             view,
		launcherPackages: DefaultLauncherPackages,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// isInBootLib reports whether the location sits inside an embedded
// dependency directory of a launcher archive.
func isInBootLib(loc sbom.Location) bool {
	return strings.Contains(loc.AccessPath, bootLibMarker)
}

// MainArchive selects the archive interpreted as the application entry
// point and the location path it was selected through. Candidates are
// archives with a non-boot-lib location whose path ends in ".jar";
// among them one with a Main-Class manifest entry wins, else the first
// candidate. The boolean is false when no candidate exists, in which
// case every archive classifies as a library.
func (c *Classifier) MainArchive() (*sbom.Artifact, string, bool) {
	type candidate struct {
		archive *sbom.Artifact
		path    string
	}
	var candidates []candidate

	for _, a := range c.view.Archives() {
		for _, loc := range a.Locations {
			if !isInBootLib(loc) && strings.HasSuffix(loc.Path, ".jar") {
				candidates = append(candidates, candidate{archive: a, path: loc.Path})
				break
			}
		}
	}

	for _, cand := range candidates {
		if c.manifestValue(cand.archive, keyMainClass) != "" {
			return cand.archive, cand.path, true
		}
	}
	if len(candidates) > 0 {
		return candidates[0].archive, candidates[0].path, true
	}
	return nil, "", false
}

// IsApplication decides whether archive a is application code, given
// the selected main archive path. With no main archive every archive
// is a library.
func (c *Classifier) IsApplication(a *sbom.Artifact, mainPath string) bool {
	if mainPath == "" {
		return false
	}

	// The archive must share the main archive's path through a
	// location outside BOOT-INF/lib.
	inMain := false
	for _, loc := range a.Locations {
		if loc.Path == mainPath && !isInBootLib(loc) {
			inMain = true
			break
		}
	}
	if !inMain {
		return false
	}

	for _, entry := range c.view.ManifestMain(a) {
		if entry.Key == keyStartClass {
			// Self-extracting launcher layout: the launcher owns
			// Main-Class, Start-Class names the application.
			return true
		}
	}
	for _, entry := range c.view.ManifestMain(a) {
		if entry.Key == keyMainClass {
			return !c.IsLauncherClass(entry.Value)
		}
	}

	// No entry-point manifest data: application code typically lacks
	// Maven coordinates, embedded libraries carry them.
	_, err := c.view.Coordinate(a)
	return err != nil
}

// manifestValue returns the first manifest main value for key, empty
// when absent.
func (c *Classifier) manifestValue(a *sbom.Artifact, key string) string {
	for _, entry := range c.view.ManifestMain(a) {
		if entry.Key == key {
			return entry.Value
		}
	}
	return ""
}

// IsLauncherClass reports whether the class name belongs to a known
// launcher-loader package.
func (c *Classifier) IsLauncherClass(className string) bool {
	for _, pkg := range c.launcherPackages {
		if strings.Contains(className, pkg) {
			return true
		}
	}
	return false
}
