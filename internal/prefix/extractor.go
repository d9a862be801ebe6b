package prefix

import (
	"strings"

	"github.com/stackmap/source-mapper/internal/sbom"
)

const (
	keyMainClass     = "Main-Class"
	keyStartClass    = "Start-Class"
	keyExportPackage = "Export-Package"
	keyImportPackage = "Import-Package"
)

// Extractor derives package prefixes from a single archive
type Extractor struct {
	view             *sbom.View
	launcherPackages []string
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLauncherPackages overrides the launcher-loader package list used
// to reject Main-Class entries that name a launcher shim.
func WithLauncherPackages(packages []string) Option {
	return func(e *Extractor) {
		e.launcherPackages = packages
	}
}

// NewExtractor creates an Extractor over the given SBOM view
func NewExtractor(view *sbom.View, opts ...Option) *Extractor {
	e := &Extractor{
		view:             view,
		launcherPackages: []string{"org.springframework.boot.loader"},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplicationPrefixes derives the application's package prefix from the
// entry-point class: Start-Class when present, else a Main-Class that
// is not a launcher shim. The class segment is stripped and dots become
// slashes. At most one prefix is produced.
func (e *Extractor) ApplicationPrefixes(a *sbom.Artifact) []string {
	main := e.view.ManifestMain(a)

	for _, entry := range main {
		if entry.Key == keyStartClass {
			if p, ok := classPackage(entry.Value); ok {
				return []string{p}
			}
			return nil
		}
	}
	for _, entry := range main {
		if entry.Key == keyMainClass {
			if e.isLauncherClass(entry.Value) {
				return nil
			}
			if p, ok := classPackage(entry.Value); ok {
				return []string{p}
			}
			return nil
		}
	}
	return nil
}

// LibraryPrefixes derives a library archive's package prefixes. The
// manifest's OSGi package lists are preferred because they reflect the
// archive's actual package structure; groupId-derived prefixes are the
// fallback (groupIds do not always match package roots, so ancestors
// are generated as well).
func (e *Extractor) LibraryPrefixes(a *sbom.Artifact) []string {
	var packages []string
	for _, entry := range e.view.ManifestMain(a) {
		if entry.Key == keyExportPackage || entry.Key == keyImportPackage {
			packages = append(packages, ParsePackageList(entry.Value)...)
		}
	}
	if len(packages) > 0 {
		return Consolidate(packages)
	}

	groupID := ""
	if coord, err := e.view.Coordinate(a); err == nil {
		groupID = coord.GroupID
	}
	if groupID == "" {
		groupID = e.view.PomProperties(a).GroupID
	}
	return GroupIDPrefixes(groupID)
}

// ParsePackageList parses an OSGi manifest package list of the form
// "pkg1;version=1.0,pkg2;uses:=pkg3". The package name is the token
// before the first ";", with surrounding quotes and whitespace
// stripped. Tokens without a "." or starting with version/uses/"[" are
// attribute fragments, not packages.
func ParsePackageList(value string) []string {
	var packages []string
	for _, entry := range strings.Split(value, ",") {
		name, _, _ := strings.Cut(entry, ";")
		name = strings.Trim(strings.TrimSpace(name), `"'`)
		if name == "" || !strings.Contains(name, ".") {
			continue
		}
		if strings.HasPrefix(name, "version") || strings.HasPrefix(name, "uses") || strings.HasPrefix(name, "[") {
			continue
		}
		packages = append(packages, name)
	}
	return packages
}

// GroupIDPrefixes converts a groupId into a prefix plus up to two
// ancestor prefixes (org.apache.tomcat.embed also yields
// org/apache/tomcat and org/apache).
func GroupIDPrefixes(groupID string) []string {
	if groupID == "" {
		return nil
	}

	seen := make(map[string]bool)
	var prefixes []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			prefixes = append(prefixes, p)
		}
	}

	add(strings.ReplaceAll(groupID, ".", "/"))
	parts := strings.Split(groupID, ".")
	for i := len(parts) - 1; i > 0 && i > len(parts)-3; i-- {
		add(strings.ReplaceAll(strings.Join(parts[:i], "."), ".", "/"))
	}
	return prefixes
}

// classPackage strips the class segment from a fully-qualified class
// name and converts it to slash form. Classes in the default package
// produce nothing.
func classPackage(className string) (string, bool) {
	idx := strings.LastIndex(className, ".")
	if idx <= 0 {
		return "", false
	}
	return strings.ReplaceAll(className[:idx], ".", "/"), true
}

func (e *Extractor) isLauncherClass(className string) bool {
	for _, pkg := range e.launcherPackages {
		if strings.Contains(className, pkg) {
			return true
		}
	}
	return false
}
