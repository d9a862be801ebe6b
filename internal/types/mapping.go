package types

// LocalSource points symbol prefixes at source files in the workspace
type LocalSource struct {
	Path string `yaml:"path"`
}

// GitHubSource points symbol prefixes at a version-pinned source tree
// on GitHub. Path is the directory inside the repository under which
// Java sources live (e.g. "spring-web/src/main/java").
type GitHubSource struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Ref   string `yaml:"ref"`
	Path  string `yaml:"path"`
}

// Source is the descriptor attached to a mapping entry. Exactly one of
// Local or GitHub is set.
type Source struct {
	Local  *LocalSource  `yaml:"local,omitempty"`
	GitHub *GitHubSource `yaml:"github,omitempty"`
}

// SameGitHub reports whether s is a remote source matching other on all
// of owner, repo, ref and path.
func (s Source) SameGitHub(other GitHubSource) bool {
	return s.GitHub != nil && *s.GitHub == other
}

// FunctionPrefix wraps a single package prefix for emission
type FunctionPrefix struct {
	Prefix string `yaml:"prefix"`
}

// MappingEntry maps a set of package prefixes to one source descriptor
type MappingEntry struct {
	FunctionName []FunctionPrefix `yaml:"function_name"`
	Language     string           `yaml:"language"`
	Source       Source           `yaml:"source"`
}

// Prefixes returns the entry's prefixes as plain strings
func (e *MappingEntry) Prefixes() []string {
	prefixes := make([]string, 0, len(e.FunctionName))
	for _, fn := range e.FunctionName {
		prefixes = append(prefixes, fn.Prefix)
	}
	return prefixes
}

// SetPrefixes replaces the entry's prefixes, preserving the given order
func (e *MappingEntry) SetPrefixes(prefixes []string) {
	e.FunctionName = make([]FunctionPrefix, 0, len(prefixes))
	for _, p := range prefixes {
		e.FunctionName = append(e.FunctionName, FunctionPrefix{Prefix: p})
	}
}

// SourceCode holds the ordered mapping list
type SourceCode struct {
	Mappings []*MappingEntry `yaml:"mappings"`
}

// MappingDocument is the emitted configuration document. Its YAML shape
// is fixed: one top-level source_code key with one mappings list.
type MappingDocument struct {
	SourceCode SourceCode `yaml:"source_code"`
}
