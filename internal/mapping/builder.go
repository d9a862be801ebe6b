// Package mapping assembles the output document from resolved
// prefix/source pairs, enforcing prefix uniqueness and antichain
// minimality across the whole document.
package mapping

import (
	"log/slog"
	"strings"

	"github.com/stackmap/source-mapper/internal/prefix"
	"github.com/stackmap/source-mapper/internal/types"
)

const languageJava = "java"

// Builder accumulates mapping entries. Lifecycle is build-once,
// emit-once: add entries, then call Document.
type Builder struct {
	logger  *slog.Logger
	entries []*types.MappingEntry

	// used enforces global prefix uniqueness; first writer wins.
	used map[string]types.Source
}

// NewBuilder creates an empty Builder
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{
		logger: logger,
		used:   make(map[string]types.Source),
	}
}

// AddApplication adds the local workspace entry. It is added before
// any dependency entry; launcher-loader prefixes are dropped.
func (b *Builder) AddApplication(prefixes []string, localPath string) {
	var filtered []string
	for _, p := range prefixes {
		if strings.HasSuffix(p, "/loader") || strings.Contains(p, "/loader/") {
			continue
		}
		filtered = append(filtered, p)
	}

	source := types.Source{Local: &types.LocalSource{Path: localPath}}
	kept := b.claim(filtered, source)
	if len(kept) == 0 {
		return
	}

	entry := &types.MappingEntry{Language: languageJava, Source: source}
	entry.SetPrefixes(prefix.FilterNested(kept))
	b.entries = append(b.entries, entry)
	b.pruneNested()
}

// AddDependency adds or extends a remote entry. Entries sharing the
// full (owner, repo, ref, path) descriptor coalesce.
func (b *Builder) AddDependency(prefixes []string, remote types.GitHubSource) {
	source := types.Source{GitHub: &remote}
	kept := b.claim(prefixes, source)
	if len(kept) == 0 {
		return
	}
	kept = prefix.FilterNested(kept)

	for _, entry := range b.entries {
		if entry.Source.SameGitHub(remote) {
			entry.SetPrefixes(prefix.FilterNested(append(entry.Prefixes(), kept...)))
			b.pruneNested()
			return
		}
	}

	entry := &types.MappingEntry{Language: languageJava, Source: source}
	entry.SetPrefixes(kept)
	b.entries = append(b.entries, entry)
	b.pruneNested()
}

// claim reserves prefixes in the uniqueness dictionary, skipping (with
// a warning) any prefix another entry already owns.
func (b *Builder) claim(prefixes []string, source types.Source) []string {
	var kept []string
	for _, p := range prefixes {
		if existing, ok := b.used[p]; ok {
			b.logger.Warn("prefix already mapped, skipping duplicate",
				"prefix", p, "existing", describeSource(existing))
			continue
		}
		b.used[p] = source
		kept = append(kept, p)
	}
	return kept
}

// pruneNested restores the antichain property across entries: when a
// prefix of one entry nests inside a prefix of another, the
// less-specific one is removed. Entries left without prefixes are
// dropped.
func (b *Builder) pruneNested() {
	var all []string
	for _, entry := range b.entries {
		all = append(all, entry.Prefixes()...)
	}
	keep := make(map[string]bool, len(all))
	for _, p := range prefix.FilterNested(all) {
		keep[p] = true
	}

	pruned := b.entries[:0]
	for _, entry := range b.entries {
		var remaining []string
		for _, p := range entry.Prefixes() {
			if keep[p] {
				remaining = append(remaining, p)
			} else {
				b.logger.Debug("prefix shadowed by a more specific mapping", "prefix", p)
			}
		}
		if len(remaining) == 0 {
			continue
		}
		entry.SetPrefixes(remaining)
		pruned = append(pruned, entry)
	}
	b.entries = pruned
}

// Len reports the number of entries built so far
func (b *Builder) Len() int {
	return len(b.entries)
}

// Document returns the assembled mapping document with entries in
// creation order.
func (b *Builder) Document() *types.MappingDocument {
	return &types.MappingDocument{
		SourceCode: types.SourceCode{Mappings: b.entries},
	}
}

func describeSource(s types.Source) string {
	switch {
	case s.Local != nil:
		return "local:" + s.Local.Path
	case s.GitHub != nil:
		return "github:" + s.GitHub.Owner + "/" + s.GitHub.Repo
	default:
		return "unknown"
	}
}
