package github

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stackmap/source-mapper/internal/types"
)

// DefaultStdlibRef pins java/sun/javax packages to an OpenJDK tag
const DefaultStdlibRef = "jdk-17+0"

// DefaultSourcePath is the conventional Maven source root
const DefaultSourcePath = "src/main/java"

// stdlibGroupIDs are coordinates served from the JDK sources rather
// than a release tag of their own.
var stdlibGroupIDs = map[string]bool{
	"java":  true,
	"sun":   true,
	"javax": true,
}

// RefPathResolver matches a Maven version to an actual tag and probes
// the repository layout for the Java source root.
type RefPathResolver struct {
	index     Index
	logger    *slog.Logger
	stdlibRef string
}

// RefPathOption configures a RefPathResolver
type RefPathOption func(*RefPathResolver)

// WithStdlibRef overrides the ref used for JDK standard-library groups
func WithStdlibRef(ref string) RefPathOption {
	return func(r *RefPathResolver) {
		r.stdlibRef = ref
	}
}

// NewRefPathResolver creates a RefPathResolver
func NewRefPathResolver(index Index, logger *slog.Logger, opts ...RefPathOption) *RefPathResolver {
	r := &RefPathResolver{index: index, logger: logger, stdlibRef: DefaultStdlibRef}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveRef maps a Maven version to a git ref. Snapshots track main,
// JDK groups use the pinned standard-library ref, and everything else
// is probed against the repository's tag list. Without a usable tag
// list the literal version is returned unchanged.
func (r *RefPathResolver) ResolveRef(ctx context.Context, repo RepoRef, coord types.MavenCoordinate) string {
	if strings.HasSuffix(coord.Version, "-SNAPSHOT") {
		return "main"
	}
	if stdlibGroupIDs[coord.GroupID] {
		return r.stdlibRef
	}

	tags, err := r.index.ListTags(ctx, repo.Owner, repo.Repo)
	if err != nil || len(tags) == 0 {
		return coord.Version
	}

	// Unprefixed tags first: the dominant convention (Tomcat et al.);
	// the v-prefixed minority comes second.
	patterns := []string{
		coord.Version,
		"v" + coord.Version,
		"release-" + coord.Version,
		coord.Version + "-release",
	}

	tagSet := make(map[string]bool, len(tags))
	lowerTags := make(map[string]string, len(tags))
	for _, tag := range tags {
		tagSet[tag] = true
		if _, ok := lowerTags[strings.ToLower(tag)]; !ok {
			lowerTags[strings.ToLower(tag)] = tag
		}
	}

	for _, pattern := range patterns {
		if tagSet[pattern] {
			return pattern
		}
	}
	for _, pattern := range patterns {
		if tag, ok := lowerTags[strings.ToLower(pattern)]; ok {
			return tag
		}
	}
	return coord.Version
}

// ResolvePath probes the repository layout for the directory holding
// the artifact's Java sources. Multi-module layouts resolve to the
// module directory matching the artifactId; failures fall back to the
// conventional default.
func (r *RefPathResolver) ResolvePath(ctx context.Context, repo RepoRef, ref string, coord types.MavenCoordinate) string {
	root, err := r.index.GetContents(ctx, repo.Owner, repo.Repo, "", ref)
	if err == nil && hasFile(root, "pom.xml") {
		var moduleDirs []string
		for _, entry := range root {
			if entry.IsDir() && !strings.HasPrefix(entry.Name, ".") {
				moduleDirs = append(moduleDirs, entry.Name)
			}
		}

		for _, dir := range moduleDirs {
			if dir == coord.ArtifactID && r.hasSrcChild(ctx, repo, dir, ref) {
				return dir + "/" + DefaultSourcePath
			}
		}
		for _, dir := range moduleDirs {
			if dir == coord.ArtifactID {
				continue
			}
			if strings.Contains(dir, coord.ArtifactID) || strings.Contains(coord.ArtifactID, dir) {
				if r.hasSrcChild(ctx, repo, dir, ref) {
					return dir + "/" + DefaultSourcePath
				}
			}
		}
		if hasDir(root, "src") {
			return DefaultSourcePath
		}
	}

	fallbacks := []string{
		DefaultSourcePath,
		"java",
		coord.ArtifactID + "/" + DefaultSourcePath,
		"src/" + coord.ArtifactID + "/main/java",
	}
	for _, path := range fallbacks {
		if _, err := r.index.GetContents(ctx, repo.Owner, repo.Repo, path, ref); err == nil {
			return path
		}
	}

	r.logger.Debug("source path probe failed, using default",
		"repo", repo.Owner+"/"+repo.Repo, "artifact", coord.ArtifactID)
	return DefaultSourcePath
}

// hasSrcChild reports whether the module directory contains a src dir
func (r *RefPathResolver) hasSrcChild(ctx context.Context, repo RepoRef, dir, ref string) bool {
	entries, err := r.index.GetContents(ctx, repo.Owner, repo.Repo, dir, ref)
	return err == nil && hasDir(entries, "src")
}

func hasFile(entries []DirEntry, name string) bool {
	for _, e := range entries {
		if !e.IsDir() && e.Name == name {
			return true
		}
	}
	return false
}

func hasDir(entries []DirEntry, name string) bool {
	for _, e := range entries {
		if e.IsDir() && e.Name == name {
			return true
		}
	}
	return false
}
