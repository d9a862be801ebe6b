package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/stackmap/source-mapper/internal/sbom"
	"github.com/stackmap/source-mapper/internal/types"
)

// RepoRef names a repository
type RepoRef struct {
	Owner string
	Repo  string
}

// Override is an explicit mapping for a groupId, loaded from the
// optional mappings file. PathMappings resolves per-artifact source
// paths; DefaultPath applies otherwise.
type Override struct {
	Owner        string            `json:"owner"`
	Repo         string            `json:"repo"`
	DefaultPath  string            `json:"default_path"`
	PathMappings map[string]string `json:"path_mappings"`
}

// Locator selects the canonical upstream repository for a Maven
// coordinate: POM URL first, then scored API search (recursing into
// the parent POM), then the explicit mappings file.
type Locator struct {
	index     Index
	logger    *slog.Logger
	overrides map[string]Override
}

// NewLocator creates a Locator without explicit overrides
func NewLocator(index Index, logger *slog.Logger) *Locator {
	return &Locator{index: index, logger: logger, overrides: map[string]Override{}}
}

// LoadOverrides reads the optional mappings JSON file. A missing file
// is not an error; a present but unreadable one is.
func (l *Locator) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read mappings file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &l.overrides); err != nil {
		return fmt.Errorf("failed to parse mappings file %s: %w", path, err)
	}
	return nil
}

// githubURLPatterns match the repository URL shapes found in POM
// project metadata.
var githubURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`github\.com[:/]([^/]+)/([^/]+?)(?:\.git)?/?$`),
	regexp.MustCompile(`git@github\.com:([^/]+)/([^/]+?)(?:\.git)?$`),
}

// ParseRepoURL extracts owner/repo from a GitHub URL
func ParseRepoURL(rawURL string) (RepoRef, bool) {
	if rawURL == "" {
		return RepoRef{}, false
	}
	for _, pattern := range githubURLPatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return RepoRef{Owner: m[1], Repo: strings.TrimSuffix(m[2], "/")}, true
		}
	}
	return RepoRef{}, false
}

// Locate resolves the upstream repository for a coordinate. The pom
// block comes from the archive being resolved; the parent coordinate
// (if declared) is retried with the same strategies when the archive
// itself cannot be located. Returns false for "unknown" — never an
// error.
func (l *Locator) Locate(ctx context.Context, coord types.MavenCoordinate, pom sbom.PomProject) (RepoRef, bool) {
	if ref, ok := ParseRepoURL(pom.URL); ok {
		return ref, true
	}

	if ref, ok := l.searchRepo(ctx, coord); ok {
		return ref, true
	}

	// Multi-module projects often carry the repository on the parent
	// POM; the child reuses its owner/repo.
	if pom.Parent != nil && pom.Parent.ArtifactID != "" {
		parent := types.MavenCoordinate{
			GroupID:    pom.Parent.GroupID,
			ArtifactID: pom.Parent.ArtifactID,
			Version:    pom.Parent.Version,
		}
		if ref, ok := l.searchRepo(ctx, parent); ok {
			return ref, true
		}
	}

	if override, ok := l.override(coord.GroupID); ok {
		return RepoRef{Owner: override.Owner, Repo: override.Repo}, true
	}

	return RepoRef{}, false
}

// override finds an explicit mapping by exact groupId, falling back to
// the longest matching prefix.
func (l *Locator) override(groupID string) (Override, bool) {
	if o, ok := l.overrides[groupID]; ok {
		return o, true
	}

	keys := make([]string, 0, len(l.overrides))
	for k := range l.overrides {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if strings.HasPrefix(groupID, k) {
			return l.overrides[k], true
		}
	}
	return Override{}, false
}

// OverridePath returns the explicit source path for a coordinate, if
// the mappings file declares one.
func (l *Locator) OverridePath(coord types.MavenCoordinate) (string, bool) {
	override, ok := l.override(coord.GroupID)
	if !ok {
		return "", false
	}
	if p, ok := override.PathMappings[coord.ArtifactID]; ok {
		return p, true
	}
	if override.DefaultPath != "" {
		return override.DefaultPath, true
	}
	return "", false
}

// searchQueries are issued in order until one produces results. The
// pom.xml/language filters find official repos; the bare name query is
// the last resort.
func searchQueries(artifactID string) []string {
	return []string{
		artifactID + " in:name language:java filename:pom.xml fork:false",
		artifactID + " in:name fork:false",
		artifactID + " in:name",
	}
}

// searchRepo finds the repository via the search API and the scoring
// heuristics.
func (l *Locator) searchRepo(ctx context.Context, coord types.MavenCoordinate) (RepoRef, bool) {
	if coord.ArtifactID == "" {
		return RepoRef{}, false
	}
	ownerHint := ownerHintFromGroupID(coord.GroupID)

	var candidates []RepoMetadata
	for _, query := range searchQueries(coord.ArtifactID) {
		repos, err := l.index.SearchRepos(ctx, query)
		if err != nil || len(repos) == 0 {
			continue
		}
		candidates = repos
		break
	}
	if len(candidates) == 0 {
		return RepoRef{}, false
	}

	best, bestScore, ok := pickBest(candidates, coord.ArtifactID, ownerHint)
	if !ok {
		return RepoRef{}, false
	}

	if umbrella, uok := l.umbrellaCandidate(ctx, coord.ArtifactID, ownerHint, best, bestScore); uok {
		return RepoRef{Owner: umbrella.Owner, Repo: umbrella.Name}, true
	}
	return RepoRef{Owner: best.Owner, Repo: best.Name}, true
}

// pickBest scores candidates and keeps the highest; the stable order
// of the API response breaks equal scores.
func pickBest(candidates []RepoMetadata, query, ownerHint string) (RepoMetadata, int, bool) {
	var best RepoMetadata
	bestScore := 0
	found := false
	for _, r := range candidates {
		score, ok := scoreRepository(r, query, ownerHint)
		if !ok {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = r, score, true
		}
	}
	return best, bestScore, found
}

// umbrellaCandidate handles artifacts that are modules of a larger
// project (spring-aop lives in spring-framework). When the primary
// best is user-owned or modestly starred and the artifactId is
// hyphenated, popular organization-owned repositories found under the
// base name may substitute it.
func (l *Locator) umbrellaCandidate(ctx context.Context, artifactID, ownerHint string, best RepoMetadata, bestScore int) (RepoMetadata, bool) {
	if best.OwnerType != "User" && best.Stars >= 1000 {
		return RepoMetadata{}, false
	}
	base, _, hyphenated := strings.Cut(artifactID, "-")
	if !hyphenated {
		return RepoMetadata{}, false
	}

	for _, umbrellaName := range []string{base + "-framework", base} {
		if umbrellaName == artifactID {
			continue
		}
		repos, err := l.index.SearchRepos(ctx, umbrellaName+" in:name fork:false")
		if err != nil {
			continue
		}
		for _, r := range repos {
			if r.OwnerType != "Organization" || r.Stars < 1000 {
				continue
			}
			score, ok := scoreRepository(r, artifactID, ownerHint)
			if !ok {
				continue
			}
			score += 500
			if score > bestScore {
				l.logger.Debug("umbrella repository substituted",
					"artifact", artifactID, "repo", r.Owner+"/"+r.Name)
				return r, true
			}
		}
	}
	return RepoMetadata{}, false
}

// ownerHintFromGroupID extracts an owner hint from groupIds that
// explicitly encode one (io.github.<owner>, com.github.<owner>). No
// other groupId pattern may bias selection.
func ownerHintFromGroupID(groupID string) string {
	if strings.HasPrefix(groupID, "io.github.") || strings.HasPrefix(groupID, "com.github.") {
		parts := strings.Split(groupID, ".")
		if len(parts) >= 3 {
			return parts[2]
		}
	}
	return ""
}

// scoreRepository ranks a search candidate; higher is more likely the
// canonical upstream. The second return is false for repositories
// rejected outright (archived, disabled, low-star personal forks).
func scoreRepository(r RepoMetadata, query, ownerHint string) (int, bool) {
	if r.Archived || r.Disabled {
		return 0, false
	}
	if r.Fork && r.OwnerType == "User" && r.Stars < 100 {
		return 0, false
	}

	score := 0

	switch {
	case strings.EqualFold(r.Name, query):
		score += 1000
	case strings.Contains(strings.ToLower(r.Name), strings.ToLower(query)):
		score += 100
	}

	if r.Fork {
		score -= 1000
	} else {
		score += 500
	}

	switch r.OwnerType {
	case "Organization":
		score += 300
	case "User":
		if r.Stars < 100 {
			score -= 500
		}
		if ownerHint != "" && !strings.EqualFold(ownerHint, r.Owner) {
			score -= 200
		}
	}

	switch {
	case r.Stars >= 1000:
		score += 200
	case r.Stars >= 100:
		score += min(r.Stars, 1000) / 10
	default:
		score += r.Stars / 20
	}

	if ownerHint != "" && strings.EqualFold(ownerHint, r.Owner) {
		score += 200
	}
	if r.Description != "" {
		score += 50
	}

	return score, true
}
