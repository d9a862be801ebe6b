// Package resolver drives the SBOM-to-mapping pipeline: classify
// archives, extract prefixes, locate upstream repositories and
// assemble the mapping document.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stackmap/source-mapper/internal/classifier"
	"github.com/stackmap/source-mapper/internal/github"
	"github.com/stackmap/source-mapper/internal/mapping"
	"github.com/stackmap/source-mapper/internal/prefix"
	"github.com/stackmap/source-mapper/internal/progress"
	"github.com/stackmap/source-mapper/internal/sbom"
	"github.com/stackmap/source-mapper/internal/types"
)

// Resolver turns an SBOM view into a mapping document
type Resolver struct {
	view      *sbom.View
	locator   *github.Locator
	refs      *github.RefPathResolver
	logger    *slog.Logger
	reporter  progress.Reporter
	localPath string
	excludes  []string
	launchers []string
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLocalPath overrides the workspace path of the application entry
func WithLocalPath(path string) Option {
	return func(r *Resolver) {
		if path != "" {
			r.localPath = path
		}
	}
}

// WithExcludes skips archives whose location path matches any of the
// given glob patterns.
func WithExcludes(patterns []string) Option {
	return func(r *Resolver) {
		r.excludes = patterns
	}
}

// WithReporter enables progress reporting
func WithReporter(reporter progress.Reporter) Option {
	return func(r *Resolver) {
		r.reporter = reporter
	}
}

// WithLauncherPackages overrides the launcher-loader package list
func WithLauncherPackages(packages []string) Option {
	return func(r *Resolver) {
		r.launchers = packages
	}
}

// New creates a Resolver
func New(view *sbom.View, locator *github.Locator, refs *github.RefPathResolver, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		view:      view,
		locator:   locator,
		refs:      refs,
		logger:    logger,
		reporter:  progress.NopReporter{},
		localPath: github.DefaultSourcePath,
		launchers: classifier.DefaultLauncherPackages,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes archives in SBOM order and returns the assembled
// document. On cancellation the partial document is withheld and the
// context error returned: partial output is unsafe to emit.
func (r *Resolver) Run(ctx context.Context) (*types.MappingDocument, error) {
	start := time.Now()
	cls := classifier.New(r.view, classifier.WithLauncherPackages(r.launchers))
	extractor := prefix.NewExtractor(r.view, prefix.WithLauncherPackages(r.launchers))
	builder := mapping.NewBuilder(r.logger)

	archives := r.view.Archives()
	r.reporter.Report(progress.Event{Type: progress.EventResolveStart, Count: len(archives)})

	_, mainPath, hasMain := cls.MainArchive()
	if !hasMain {
		r.logger.Debug("no main application archive found, treating all archives as libraries")
	}

	// First pass: classification. Application prefixes are gathered
	// across all application archives so the local entry comes first.
	var appPrefixes []string
	var libraries []*sbom.Artifact
	for _, a := range archives {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if reason, excluded := r.excluded(a); excluded {
			r.report(progress.Event{Type: progress.EventArchiveSkipped, Archive: archiveName(a), Reason: reason})
			continue
		}

		if hasMain && cls.IsApplication(a, mainPath) {
			r.report(progress.Event{Type: progress.EventArchiveClassified, Archive: archiveName(a), Kind: "application"})
			appPrefixes = append(appPrefixes, extractor.ApplicationPrefixes(a)...)
		} else {
			r.report(progress.Event{Type: progress.EventArchiveClassified, Archive: archiveName(a), Kind: "library"})
			libraries = append(libraries, a)
		}
	}

	builder.AddApplication(dedupe(appPrefixes), r.localPath)

	for _, a := range libraries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.resolveLibrary(ctx, a, extractor, builder)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.reporter.Report(progress.Event{
		Type:     progress.EventResolveComplete,
		Count:    builder.Len(),
		Duration: time.Since(start),
	})
	return builder.Document(), nil
}

// resolveLibrary produces at most one dependency contribution for a
// library archive. Archives without Maven coordinates, prefixes or a
// locatable repository contribute nothing; none of these are errors.
func (r *Resolver) resolveLibrary(ctx context.Context, a *sbom.Artifact, extractor *prefix.Extractor, builder *mapping.Builder) {
	name := archiveName(a)

	coord, err := r.view.Coordinate(a)
	if err != nil {
		r.report(progress.Event{Type: progress.EventArchiveSkipped, Archive: name, Reason: "no Maven coordinate"})
		return
	}

	prefixes := extractor.LibraryPrefixes(a)
	if len(prefixes) == 0 {
		r.report(progress.Event{Type: progress.EventArchiveSkipped, Archive: name, Reason: "no package prefixes"})
		return
	}

	repo, ok := r.locator.Locate(ctx, coord, r.view.PomProject(a))
	if !ok {
		r.logger.Debug("no repository found", "artifact", coord.String())
		r.report(progress.Event{Type: progress.EventArchiveSkipped, Archive: name, Reason: "no repository"})
		return
	}

	ref := r.refs.ResolveRef(ctx, repo, coord)
	path, overridden := r.locator.OverridePath(coord)
	if !overridden {
		path = r.refs.ResolvePath(ctx, repo, ref, coord)
	}

	r.report(progress.Event{
		Type:    progress.EventRepositoryResolved,
		Archive: name,
		Repo:    repo.Owner + "/" + repo.Repo,
		Ref:     ref,
		Path:    path,
	})
	builder.AddDependency(prefixes, types.GitHubSource{
		Owner: repo.Owner,
		Repo:  repo.Repo,
		Ref:   ref,
		Path:  path,
	})
}

// excluded matches the archive's location paths against the exclude
// patterns.
func (r *Resolver) excluded(a *sbom.Artifact) (string, bool) {
	for _, pattern := range r.excludes {
		for _, loc := range a.Locations {
			if ok, err := doublestar.Match(pattern, loc.Path); err == nil && ok {
				return "matched exclude pattern " + pattern, true
			}
		}
	}
	return "", false
}

func (r *Resolver) report(event progress.Event) {
	r.reporter.Report(event)
}

func archiveName(a *sbom.Artifact) string {
	if a.Name != "" {
		return a.Name
	}
	if len(a.Locations) > 0 {
		return a.Locations[0].Path
	}
	return a.ID
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var result []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}
