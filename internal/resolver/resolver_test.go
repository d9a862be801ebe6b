package resolver

import (
	"context"
	"io"
	"testing"

	"log/slog"

	"github.com/stackmap/source-mapper/internal/github"
	"github.com/stackmap/source-mapper/internal/sbom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeIndex serves fixed data; searchBudget < 0 means unlimited
type fakeIndex struct {
	searches     map[string][]github.RepoMetadata
	contents     map[string][]github.DirEntry
	tags         map[string][]string
	searchBudget int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		searches:     map[string][]github.RepoMetadata{},
		contents:     map[string][]github.DirEntry{},
		tags:         map[string][]string{},
		searchBudget: -1,
	}
}

func (f *fakeIndex) SearchRepos(_ context.Context, query string) ([]github.RepoMetadata, error) {
	if f.searchBudget == 0 {
		return nil, github.ErrUnavailable
	}
	if f.searchBudget > 0 {
		f.searchBudget--
	}
	if repos, ok := f.searches[query]; ok {
		return repos, nil
	}
	return nil, nil
}

func (f *fakeIndex) GetContents(_ context.Context, owner, repo, path, ref string) ([]github.DirEntry, error) {
	if entries, ok := f.contents[owner+"/"+repo+"/"+path]; ok {
		return entries, nil
	}
	return nil, github.ErrNotFound
}

func (f *fakeIndex) ListTags(_ context.Context, owner, repo string) ([]string, error) {
	if tags, ok := f.tags[owner+"/"+repo]; ok {
		return tags, nil
	}
	return nil, github.ErrNotFound
}

func newResolver(view *sbom.View, index github.Index, opts ...Option) *Resolver {
	logger := testLogger()
	locator := github.NewLocator(index, logger)
	refs := github.NewRefPathResolver(index, logger)
	return New(view, locator, refs, logger, opts...)
}

func appArchive(startClass string) sbom.Artifact {
	return sbom.Artifact{
		ID:       "app",
		Name:     "app",
		Type:     "java-archive",
		Language: "java",
		Locations: []sbom.Location{
			{Path: "/app.jar", AccessPath: "/app.jar"},
		},
		Metadata: &sbom.Metadata{Manifest: &sbom.Manifest{Main: []sbom.ManifestEntry{
			{Key: "Main-Class", Value: "org.springframework.boot.loader.JarLauncher"},
			{Key: "Start-Class", Value: startClass},
		}}},
	}
}

func depArchive(name, purl string, manifest []sbom.ManifestEntry, pomURL string) sbom.Artifact {
	a := sbom.Artifact{
		ID:       name,
		Name:     name,
		Type:     "java-archive",
		Language: "java",
		PURL:     purl,
		Locations: []sbom.Location{
			{Path: "/app.jar", AccessPath: "/app.jar:BOOT-INF/lib/" + name + ".jar"},
		},
		Metadata: &sbom.Metadata{},
	}
	if manifest != nil {
		a.Metadata.Manifest = &sbom.Manifest{Main: manifest}
	}
	if pomURL != "" {
		a.Metadata.PomProject = &sbom.PomProject{URL: pomURL}
	}
	return a
}

func TestRun_SpringBootFatArchive(t *testing.T) {
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{
		appArchive("com.example.App"),
		depArchive("spring-web", "pkg:maven/org.springframework/spring-web@6.1.0",
			[]sbom.ManifestEntry{{Key: "Export-Package", Value: "org.springframework.web.client;version=\"6.1.0\",org.springframework.web.servlet"}},
			""),
	}})

	index := newFakeIndex()
	index.searches["spring-web in:name language:java filename:pom.xml fork:false"] = []github.RepoMetadata{
		{Name: "spring-web", Owner: "somebody", OwnerType: "User", Stars: 80},
	}
	index.searches["spring-framework in:name fork:false"] = []github.RepoMetadata{
		{Name: "spring-framework", Owner: "spring-projects", OwnerType: "Organization", Stars: 55000, Description: "Spring Framework"},
	}
	index.tags["spring-projects/spring-framework"] = []string{"v6.1.1", "v6.1.0", "v6.0.0"}
	index.contents["spring-projects/spring-framework/"] = []github.DirEntry{
		{Name: "pom.xml", Type: "file"},
		{Name: "spring-web", Type: "dir"},
	}
	index.contents["spring-projects/spring-framework/spring-web"] = []github.DirEntry{
		{Name: "src", Type: "dir"},
	}

	doc, err := newResolver(view, index).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.SourceCode.Mappings, 2)

	app := doc.SourceCode.Mappings[0]
	require.NotNil(t, app.Source.Local)
	assert.Equal(t, "src/main/java", app.Source.Local.Path)
	assert.Equal(t, []string{"com/example"}, app.Prefixes())

	dep := doc.SourceCode.Mappings[1]
	require.NotNil(t, dep.Source.GitHub)
	assert.Equal(t, "spring-projects", dep.Source.GitHub.Owner)
	assert.Equal(t, "spring-framework", dep.Source.GitHub.Repo)
	assert.Equal(t, "v6.1.0", dep.Source.GitHub.Ref)
	assert.Equal(t, "spring-web/src/main/java", dep.Source.GitHub.Path)
	assert.Equal(t, []string{"org/springframework/web"}, dep.Prefixes())
}

func TestRun_AncestorConsolidation(t *testing.T) {
	pomURL := "https://github.com/apache/tomcat"
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{
		appArchive("com.example.App"),
		depArchive("tomcat-embed-core", "pkg:maven/org.apache.tomcat.embed.core/tomcat-embed-core@10.1.16", nil, pomURL),
		depArchive("tomcat-embed-el", "pkg:maven/org.apache.tomcat.embed.el/tomcat-embed-el@10.1.16", nil, pomURL),
		depArchive("tomcat-embed-websocket", "pkg:maven/org.apache.tomcat.embed.websocket/tomcat-embed-websocket@10.1.16", nil, pomURL),
	}})

	index := newFakeIndex()
	index.tags["apache/tomcat"] = []string{"10.1.16"}

	doc, err := newResolver(view, index).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.SourceCode.Mappings, 2)

	// All three archives share the same remote descriptor and coalesce
	// into one entry holding only the most specific prefixes.
	dep := doc.SourceCode.Mappings[1]
	assert.Equal(t, []string{
		"org/apache/tomcat/embed/core",
		"org/apache/tomcat/embed/el",
		"org/apache/tomcat/embed/websocket",
	}, dep.Prefixes())
	assert.Equal(t, "10.1.16", dep.Source.GitHub.Ref)
}

func TestRun_RateLimitExhaustion(t *testing.T) {
	artifacts := []sbom.Artifact{appArchive("com.example.App")}
	artifacts = append(artifacts,
		depArchive("lib-one", "pkg:maven/org.one/lib-one@1.0.0", nil, ""),
		depArchive("lib-two", "pkg:maven/org.two/lib-two@1.0.0", nil, ""),
	)
	view := sbom.NewView(&sbom.Document{Artifacts: artifacts})

	index := newFakeIndex()
	index.searches["lib-one in:name language:java filename:pom.xml fork:false"] = []github.RepoMetadata{
		{Name: "lib-one", Owner: "org-one", OwnerType: "Organization", Stars: 3000, Description: "d"},
	}
	index.searches["lib-two in:name language:java filename:pom.xml fork:false"] = []github.RepoMetadata{
		{Name: "lib-two", Owner: "org-two", OwnerType: "Organization", Stars: 3000, Description: "d"},
	}
	// Budget covers only the first archive's search
	index.searchBudget = 1

	doc, err := newResolver(view, index).Run(context.Background())
	require.NoError(t, err)

	// The first library resolves; the second degrades to no entry and
	// the document stays well-formed.
	require.Len(t, doc.SourceCode.Mappings, 2)
	assert.Equal(t, "org-one", doc.SourceCode.Mappings[1].Source.GitHub.Owner)
}

func TestRun_LauncherLoaderExclusion(t *testing.T) {
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{
		appArchive("com.app.Main"),
	}})

	doc, err := newResolver(view, newFakeIndex()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.SourceCode.Mappings, 1)
	assert.Equal(t, []string{"com/app"}, doc.SourceCode.Mappings[0].Prefixes())
}

func TestRun_SnapshotVersion(t *testing.T) {
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{
		appArchive("com.example.App"),
		depArchive("widget", "pkg:maven/com.acme/widget@2.0.0-SNAPSHOT", nil,
			"https://github.com/acme/widget.git"),
	}})

	doc, err := newResolver(view, newFakeIndex()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.SourceCode.Mappings, 2)

	dep := doc.SourceCode.Mappings[1]
	assert.Equal(t, "main", dep.Source.GitHub.Ref)
	assert.Equal(t, "acme", dep.Source.GitHub.Owner)
	assert.Equal(t, "src/main/java", dep.Source.GitHub.Path)
}

func TestRun_ArchiveWithoutMetadata(t *testing.T) {
	// No manifest and no Maven coordinate: no contribution
	bare := sbom.Artifact{
		ID:       "bare",
		Name:     "bare",
		Type:     "java-archive",
		Language: "java",
		Locations: []sbom.Location{
			{Path: "/app.jar", AccessPath: "/app.jar:BOOT-INF/lib/bare.jar"},
		},
	}
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{
		appArchive("com.example.App"),
		bare,
	}})

	doc, err := newResolver(view, newFakeIndex()).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.SourceCode.Mappings, 1)
}

func TestRun_ExcludePatterns(t *testing.T) {
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{
		appArchive("com.example.App"),
		depArchive("widget", "pkg:maven/com.acme/widget@1.0.0", nil, "https://github.com/acme/widget"),
	}})

	doc, err := newResolver(view, newFakeIndex(), WithExcludes([]string{"/app.jar"})).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc.SourceCode.Mappings)
}

func TestRun_LocalPathOverride(t *testing.T) {
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{
		appArchive("com.example.App"),
	}})

	doc, err := newResolver(view, newFakeIndex(), WithLocalPath("services/api/src/main/java")).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.SourceCode.Mappings, 1)
	assert.Equal(t, "services/api/src/main/java", doc.SourceCode.Mappings[0].Source.Local.Path)
}

func TestRun_Cancellation(t *testing.T) {
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{
		appArchive("com.example.App"),
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := newResolver(view, newFakeIndex()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, doc)
}

func TestRun_NoMainArchive(t *testing.T) {
	// Everything classifies as a library when no main archive exists
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{
		depArchive("widget", "pkg:maven/com.acme/widget@1.0.0", nil, "https://github.com/acme/widget"),
	}})

	doc, err := newResolver(view, newFakeIndex()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.SourceCode.Mappings, 1)
	assert.NotNil(t, doc.SourceCode.Mappings[0].Source.GitHub)
}
