package classifier

import (
	"testing"

	"github.com/stackmap/source-mapper/internal/sbom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mainJar(manifest ...sbom.ManifestEntry) sbom.Artifact {
	return sbom.Artifact{
		ID:       "main",
		Type:     "java-archive",
		Language: "java",
		Locations: []sbom.Location{
			{Path: "/app/app.jar", AccessPath: "/app/app.jar"},
		},
		Metadata: &sbom.Metadata{Manifest: &sbom.Manifest{Main: manifest}},
	}
}

func bootLibJar(id, purl string) sbom.Artifact {
	return sbom.Artifact{
		ID:       id,
		Type:     "java-archive",
		Language: "java",
		PURL:     purl,
		Locations: []sbom.Location{
			{Path: "/app/app.jar", AccessPath: "/app/app.jar:BOOT-INF/lib/" + id + ".jar"},
		},
	}
}

func TestMainArchive_PrefersMainClass(t *testing.T) {
	noManifest := sbom.Artifact{
		ID:       "plain",
		Type:     "java-archive",
		Language: "java",
		Locations: []sbom.Location{
			{Path: "/opt/tool.jar", AccessPath: "/opt/tool.jar"},
		},
	}
	withMain := mainJar(sbom.ManifestEntry{Key: "Main-Class", Value: "com.example.App"})

	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{noManifest, withMain}})
	archive, path, ok := New(view).MainArchive()

	require.True(t, ok)
	assert.Equal(t, "main", archive.ID)
	assert.Equal(t, "/app/app.jar", path)
}

func TestMainArchive_FallsBackToFirstCandidate(t *testing.T) {
	first := sbom.Artifact{
		ID:       "first",
		Type:     "java-archive",
		Language: "java",
		Locations: []sbom.Location{
			{Path: "/opt/a.jar", AccessPath: "/opt/a.jar"},
		},
	}
	second := sbom.Artifact{
		ID:       "second",
		Type:     "java-archive",
		Language: "java",
		Locations: []sbom.Location{
			{Path: "/opt/b.jar", AccessPath: "/opt/b.jar"},
		},
	}

	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{first, second}})
	archive, _, ok := New(view).MainArchive()

	require.True(t, ok)
	assert.Equal(t, "first", archive.ID)
}

func TestMainArchive_NoCandidate(t *testing.T) {
	// Boot-lib-only archives and non-jar paths never qualify
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{
		bootLibJar("dep", "pkg:maven/org.example/dep@1.0"),
		{
			Type:     "java-archive",
			Language: "java",
			Locations: []sbom.Location{
				{Path: "/opt/tool.war", AccessPath: "/opt/tool.war"},
			},
		},
	}})

	_, _, ok := New(view).MainArchive()
	assert.False(t, ok)
}

func TestIsApplication_StartClassWins(t *testing.T) {
	// Launcher layout: Main-Class names the shim, Start-Class the app
	app := mainJar(
		sbom.ManifestEntry{Key: "Main-Class", Value: "org.springframework.boot.loader.JarLauncher"},
		sbom.ManifestEntry{Key: "Start-Class", Value: "com.app.Main"},
	)
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{app}})
	c := New(view)

	_, path, ok := c.MainArchive()
	require.True(t, ok)
	assert.True(t, c.IsApplication(view.Archives()[0], path))
}

func TestIsApplication_LauncherMainClassWithoutStartClass(t *testing.T) {
	app := mainJar(
		sbom.ManifestEntry{Key: "Main-Class", Value: "org.springframework.boot.loader.JarLauncher"},
	)
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{app}})
	c := New(view)

	_, path, ok := c.MainArchive()
	require.True(t, ok)
	assert.False(t, c.IsApplication(view.Archives()[0], path))
}

func TestIsApplication_PlainMainClass(t *testing.T) {
	app := mainJar(sbom.ManifestEntry{Key: "Main-Class", Value: "com.acme.Tool"})
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{app}})
	c := New(view)

	_, path, ok := c.MainArchive()
	require.True(t, ok)
	assert.True(t, c.IsApplication(view.Archives()[0], path))
}

func TestIsApplication_BootLibIsLibrary(t *testing.T) {
	app := mainJar(sbom.ManifestEntry{Key: "Start-Class", Value: "com.app.Main"})
	dep := bootLibJar("spring-web", "pkg:maven/org.springframework/spring-web@6.1.0")

	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{app, dep}})
	c := New(view)

	_, path, ok := c.MainArchive()
	require.True(t, ok)

	archives := view.Archives()
	assert.True(t, c.IsApplication(archives[0], path))
	assert.False(t, c.IsApplication(archives[1], path))
}

func TestIsApplication_NoManifestFallsBackToCoordinates(t *testing.T) {
	withCoords := sbom.Artifact{
		ID:       "lib",
		Type:     "java-archive",
		Language: "java",
		PURL:     "pkg:maven/org.example/lib@1.0",
		Locations: []sbom.Location{
			{Path: "/app/app.jar", AccessPath: "/app/app.jar"},
		},
	}
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{withCoords}})
	c := New(view)

	_, path, ok := c.MainArchive()
	require.True(t, ok)
	assert.False(t, c.IsApplication(view.Archives()[0], path))

	withCoords.PURL = ""
	view = sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{withCoords}})
	c = New(view)
	_, path, _ = c.MainArchive()
	assert.True(t, c.IsApplication(view.Archives()[0], path))
}

func TestIsApplication_NoMainArchive(t *testing.T) {
	dep := bootLibJar("dep", "")
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{dep}})
	c := New(view)

	assert.False(t, c.IsApplication(view.Archives()[0], ""))
}

func TestWithLauncherPackages(t *testing.T) {
	app := mainJar(sbom.ManifestEntry{Key: "Main-Class", Value: "com.custom.launcher.Boot"})
	view := sbom.NewView(&sbom.Document{Artifacts: []sbom.Artifact{app}})
	c := New(view, WithLauncherPackages([]string{"com.custom.launcher"}))

	_, path, ok := c.MainArchive()
	require.True(t, ok)
	assert.False(t, c.IsApplication(view.Archives()[0], path))
}
