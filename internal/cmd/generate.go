package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/spf13/cobra"
	"github.com/stackmap/source-mapper/internal/buildtool"
	"github.com/stackmap/source-mapper/internal/config"
	"github.com/stackmap/source-mapper/internal/github"
	"github.com/stackmap/source-mapper/internal/progress"
	"github.com/stackmap/source-mapper/internal/resolver"
	"github.com/stackmap/source-mapper/internal/sbom"
)

var (
	settings  *config.Settings
	stdlibRef string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a source mapping file from a container image SBOM",
	Long: `Generate builds the container image, extracts its SBOM with syft and
produces a source mapping file for the Java application inside.

Examples:
  source-mapper generate --dockerfile Dockerfile --image-name my-app
  source-mapper generate --image-name my-app --skip-build
  source-mapper generate --skip-sbom --sbom-json sbom.json -o source-map.yaml
  source-mapper generate --image-name my-app --exclude "**/test-*.jar"`,
	Args: cobra.NoArgs,
	Run:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	// Initialize settings with defaults and environment variables
	settings = config.LoadSettings()

	generateCmd.Flags().StringVar(&settings.Dockerfile, "dockerfile", settings.Dockerfile, "Path to Dockerfile")
	generateCmd.Flags().StringVar(&settings.ImageName, "image-name", settings.ImageName, "Container image name to build and analyze")
	generateCmd.Flags().StringVar(&settings.ContextDir, "context", settings.ContextDir, "Container build context directory (default: Dockerfile directory)")
	generateCmd.Flags().BoolVar(&settings.SkipBuild, "skip-build", settings.SkipBuild, "Skip the image build (use an existing image)")
	generateCmd.Flags().BoolVar(&settings.SkipSBOM, "skip-sbom", settings.SkipSBOM, "Skip SBOM extraction (requires --sbom-json)")
	generateCmd.Flags().StringVar(&settings.SBOMFile, "sbom-json", settings.SBOMFile, "Path to an existing SBOM JSON file")

	generateCmd.Flags().StringVarP(&settings.OutputFile, "output", "o", settings.OutputFile, "Output file path (- for stdout)")
	generateCmd.Flags().StringVar(&settings.LocalPath, "local-path", settings.LocalPath, "Workspace path of the application sources")
	generateCmd.Flags().StringVar(&settings.MappingsFile, "mappings-file", settings.MappingsFile, "Optional JSON file with explicit repository mappings")
	generateCmd.Flags().StringVar(&settings.GitHubToken, "github-token", settings.GitHubToken, "GitHub API token (default: GITHUB_TOKEN environment variable)")
	generateCmd.Flags().StringVar(&stdlibRef, "stdlib-ref", github.DefaultStdlibRef, "Git ref used for JDK standard-library packages")

	generateCmd.Flags().StringSliceVar(&settings.ExcludePatterns, "exclude", settings.ExcludePatterns, "Archive path patterns to exclude (supports glob patterns, can be specified multiple times)")
	generateCmd.Flags().StringSliceVar(&settings.LauncherPackages, "launcher-packages", settings.LauncherPackages, "Package roots treated as launcher shims rather than application code")
	generateCmd.Flags().BoolVarP(&settings.Verbose, "verbose", "v", settings.Verbose, "Show resolution progress")

	generateCmd.Flags().String("log-level", settings.LogLevel.String(), "Log level: trace, debug, info, warn, error, fatal")
	generateCmd.Flags().String("log-format", settings.LogFormat, "Log format: text or json")
	generateCmd.Flags().String("log-file", settings.LogFile, "Log file path (default: stderr)")
}

// configureLogging sets up logging based on command flags
func configureLogging(cmd *cobra.Command) *slog.Logger {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logFormat, _ := cmd.Flags().GetString("log-format")
	logFile, _ := cmd.Flags().GetString("log-file")

	if level, err := config.ParseLogLevel(logLevel); err == nil {
		settings.LogLevel = level
	}
	settings.LogFormat = logFormat
	settings.LogFile = logFile

	return settings.ConfigureLogger()
}

func runGenerate(cmd *cobra.Command, args []string) {
	logger := configureLogging(cmd)

	if err := settings.Validate(); err != nil {
		logger.Error("Invalid settings", "error", err)
		os.Exit(1)
	}

	// A process-level signal halts further API calls; the mapping
	// built so far is withheld because partial output is unsafe.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data := loadSBOM(ctx, logger)

	doc, err := sbom.Load(bytes.NewReader(data))
	if err != nil {
		logger.Error("Failed to load SBOM", "error", err)
		os.Exit(1)
	}
	view := sbom.NewView(doc)

	client := github.NewClient(settings.GitHubToken, logger)
	locator := github.NewLocator(client, logger)
	if settings.MappingsFile != "" {
		if err := locator.LoadOverrides(settings.MappingsFile); err != nil {
			logger.Error("Failed to load mappings file", "error", err)
			os.Exit(1)
		}
	}
	refs := github.NewRefPathResolver(client, logger, github.WithStdlibRef(stdlibRef))

	opts := []resolver.Option{
		resolver.WithLocalPath(settings.LocalPath),
		resolver.WithExcludes(settings.ExcludePatterns),
		resolver.WithLauncherPackages(settings.LauncherPackages),
	}
	if settings.Verbose {
		opts = append(opts, resolver.WithReporter(progress.NewReporter(progress.NewSimpleHandler(os.Stderr))))
	}

	document, err := resolver.New(view, locator, refs, logger, opts...).Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Error("Resolution canceled, no output written")
		} else {
			logger.Error("Resolution failed", "error", err)
		}
		os.Exit(1)
	}

	writeDocument(document, settings.OutputFile)
}

// loadSBOM produces the raw SBOM JSON: from a file with --skip-sbom,
// otherwise by building the image and running the extractor.
func loadSBOM(ctx context.Context, logger *slog.Logger) []byte {
	if settings.SkipSBOM {
		data, err := os.ReadFile(settings.SBOMFile)
		if err != nil {
			logger.Error("Failed to read SBOM file", "path", settings.SBOMFile, "error", err)
			os.Exit(1)
		}
		return data
	}

	if !settings.SkipBuild {
		fmt.Fprintf(os.Stderr, "Building image %s from %s\n", settings.ImageName, settings.Dockerfile)
		if err := buildtool.BuildImage(ctx, settings.Dockerfile, settings.ImageName, settings.ContextDir); err != nil {
			logger.Error("Image build failed", "error", err)
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stderr, "Extracting SBOM from %s\n", settings.ImageName)
	data, err := buildtool.RunSyft(ctx, settings.ImageName)
	if err != nil {
		logger.Error("SBOM extraction failed", "error", err)
		os.Exit(1)
	}
	return data
}
