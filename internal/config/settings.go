package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"log/slog"
)

// GitHubTokenEnv supplies the API credential when the flag is absent
const GitHubTokenEnv = "GITHUB_TOKEN"

// Settings holds all generator configuration
type Settings struct {
	// Output settings
	OutputFile string
	LocalPath  string

	// Build inputs
	Dockerfile string
	ImageName  string
	ContextDir string
	SkipBuild  bool
	SkipSBOM   bool
	SBOMFile   string

	// Resolution behavior
	ExcludePatterns  []string
	MappingsFile     string
	GitHubToken      string
	LauncherPackages []string
	Verbose          bool

	// Logging
	LogLevel  slog.Level
	LogFormat string // "text" or "json"
	LogFile   string // Optional: write logs to file instead of stderr
}

// DefaultSettings returns default configuration
func DefaultSettings() *Settings {
	return &Settings{
		OutputFile:       "source-map.yaml",
		LocalPath:        "src/main/java",
		ExcludePatterns:  []string{},
		LauncherPackages: []string{"org.springframework.boot.loader"},
		Verbose:          false,
		LogLevel:         slog.LevelError,
		LogFormat:        "text",
		LogFile:          "",
	}
}

// LoadSettings loads settings from environment variables on top of the
// defaults. CLI flags are applied later and take precedence.
func LoadSettings() *Settings {
	settings := DefaultSettings()

	if outputFile := os.Getenv("SOURCE_MAPPER_OUTPUT"); outputFile != "" {
		settings.OutputFile = outputFile
	}

	if localPath := os.Getenv("SOURCE_MAPPER_LOCAL_PATH"); localPath != "" {
		settings.LocalPath = localPath
	}

	if verbose := os.Getenv("SOURCE_MAPPER_VERBOSE"); verbose != "" {
		settings.Verbose = strings.ToLower(verbose) == "true"
	}

	if excludes := os.Getenv("SOURCE_MAPPER_EXCLUDE"); excludes != "" {
		settings.ExcludePatterns = strings.Split(excludes, ",")
		for i, exclude := range settings.ExcludePatterns {
			settings.ExcludePatterns[i] = strings.TrimSpace(exclude)
		}
	}

	if launchers := os.Getenv("SOURCE_MAPPER_LAUNCHER_PACKAGES"); launchers != "" {
		settings.LauncherPackages = strings.Split(launchers, ",")
		for i, pkg := range settings.LauncherPackages {
			settings.LauncherPackages[i] = strings.TrimSpace(pkg)
		}
	}

	if token := os.Getenv(GitHubTokenEnv); token != "" {
		settings.GitHubToken = token
	}

	if logLevel := os.Getenv("SOURCE_MAPPER_LOG_LEVEL"); logLevel != "" {
		if level, err := ParseLogLevel(logLevel); err == nil {
			settings.LogLevel = level
		}
	}

	if logFormat := os.Getenv("SOURCE_MAPPER_LOG_FORMAT"); logFormat != "" {
		settings.LogFormat = logFormat
	}

	if logFile := os.Getenv("SOURCE_MAPPER_LOG_FILE"); logFile != "" {
		settings.LogFile = logFile
	}

	return settings
}

// ParseLogLevel converts string log level to slog.Level
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case "TRACE":
		return slog.LevelDebug - 4, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "FATAL":
		return slog.LevelError + 4, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// ConfigureLogger sets up the logger based on settings. Logs always go
// to stderr or the log file, never to stdout.
func (s *Settings) ConfigureLogger() *slog.Logger {
	var handler slog.Handler

	var output io.Writer = os.Stderr
	if s.LogFile != "" {
		file, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Cannot open log file %s: %v\n", s.LogFile, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	opts := &slog.HandlerOptions{
		Level: s.LogLevel,
	}

	switch strings.ToLower(s.LogFormat) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

// Validate checks if the settings are valid
func (s *Settings) Validate() error {
	if s.SkipSBOM && s.SBOMFile == "" {
		return fmt.Errorf("--sbom-json is required when using --skip-sbom")
	}
	if !s.SkipSBOM && s.ImageName == "" {
		return fmt.Errorf("--image-name is required unless --skip-sbom is used")
	}
	if !s.SkipSBOM && !s.SkipBuild && s.Dockerfile == "" {
		return fmt.Errorf("--dockerfile is required unless --skip-build is used")
	}

	switch strings.ToLower(s.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format '%s'. Valid formats: text, json", s.LogFormat)
	}

	return nil
}
