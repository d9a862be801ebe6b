package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stackmap/source-mapper/internal/spec"
)

var rootCmd = &cobra.Command{
	Use:   "source-mapper",
	Short: "Map Java runtime symbols to their source code",
	Long: `Source Mapper inspects the SBOM of a container image holding a Java
application and generates a configuration file mapping package prefixes
to source code: application packages to the local workspace, dependency
packages to version-pinned source trees on GitHub.`,
	Version: spec.Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
