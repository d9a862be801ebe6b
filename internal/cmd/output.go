package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/stackmap/source-mapper/internal/types"
	"gopkg.in/yaml.v3"
)

// writeDocument emits the mapping document as YAML to the output file,
// or to stdout when the path is empty or "-". Diagnostics stay on the
// error channel.
func writeDocument(doc *types.MappingDocument, outputFile string) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal YAML: %v\n", err)
		os.Exit(1)
	}
	if err := encoder.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to finalize YAML: %v\n", err)
		os.Exit(1)
	}

	if outputFile == "" || outputFile == "-" {
		fmt.Print(buf.String())
		return
	}

	if err := os.WriteFile(outputFile, buf.Bytes(), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output file: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Results written to %s\n", outputFile)
}
