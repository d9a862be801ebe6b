// Package buildtool shells out to the external collaborators: the
// container build tool and the SBOM extractor.
package buildtool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// BuildImage builds a container image from a Dockerfile. The build
// context defaults to the Dockerfile's directory. Tool output goes to
// the error channel.
func BuildImage(ctx context.Context, dockerfile, imageName, contextDir string) error {
	if contextDir == "" {
		abs, err := filepath.Abs(dockerfile)
		if err != nil {
			return fmt.Errorf("invalid dockerfile path %s: %w", dockerfile, err)
		}
		contextDir = filepath.Dir(abs)
	}

	cmd := exec.CommandContext(ctx, "docker", "build", "-f", dockerfile, "-t", imageName, contextDir)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker build failed for %s: %w", imageName, err)
	}
	return nil
}
