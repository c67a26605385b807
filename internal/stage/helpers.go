package stage

import (
	"fmt"
	"os"

	"platter/internal/services"
)

// RequireArtifact verifies that a stage input artifact exists and is a
// non-empty regular file. Failures come back as services.ErrValidation so
// the supervisor fails the job instead of retrying it.
func RequireArtifact(path, stageName, operation string) error {
	if path == "" {
		return services.Wrap(services.ErrValidation, stageName, operation,
			"required artifact path is empty; rerun the previous stage", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageName, operation,
			fmt.Sprintf("artifact %s is not readable", path), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, stageName, operation,
			fmt.Sprintf("artifact %s is a directory", path), nil)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrValidation, stageName, operation,
			fmt.Sprintf("artifact %s is empty", path), nil)
	}
	return nil
}
