package disc

import (
	"context"
	"os/exec"
	"strings"

	"platter/internal/services"
)

// Ejector releases a disc from a drive.
type Ejector interface {
	Eject(ctx context.Context, device string) error
}

type commandEjector struct{}

// NewEjector returns an Ejector that shells out to the eject utility. An
// empty device string ejects the system default drive.
func NewEjector() Ejector {
	return commandEjector{}
}

func (commandEjector) Eject(ctx context.Context, device string) error {
	args := make([]string, 0, 1)
	if device != "" {
		args = append(args, device)
	}
	output, err := exec.CommandContext(ctx, "eject", args...).CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "no output"
		}
		return services.Wrap(services.ErrExternalTool, "ripping", "eject", detail, err)
	}
	return nil
}
