package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"platter/internal/config"
)

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable. Library roots on unmounted volumes fail here with a
// clear path instead of surfacing later as a parked mover job.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinary verifies that a required external command resolves on PATH.
func CheckBinary(name, command, purpose string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found (%s)", command, purpose)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckEject reports whether the eject utility is available. Its absence
// never fails preflight; rips complete and the tray stays loaded.
func CheckEject() Result {
	const name = "eject"
	resolved, err := exec.LookPath("eject")
	if err != nil {
		return Result{Name: name, Passed: true, Detail: "not found; trays stay loaded after rips"}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckCatalog reports whether TMDb lookups are configured. Without a token
// the identifier routes every disc to review instead of failing, so this is
// informational for the operator rather than fatal.
func CheckCatalog(cfg *config.Config) Result {
	const name = "TMDb catalog"
	if cfg == nil || !cfg.CatalogEnabled() {
		return Result{Name: name, Detail: "no api token; every disc will route to review"}
	}
	return Result{Name: name, Passed: true, Detail: "token configured"}
}

// CheckNotifier reports whether Pushover notifications are configured.
func CheckNotifier(cfg *config.Config) Result {
	const name = "Pushover"
	if cfg == nil {
		return Result{Name: name, Passed: true, Detail: "not configured"}
	}
	user := strings.TrimSpace(cfg.Pushover.UserKey)
	token := strings.TrimSpace(cfg.Pushover.APIToken)
	switch {
	case user == "" && token == "":
		return Result{Name: name, Passed: true, Detail: "not configured"}
	case user == "" || token == "":
		return Result{Name: name, Detail: "partially configured; needs both user_key and api_token"}
	default:
		return Result{Name: name, Passed: true, Detail: "configured"}
	}
}
