package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the workspace root, library roots, and the control-surface
// bind address.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	MoviesDir    string `toml:"movies_dir"`
	TVDir        string `toml:"tv_dir"`
	APIBind      string `toml:"api_bind"`
}

// Drives lists the optical drives to watch. IDs are MakeMKV drive indices
// kept as opaque strings.
type Drives struct {
	IDs          []string `toml:"ids"`
	PollInterval int      `toml:"poll_interval"`
}

// TMDB contains configuration for The Movie Database API. An empty token
// disables catalog lookups; identification then routes to review.
type TMDB struct {
	APIToken             string  `toml:"api_token"`
	BaseURL              string  `toml:"base_url"`
	Language             string  `toml:"language"`
	AutoApproveThreshold float64 `toml:"auto_approve_threshold"`
}

// Pushover contains push notification credentials. Empty credentials
// disable notifications without failing any pipeline operation.
type Pushover struct {
	UserKey        string `toml:"user_key"`
	APIToken       string `toml:"api_token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Workflow contains worker timing.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
	ProbeTimeout      int `toml:"probe_timeout"`
	ScanTimeout       int `toml:"scan_timeout"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for platter.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Drives   Drives   `toml:"drives"`
	TMDB     TMDB     `toml:"tmdb"`
	Pushover Pushover `toml:"pushover"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/platter/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	if env := strings.TrimSpace(os.Getenv("PLATTER_CONFIG")); env != "" {
		return resolveConfigPath(env)
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("platter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// StagingDir returns the rip staging root under the workspace.
func (c *Config) StagingDir() string {
	return filepath.Join(c.Paths.WorkspaceDir, "staging")
}

// EncodingDir returns the transcode output root under the workspace.
func (c *Config) EncodingDir() string {
	return filepath.Join(c.Paths.WorkspaceDir, "encoding")
}

// LogDir returns the log directory under the workspace.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.WorkspaceDir, "logs")
}

// DataDir returns the durable data directory under the workspace.
func (c *Config) DataDir() string {
	return filepath.Join(c.Paths.WorkspaceDir, "data")
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir(), "platter.db")
}

// JobStagingDir returns the per-job rip staging directory.
func (c *Config) JobStagingDir(jobID int64) string {
	return filepath.Join(c.StagingDir(), fmt.Sprintf("job_%d", jobID))
}

// JobEncodingDir returns the per-job transcode output directory.
func (c *Config) JobEncodingDir(jobID int64) string {
	return filepath.Join(c.EncodingDir(), fmt.Sprintf("job_%d", jobID))
}

// MakemkvBinary returns the MakeMKV executable name.
func (c *Config) MakemkvBinary() string {
	return "makemkvcon"
}

// HandBrakeBinary returns the HandBrake executable name.
func (c *Config) HandBrakeBinary() string {
	return "HandBrakeCLI"
}

// CatalogEnabled reports whether TMDb lookups are configured.
func (c *Config) CatalogEnabled() bool {
	return strings.TrimSpace(c.TMDB.APIToken) != ""
}

// EnsureDirectories creates the workspace subdirectories required for daemon
// operation. Library roots are created best-effort because external volumes
// may be unmounted; the mover retries while they are absent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.StagingDir(), c.EncodingDir(), c.LogDir(), c.DataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range []string{c.Paths.MoviesDir, c.Paths.TVDir} {
		if strings.TrimSpace(dir) != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
