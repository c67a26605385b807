package config

const (
	defaultWorkspaceDir         = "~/DVDWorkspace"
	defaultAPIBind              = "127.0.0.1:8080"
	defaultDrivePollInterval    = 15
	defaultTMDBBaseURL          = "https://api.themoviedb.org/3"
	defaultTMDBLanguage         = "en-US"
	defaultAutoApproveThreshold = 0.85
	defaultPushoverTimeout      = 10
	defaultQueuePollInterval    = 5
	defaultProbeTimeout         = 30
	defaultScanTimeout          = 300
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			APIBind:      defaultAPIBind,
		},
		Drives: Drives{
			IDs:          []string{"0"},
			PollInterval: defaultDrivePollInterval,
		},
		TMDB: TMDB{
			BaseURL:              defaultTMDBBaseURL,
			Language:             defaultTMDBLanguage,
			AutoApproveThreshold: defaultAutoApproveThreshold,
		},
		Pushover: Pushover{
			RequestTimeout: defaultPushoverTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			ProbeTimeout:      defaultProbeTimeout,
			ScanTimeout:       defaultScanTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
