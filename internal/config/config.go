// Package config defines the batch-loop configuration model and default
// values.
//
// Configuration is assembled from multiple sources with a strict precedence
// chain: built-in defaults < global config file < project config file <
// explicit config file < environment variables < CLI flag overrides.
package config

// WhitelistedVars lists every configuration variable name that may appear
// in config files or as a BATCH_LOOP_-prefixed environment variable.
// Variables not in this list are silently ignored during loading.
var WhitelistedVars = [17]string{
	"AGENT_CLI",
	"AGENT_MODEL",
	"MAX_ITERATIONS",
	"MAX_RETRIES_PER_FEATURE",
	"GLOBAL_RETRY_LIMIT",
	"BREAKER_THRESHOLD",
	"TOKEN_LIMIT",
	"BASE_DELAY_MS",
	"MAX_DELAY_MS",
	"STATE_DIR",
	"NO_SORT",
	"VERIFY_STAGES",
	"CLOSE_ISSUES",
	"VERBOSE",
	"NOTIFY_WEBHOOK",
	"NOTIFY_CHANNEL",
	"NOTIFY_CHAT_ID",
}

// EnvPrefix is prepended to whitelisted variable names when reading the
// environment, e.g. BATCH_LOOP_BREAKER_THRESHOLD.
const EnvPrefix = "BATCH_LOOP_"

// Config holds every configuration field for the batch-loop CLI.
type Config struct {
	// Agent dispatch.
	AgentCLI   string
	AgentModel string

	// Retry limits.
	MaxIterations        int
	MaxRetriesPerFeature int
	GlobalRetryLimit     int
	BreakerThreshold     int
	TokenLimit           int64

	// Backoff delays, in milliseconds.
	BaseDelayMs int
	MaxDelayMs  int

	// State persistence.
	StateDir string

	// Feature ordering.
	NoSort bool

	// Pipeline verification: require stage completion markers in agent
	// output before accepting a feature.
	VerifyStages bool

	// Issue tracker integration.
	CloseIssues bool

	// Runtime flags.
	Verbose bool

	// Notification settings.
	NotifyWebhook string
	NotifyChannel string
	NotifyChatID  string

	// CLI-only flags (not loaded from config files).
	ConfigFile  string
	BatchFile   string
	Issues      string
	ResumeID    string
	ResumeForce bool
	StatusID    string
	CleanID     string
}

// NewDefaultConfig returns a Config populated with all built-in default
// values.
func NewDefaultConfig() *Config {
	return &Config{
		AgentCLI:             "claude",
		MaxIterations:        5,
		MaxRetriesPerFeature: 3,
		GlobalRetryLimit:     20,
		BreakerThreshold:     3,
		TokenLimit:           0,
		BaseDelayMs:          100,
		MaxDelayMs:           1600,
		StateDir:             ".batch-loop",
		CloseIssues:          true,
		NotifyWebhook:        "http://127.0.0.1:18789/webhook",
		NotifyChannel:        "telegram",
	}
}
