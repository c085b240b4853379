package config

const (
	defaultBaseURL        = "https://researchdata.unsw.edu.au"
	defaultTimeoutSeconds = 300
	defaultUserAgent      = "nmrupload/dev"
	defaultLogDir         = "~/.local/share/nmrupload/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultConfigPath     = "~/.config/nmrupload/config.toml"
	projectConfigName     = "nmrupload.toml"

	envUsername = "ACDATA_USERNAME"
	envSession  = "ACDATA_SESSION"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
			UserAgent:      defaultUserAgent,
		},
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
