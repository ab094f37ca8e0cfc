package config

const (
	defaultDataDir                 = "~/.local/share/margsync"
	defaultLogDir                  = "~/.local/share/margsync/logs"
	defaultAPIBaseURL              = "http://localhost:8000/api/v1"
	defaultAPITimeoutSeconds       = 30
	defaultPollIntervalSeconds     = 300
	defaultProbeIntervalSeconds    = 15
	defaultCredentialTimeoutMillis = 1000
	defaultClaimTTLSeconds         = 120
	defaultNotifyRequestTimeout    = 10
	defaultLogLevel                = "info"
	defaultLogFormat               = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		API: API{
			BaseURL:        defaultAPIBaseURL,
			TimeoutSeconds: defaultAPITimeoutSeconds,
		},
		Sync: Sync{
			PollIntervalSeconds:     defaultPollIntervalSeconds,
			ProbeIntervalSeconds:    defaultProbeIntervalSeconds,
			CredentialTimeoutMillis: defaultCredentialTimeoutMillis,
			ClaimTTLSeconds:         defaultClaimTTLSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}
