package config

const (
	defaultStateDir       = "~/.local/share/reel/state"
	defaultLogDir         = "~/.local/share/reel/logs"
	defaultAPIBind        = "127.0.0.1:7954"
	defaultWorkerCount    = 4
	defaultQueueCapacity  = 256
	defaultPollTimeout    = 1
	defaultProgressBuffer = 16
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Workers: Workers{
			Count:          defaultWorkerCount,
			QueueCapacity:  defaultQueueCapacity,
			PollTimeout:    defaultPollTimeout,
			ProgressBuffer: defaultProgressBuffer,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
