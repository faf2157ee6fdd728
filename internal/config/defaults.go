package config

const (
	defaultWorkDir        = "~/.cache/instrain/work"
	defaultSamtoolsBinary = "samtools"
	defaultSortThreads    = 2
	defaultSortMemory     = "768M"
	defaultMpileupDepth   = 100000
	defaultProcesses      = 6
	defaultWindowLength   = 10000
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
		},
		Samtools: Samtools{
			Binary:       defaultSamtoolsBinary,
			SortThreads:  defaultSortThreads,
			SortMemory:   defaultSortMemory,
			MpileupDepth: defaultMpileupDepth,
		},
		Defaults: Defaults{
			Processes:    defaultProcesses,
			WindowLength: defaultWindowLength,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
