package config

const (
	defaultStagingDir = "~/.local/share/slidecast/staging"
	defaultOutputDir  = "~/slidecast/output"
	defaultLogDir     = "~/.local/share/slidecast/logs"
	defaultAPIBind    = "127.0.0.1:7519"

	defaultVoice             = "zh-CN-XiaoxiaoNeural"
	defaultRatePercent       = 100
	defaultMaxRetries        = 1
	defaultRetryDelaySeconds = 1.5

	defaultImageExportDPI = 150
	defaultConvertTimeout = 180

	defaultTargetWidth          = 1280
	defaultTargetFPS            = 24
	defaultSlideDuration        = 3.0
	defaultWhisperModel         = "base"
	defaultSubtitleStyle        = "Fontname=Arial,FontSize=18,PrimaryColour=&H00FFFFFF,BackColour=&H9A000000,BorderStyle=1,Outline=1,Shadow=0.8,Alignment=2,MarginV=25"
	defaultLogFormat            = "auto"
	defaultLogLevel             = "info"
	defaultQueuePollInterval    = 2
	defaultErrorRetryInterval   = 10
	defaultHeartbeatInterval    = 15
	defaultHeartbeatTimeout     = 300
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		TTS: TTS{
			Voice:             defaultVoice,
			RatePercent:       defaultRatePercent,
			MaxRetries:        defaultMaxRetries,
			RetryDelaySeconds: defaultRetryDelaySeconds,
		},
		Render: Render{
			ImageExportDPI: defaultImageExportDPI,
			ConvertTimeout: defaultConvertTimeout,
		},
		Video: Video{
			TargetWidth:          defaultTargetWidth,
			TargetFPS:            defaultTargetFPS,
			DefaultSlideDuration: defaultSlideDuration,
		},
		Subtitles: Subtitles{
			Enabled:      true,
			WhisperModel: defaultWhisperModel,
			Style:        defaultSubtitleStyle,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
