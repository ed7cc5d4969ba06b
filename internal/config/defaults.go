package config

const (
	defaultLogDir        = "~/.local/share/vcxenc/logs"
	defaultLedgerPath    = "~/.local/share/vcxenc/ledger.db"
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultMaxFrames     = 8
	defaultTileSize      = 64
	defaultAudioBitrate  = "96k"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	maxTileSize          = 65535
)

// Environment variables that override file values.
const (
	EnvFFmpeg   = "VCXENC_FFMPEG"
	EnvFFprobe  = "VCXENC_FFPROBE"
	EnvWorld    = "VCXENC_WORLD"
	EnvLogLevel = "VCXENC_LOG_LEVEL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:     defaultLogDir,
			LedgerPath: defaultLedgerPath,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Encode: Encode{
			MaxFrames:     defaultMaxFrames,
			TileSize:      defaultTileSize,
			AudioBitrate:  defaultAudioBitrate,
			StrictNumbers: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Ledger: Ledger{
			Enabled: true,
		},
	}
}
