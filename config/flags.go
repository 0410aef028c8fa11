package config

import (
	"github.com/urfave/cli/v3"
)

// Flag names shared by every subcommand.
const (
	FlagConfig           = "config"
	FlagOutputRoot       = "output-root"
	FlagFFmpeg           = "ffmpeg"
	FlagFFprobe          = "ffprobe"
	FlagTimeout          = "timeout"
	FlagWorkers          = "workers"
	FlagOutputDir        = "output-dir"
	FlagStretchOutputDir = "stretch-output-dir"
	FlagFramesPerChunk   = "frames-per-chunk"
	FlagTargetFPS        = "target-fps"
	FlagVideoCodec       = "video-codec"
	FlagCRF              = "crf"
	FlagPreset           = "preset"
	FlagPixelFormat      = "pix-fmt"
	FlagAudioCodec       = "audio-codec"
	FlagStateBackend     = "state-backend"
	FlagLogLevel         = "log-level"
	FlagLogFormat        = "log-format"
	FlagVerbose          = "verbose"
	FlagDryRun           = "dry-run"
)

// Flags returns the global flags. Values left unset keep the config file
// (or default) value.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagConfig,
			Aliases: []string{"c"},
			Usage:   "Path to config file (default: search ./vidchunk.yaml, ~/.vidchunk/config.yaml, /etc/vidchunk/config.yaml)",
			Sources: cli.EnvVars("VIDCHUNK_CONFIG"),
		},
		&cli.StringFlag{Name: FlagOutputRoot, Aliases: []string{"o"}, Usage: "Root directory for chunks, state files and concatenated videos"},
		&cli.StringFlag{Name: FlagFFmpeg, Usage: "ffmpeg executable (default: PATH or $IMAGEIO_FFMPEG_EXE)"},
		&cli.StringFlag{Name: FlagFFprobe, Usage: "ffprobe executable (default: next to ffmpeg or PATH)"},
		&cli.DurationFlag{Name: FlagTimeout, Usage: "Timeout per ffmpeg invocation, 0 disables it"},
		&cli.IntFlag{Name: FlagWorkers, Aliases: []string{"j"}, Usage: "Parallel frame-exact extractions (0 = auto-detect)"},
		&cli.StringFlag{Name: FlagOutputDir, Usage: "Directory name for frame-exact chunks"},
		&cli.StringFlag{Name: FlagStretchOutputDir, Usage: "Directory name for stretched chunks"},
		&cli.IntFlag{Name: FlagFramesPerChunk, Aliases: []string{"n"}, Usage: "Frames per chunk (1-10000)"},
		&cli.Float64Flag{Name: FlagTargetFPS, Usage: "Output frame rate of the stretching chunker"},
		&cli.StringFlag{Name: FlagVideoCodec, Usage: "Video codec"},
		&cli.IntFlag{Name: FlagCRF, Usage: "Video CRF: 0-51, lower = better quality"},
		&cli.StringFlag{Name: FlagPreset, Usage: "Encoder preset: ultrafast, fast, medium, slow, veryslow"},
		&cli.StringFlag{Name: FlagPixelFormat, Usage: "Output pixel format"},
		&cli.StringFlag{Name: FlagAudioCodec, Usage: "Audio codec for frame-exact chunks (copy passes audio through)"},
		&cli.StringFlag{Name: FlagStateBackend, Usage: "State backend: file, memory, postgres"},
		&cli.StringFlag{Name: FlagLogLevel, Usage: "Log level: debug, info, warn, error"},
		&cli.StringFlag{Name: FlagLogFormat, Usage: "Log format: text, json"},
		&cli.BoolFlag{Name: FlagVerbose, Aliases: []string{"v"}, Usage: "Shorthand for --log-level debug"},
		&cli.BoolFlag{Name: FlagDryRun, Usage: "Print ffmpeg commands without running them"},
	}
}

// MergeFromFlags overrides config values with the flags set on cmd
func (c *Config) MergeFromFlags(cmd *cli.Command) {
	setString := func(name string, dst *string) {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	setInt := func(name string, dst *int) {
		if cmd.IsSet(name) {
			*dst = int(cmd.Int(name))
		}
	}

	setString(FlagOutputRoot, &c.OutputRoot)
	setString(FlagFFmpeg, &c.FFmpegPath)
	setString(FlagFFprobe, &c.FFprobePath)
	if cmd.IsSet(FlagTimeout) {
		c.FFmpegTimeout = cmd.Duration(FlagTimeout)
	}
	setInt(FlagWorkers, &c.Workers)

	// Chunk settings
	setString(FlagOutputDir, &c.Chunk.OutputDir)
	setString(FlagStretchOutputDir, &c.Chunk.StretchOutputDir)
	setInt(FlagFramesPerChunk, &c.Chunk.FramesPerChunk)
	if cmd.IsSet(FlagTargetFPS) {
		c.Chunk.TargetFPS = cmd.Float64(FlagTargetFPS)
	}

	// Encoder settings
	setString(FlagVideoCodec, &c.Video.Codec)
	setInt(FlagCRF, &c.Video.CRF)
	setString(FlagPreset, &c.Video.Preset)
	setString(FlagPixelFormat, &c.Video.PixelFormat)
	setString(FlagAudioCodec, &c.Audio.Codec)

	setString(FlagStateBackend, &c.State.Backend)

	// Logging
	setString(FlagLogLevel, &c.Log.Level)
	setString(FlagLogFormat, &c.Log.Format)
	if cmd.Bool(FlagVerbose) {
		c.Log.Level = "debug"
	}

	if cmd.Bool(FlagDryRun) {
		c.DryRun = true
	}
}
