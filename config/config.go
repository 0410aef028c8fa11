package config

import (
	"time"

	"vidchunk/chunker"
	"vidchunk/command"
	"vidchunk/pipeline"
	"vidchunk/statestore"
)

// Config holds all vidchunk configuration options
type Config struct {
	// Root for chunk directories, state files and concatenated output
	OutputRoot string `yaml:"output_root"`

	// External tools (empty = search PATH / bundled binary)
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	FFprobePath   string        `yaml:"ffprobe_path"`
	FFmpegTimeout time.Duration `yaml:"ffmpeg_timeout"` // per invocation, 0 = no limit

	// Execution settings
	Workers int `yaml:"workers"` // parallel frame-exact extractions, 0 = auto-detect

	Chunk ChunkConfig `yaml:"chunk"`
	Video VideoConfig `yaml:"video"`
	Audio AudioConfig `yaml:"audio"`
	State StateConfig `yaml:"state"`
	Log   LogConfig   `yaml:"log"`

	DryRun bool `yaml:"dry_run"` // Print ffmpeg commands without running them
}

// ChunkConfig holds chunking defaults
type ChunkConfig struct {
	OutputDir        string  `yaml:"output_dir"`         // frame-exact chunker directory name
	StretchOutputDir string  `yaml:"stretch_output_dir"` // stretching chunker directory name
	FramesPerChunk   int     `yaml:"frames_per_chunk"`
	TargetFPS        float64 `yaml:"target_fps"`
}

// VideoConfig holds video encoding settings
type VideoConfig struct {
	Codec       string `yaml:"codec"`        // e.g., "libx264", "libx265"
	CRF         int    `yaml:"crf"`          // Constant Rate Factor (0-51, lower = better quality)
	Preset      string `yaml:"preset"`       // e.g., "ultrafast", "medium", "slow"
	PixelFormat string `yaml:"pixel_format"` // e.g., "yuv420p"
}

// AudioConfig holds audio settings for frame-exact chunks
type AudioConfig struct {
	Codec string `yaml:"codec"` // "copy" passes the source track through
}

// StateConfig selects where batch cursors and the processed registry live
type StateConfig struct {
	Backend        string                    `yaml:"backend"` // file, memory, postgres
	BatchFile      string                    `yaml:"batch_file"`
	ImageBatchFile string                    `yaml:"image_batch_file"`
	ProcessedFile  string                    `yaml:"processed_file"`
	Postgres       statestore.PostgresConfig `yaml:"postgres"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OutputRoot:    "output",
		FFmpegTimeout: 30 * time.Minute,
		Workers:       1,

		Chunk: ChunkConfig{
			OutputDir:        "video_chunks",
			StretchOutputDir: "video_chunks_16fps",
			FramesPerChunk:   chunker.DefaultFramesPerChunk,
			TargetFPS:        chunker.DefaultTargetFPS,
		},

		// High quality H.264, compatible with every downstream loader
		Video: VideoConfig{
			Codec:       "libx264",
			CRF:         18,
			Preset:      "medium",
			PixelFormat: "yuv420p",
		},

		Audio: AudioConfig{
			Codec: "copy",
		},

		State: StateConfig{
			Backend:        statestore.KindFile,
			BatchFile:      "video_batch_state.json",
			ImageBatchFile: "image_batch_state.json",
			ProcessedFile:  "processed_videos.json",
			Postgres: statestore.PostgresConfig{
				Host:   "localhost",
				Port:   "5432",
				User:   "postgres",
				DBName: "vidchunk",
			},
		},

		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Copy creates a deep copy of the config
func (c *Config) Copy() *Config {
	copy := *c
	return &copy
}

// EncodeSettings returns the encoder settings for chunk commands.
func (c *Config) EncodeSettings() command.EncodeSettings {
	return command.EncodeSettings{
		Codec:       c.Video.Codec,
		CRF:         c.Video.CRF,
		Preset:      c.Video.Preset,
		PixelFormat: c.Video.PixelFormat,
		AudioCodec:  c.Audio.Codec,
	}
}

// PipelineSettings returns chunking settings for mode. Nodes override the
// directory name, chunk size and target rate with their own inputs.
func (c *Config) PipelineSettings(mode chunker.Mode) pipeline.Settings {
	dir := c.Chunk.OutputDir
	if mode == chunker.ModeStretch {
		dir = c.Chunk.StretchOutputDir
	}
	return pipeline.Settings{
		OutputRoot:     c.OutputRoot,
		OutputDirName:  dir,
		FramesPerChunk: c.Chunk.FramesPerChunk,
		TargetFPS:      c.Chunk.TargetFPS,
		Workers:        c.Workers,
		Encode:         c.EncodeSettings(),
		DryRun:         c.DryRun,
	}
}

// StateOpener returns an opener for the configured state backend rooted at
// OutputRoot.
func (c *Config) StateOpener() *statestore.Opener {
	return &statestore.Opener{
		Kind:     c.State.Backend,
		Dir:      c.OutputRoot,
		Postgres: c.State.Postgres,
	}
}

// BackendValues returns valid state backend values
func BackendValues() []string {
	return []string{statestore.KindFile, statestore.KindMemory, statestore.KindPostgres}
}

// LogLevelValues returns valid log levels
func LogLevelValues() []string {
	return []string{"debug", "info", "warn", "error"}
}

// LogFormatValues returns valid log formats
func LogFormatValues() []string {
	return []string{"text", "json"}
}
