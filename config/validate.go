package config

import (
	"fmt"
	"slices"
	"strings"

	"vidchunk/chunker"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	if c.OutputRoot == "" {
		errors = append(errors, "output root is required")
	}

	if c.FFmpegTimeout < 0 {
		errors = append(errors, "ffmpeg timeout cannot be negative (use 0 to disable)")
	}

	// Validate workers (0 is valid, means auto-detect)
	if c.Workers < 0 {
		errors = append(errors, "workers cannot be negative (use 0 for auto-detect)")
	}

	if err := c.Chunk.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("chunk config: %v", err))
	}

	if err := c.Video.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("video config: %v", err))
	}

	if c.Audio.Codec == "" {
		errors = append(errors, "audio config: codec is required")
	}

	if err := c.State.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("state config: %v", err))
	}

	if !slices.Contains(LogLevelValues(), strings.ToLower(c.Log.Level)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s', must be one of: %s",
			c.Log.Level, strings.Join(LogLevelValues(), ", ")))
	}
	if !slices.Contains(LogFormatValues(), c.Log.Format) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s', must be one of: %s",
			c.Log.Format, strings.Join(LogFormatValues(), ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Validate checks if chunk configuration is valid
func (cc *ChunkConfig) Validate() error {
	var errors []string

	if cc.OutputDir == "" {
		errors = append(errors, "output dir is required")
	}
	if cc.StretchOutputDir == "" {
		errors = append(errors, "stretch output dir is required")
	}
	if cc.FramesPerChunk < chunker.MinFramesPerChunk || cc.FramesPerChunk > chunker.MaxFramesPerChunk {
		errors = append(errors, fmt.Sprintf("frames per chunk must be between %d and %d",
			chunker.MinFramesPerChunk, chunker.MaxFramesPerChunk))
	}
	if cc.TargetFPS <= 0 {
		errors = append(errors, "target fps must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// Validate checks if video configuration is valid
func (vc *VideoConfig) Validate() error {
	var errors []string

	if vc.Codec == "" {
		errors = append(errors, "codec is required")
	}

	if vc.CRF < 0 || vc.CRF > 51 {
		errors = append(errors, "CRF must be between 0 and 51")
	}

	if vc.Preset == "" {
		errors = append(errors, "preset is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// Validate checks if state configuration is valid
func (sc *StateConfig) Validate() error {
	var errors []string

	if !slices.Contains(BackendValues(), sc.Backend) {
		errors = append(errors, fmt.Sprintf("invalid backend '%s', must be one of: %s",
			sc.Backend, strings.Join(BackendValues(), ", ")))
	}

	if sc.BatchFile == "" || sc.ImageBatchFile == "" || sc.ProcessedFile == "" {
		errors = append(errors, "batch_file, image_batch_file and processed_file are required")
	}

	if sc.Backend == "postgres" {
		if sc.Postgres.Host == "" {
			errors = append(errors, "postgres host is required")
		}
		if sc.Postgres.DBName == "" {
			errors = append(errors, "postgres dbname is required")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}
