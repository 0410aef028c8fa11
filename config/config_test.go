package config

import (
	"strings"
	"testing"
	"time"

	"vidchunk/chunker"
	"vidchunk/statestore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunk.FramesPerChunk != 77 {
		t.Errorf("Expected frames per chunk 77, got %d", cfg.Chunk.FramesPerChunk)
	}
	if cfg.Chunk.TargetFPS != 16 {
		t.Errorf("Expected target fps 16, got %f", cfg.Chunk.TargetFPS)
	}
	if cfg.Chunk.OutputDir != "video_chunks" || cfg.Chunk.StretchOutputDir != "video_chunks_16fps" {
		t.Errorf("Unexpected output dirs %q, %q", cfg.Chunk.OutputDir, cfg.Chunk.StretchOutputDir)
	}
	if cfg.Workers != 1 {
		t.Errorf("Expected workers 1, got %d", cfg.Workers)
	}
	if cfg.FFmpegTimeout != 30*time.Minute {
		t.Errorf("Expected timeout 30m, got %v", cfg.FFmpegTimeout)
	}
	if cfg.Video.Codec != "libx264" || cfg.Video.CRF != 18 {
		t.Errorf("Expected libx264 CRF 18, got %s CRF %d", cfg.Video.Codec, cfg.Video.CRF)
	}
	if cfg.Audio.Codec != "copy" {
		t.Errorf("Expected audio codec 'copy', got %s", cfg.Audio.Codec)
	}
	if cfg.State.BatchFile != "video_batch_state.json" {
		t.Errorf("Expected batch file video_batch_state.json, got %s", cfg.State.BatchFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorText   string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:        "missing output root",
			mutate:      func(c *Config) { c.OutputRoot = "" },
			expectError: true,
			errorText:   "output root is required",
		},
		{
			name:        "negative timeout",
			mutate:      func(c *Config) { c.FFmpegTimeout = -time.Second },
			expectError: true,
			errorText:   "timeout cannot be negative",
		},
		{
			name:   "timeout disabled",
			mutate: func(c *Config) { c.FFmpegTimeout = 0 },
		},
		{
			name:        "negative workers",
			mutate:      func(c *Config) { c.Workers = -1 },
			expectError: true,
			errorText:   "workers cannot be negative",
		},
		{
			name:        "frames per chunk too large",
			mutate:      func(c *Config) { c.Chunk.FramesPerChunk = 10001 },
			expectError: true,
			errorText:   "frames per chunk must be between 1 and 10000",
		},
		{
			name:        "zero target fps",
			mutate:      func(c *Config) { c.Chunk.TargetFPS = 0 },
			expectError: true,
			errorText:   "target fps must be positive",
		},
		{
			name:        "invalid CRF",
			mutate:      func(c *Config) { c.Video.CRF = 60 },
			expectError: true,
			errorText:   "CRF must be between 0 and 51",
		},
		{
			name:        "unknown backend",
			mutate:      func(c *Config) { c.State.Backend = "redis" },
			expectError: true,
			errorText:   "invalid backend 'redis'",
		},
		{
			name: "postgres without host",
			mutate: func(c *Config) {
				c.State.Backend = statestore.KindPostgres
				c.State.Postgres.Host = ""
			},
			expectError: true,
			errorText:   "postgres host is required",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Log.Level = "loud" },
			expectError: true,
			errorText:   "invalid log level",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.Log.Format = "xml" },
			expectError: true,
			errorText:   "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if tt.expectError && err != nil && tt.errorText != "" {
				if !strings.Contains(err.Error(), tt.errorText) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorText, err.Error())
				}
			}
		})
	}
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = -1
	cfg.Video.Codec = ""
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"workers", "codec is required", "log format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %q, got: %v", want, err)
		}
	}
}

func TestCopy(t *testing.T) {
	cfg := DefaultConfig()
	c := cfg.Copy()
	c.Video.CRF = 30
	c.State.Postgres.Host = "db"

	if cfg.Video.CRF != 18 || cfg.State.Postgres.Host != "localhost" {
		t.Error("Copy must not share nested settings with the original")
	}
}

func TestPipelineSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Video.CRF = 20
	cfg.DryRun = true

	exact := cfg.PipelineSettings(chunker.ModeFrameExact)
	if exact.OutputDirName != "video_chunks" || exact.FramesPerChunk != 77 {
		t.Errorf("Unexpected frame-exact settings %+v", exact)
	}
	if exact.Encode.CRF != 20 || exact.Encode.AudioCodec != "copy" || !exact.DryRun {
		t.Errorf("Encoder settings not carried over: %+v", exact.Encode)
	}

	stretch := cfg.PipelineSettings(chunker.ModeStretch)
	if stretch.OutputDirName != "video_chunks_16fps" || stretch.TargetFPS != 16 {
		t.Errorf("Unexpected stretch settings %+v", stretch)
	}
}

func TestStateOpener(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputRoot = t.TempDir()

	o := cfg.StateOpener()
	if o.Kind != statestore.KindFile || o.Dir != cfg.OutputRoot {
		t.Errorf("Unexpected opener %+v", o)
	}
}
