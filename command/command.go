// Package command provides the core Command interface and shared encode
// settings for building and executing FFmpeg commands.
//
// The specialized builders (extract, stretch) implement the Command interface,
// allowing the orchestrator to process tasks without knowing their kind.
package command

import (
	"context"
	"fmt"

	"vidchunk/ffmpeg"
)

// Priority levels for task execution in the worker pool.
// Higher priority tasks are started first.
const (
	PriorityLow    = 0  // Low priority tasks (e.g., optional post-processing)
	PriorityNormal = 5  // Normal priority tasks (e.g., per-chunk extraction)
	PriorityHigh   = 10 // High priority tasks (e.g., single-pass segmenting, concatenation)
)

// TaskType represents the type of ffmpeg task.
type TaskType string

const (
	TaskTypeExtract TaskType = "extract" // Frame-exact extraction of one chunk
	TaskTypeStretch TaskType = "stretch" // Retime and segment a whole video
	TaskTypeConcat  TaskType = "concat"  // Concat-demuxer join of several files
)

// Command represents an FFmpeg command that can be built, executed, or previewed.
//
// Example usage:
//
//	cmd := extract.NewExtractBuilder(chunk, "out/0.mp4").SetCRF(18)
//
//	// Preview the command
//	line, _ := cmd.DryRun()
//
//	// Execute the command
//	res, err := cmd.Run(ctx, runner)
type Command interface {
	// BuildArgs constructs and returns the FFmpeg command arguments as a slice,
	// without the binary name.
	BuildArgs() []string

	// Run executes the command through runner and blocks until it finishes.
	Run(ctx context.Context, runner ffmpeg.Runner) (*ffmpeg.Result, error)

	// DryRun returns the command line as a string without executing it.
	DryRun() (string, error)

	// GetPriority returns the priority level for task scheduling.
	GetPriority() int

	// SetPriority sets the priority level for task scheduling.
	SetPriority(priority int) Command

	// GetTaskType returns the type of task.
	GetTaskType() TaskType

	// GetInputPath returns the primary input file path for this command.
	GetInputPath() string

	// GetOutputPath returns the output file or pattern for this command.
	GetOutputPath() string
}

// EncodeSettings holds the encoder parameters shared by all video builders.
type EncodeSettings struct {
	Codec       string
	CRF         int
	Preset      string
	PixelFormat string
	AudioCodec  string
}

// DefaultEncodeSettings returns visually lossless H.264 settings.
func DefaultEncodeSettings() EncodeSettings {
	return EncodeSettings{
		Codec:       "libx264",
		CRF:         18,
		Preset:      "medium",
		PixelFormat: "yuv420p",
		AudioCodec:  "copy",
	}
}

// Validate checks the settings for values ffmpeg would reject.
func (s EncodeSettings) Validate() error {
	if s.Codec == "" {
		return fmt.Errorf("video codec cannot be empty")
	}
	if s.CRF < 0 || s.CRF > 51 {
		return fmt.Errorf("crf must be between 0 and 51, got %d", s.CRF)
	}
	return nil
}

// VideoArgs renders the encoder options in ffmpeg order.
func (s EncodeSettings) VideoArgs() []string {
	args := []string{"-c:v", s.Codec}
	if s.Preset != "" {
		args = append(args, "-preset", s.Preset)
	}
	args = append(args, "-crf", fmt.Sprintf("%d", s.CRF))
	if s.PixelFormat != "" {
		args = append(args, "-pix_fmt", s.PixelFormat)
	}
	return args
}

// Execute runs cmd through runner using bin as the ffmpeg executable.
func Execute(ctx context.Context, runner ffmpeg.Runner, bin string, cmd Command) (*ffmpeg.Result, error) {
	if bin == "" {
		bin = "ffmpeg"
	}
	res, err := runner.Run(ctx, bin, cmd.BuildArgs()...)
	if err != nil {
		return res, fmt.Errorf("%s task for %s: %w", cmd.GetTaskType(), cmd.GetInputPath(), err)
	}
	return res, nil
}
