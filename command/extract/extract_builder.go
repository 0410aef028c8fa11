// Package extract builds frame-exact single-chunk extraction commands.
package extract

import (
	"context"
	"fmt"
	"strings"

	"vidchunk/command"
	"vidchunk/ffmpeg"
	"vidchunk/internal/timeutil"
	"vidchunk/models"
)

// ExtractBuilder builds one ffmpeg invocation that re-encodes exactly
// chunk.FrameCount frames starting at chunk.StartFrame.
type ExtractBuilder struct {
	chunk      *models.Chunk
	outputPath string
	fps        float64

	bin       string
	settings  command.EncodeSettings
	extraArgs []string
	priority  int
}

// NewExtractBuilder creates an extraction command for chunk at the source frame rate fps.
func NewExtractBuilder(chunk *models.Chunk, outputPath string, fps float64) *ExtractBuilder {
	return &ExtractBuilder{
		chunk:      chunk,
		outputPath: outputPath,
		fps:        fps,
		bin:        "ffmpeg",
		settings:   command.DefaultEncodeSettings(),
		priority:   command.PriorityNormal,
	}
}

// SetBinary sets the ffmpeg executable path
func (e *ExtractBuilder) SetBinary(bin string) *ExtractBuilder {
	e.bin = bin
	return e
}

// SetEncodeSettings replaces codec, CRF, preset, pixel format and audio codec
func (e *ExtractBuilder) SetEncodeSettings(s command.EncodeSettings) *ExtractBuilder {
	e.settings = s
	return e
}

// SetCRF sets the Constant Rate Factor (0-51, lower is better quality)
func (e *ExtractBuilder) SetCRF(crf int) *ExtractBuilder {
	e.settings.CRF = crf
	return e
}

// SetPreset sets the x264 encoding preset
func (e *ExtractBuilder) SetPreset(preset string) *ExtractBuilder {
	e.settings.Preset = preset
	return e
}

// AddExtraArgs adds custom ffmpeg output arguments
func (e *ExtractBuilder) AddExtraArgs(args ...string) *ExtractBuilder {
	e.extraArgs = append(e.extraArgs, args...)
	return e
}

// SetPriority sets the task priority (higher = processed first)
func (e *ExtractBuilder) SetPriority(priority int) command.Command {
	e.priority = priority
	return e
}

// Validate checks that the builder can produce a usable command.
func (e *ExtractBuilder) Validate() error {
	if e.chunk == nil {
		return fmt.Errorf("chunk cannot be nil")
	}
	if err := e.chunk.Validate(); err != nil {
		return fmt.Errorf("invalid chunk: %w", err)
	}
	if e.outputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if e.fps <= 0 {
		return fmt.Errorf("invalid frame rate: %.3f", e.fps)
	}
	return e.settings.Validate()
}

// BuildArgs constructs the ffmpeg arguments for extracting one chunk.
//
// The seek goes before -i so decoding starts at the nearest keyframe and
// ffmpeg discards frames up to the exact start. -frames:v bounds the frame
// count and -t clamps the container duration so players do not hold the
// last frame.
func (e *ExtractBuilder) BuildArgs() []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-ss", timeutil.FormatSeconds(e.chunk.StartTime),
		"-i", e.chunk.SourcePath,
		"-map", "0:v:0",
		"-map", "0:a?",
		"-frames:v", fmt.Sprintf("%d", e.chunk.FrameCount),
		"-t", timeutil.FormatDecimal(float64(e.chunk.FrameCount) / e.fps),
	}

	args = append(args, e.settings.VideoArgs()...)

	audioCodec := e.settings.AudioCodec
	if audioCodec == "" {
		audioCodec = "copy"
	}
	args = append(args, "-c:a", audioCodec)

	args = append(args, "-avoid_negative_ts", "make_zero")
	args = append(args, e.extraArgs...)

	// Overwrite output
	args = append(args, "-y", e.outputPath)

	return args
}

// Run executes the extraction through runner.
func (e *ExtractBuilder) Run(ctx context.Context, runner ffmpeg.Runner) (*ffmpeg.Result, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	res, err := command.Execute(ctx, runner, e.bin, e)
	if err != nil {
		return res, fmt.Errorf("chunk %d: %w", e.chunk.Index, err)
	}
	return res, nil
}

// DryRun returns the command that would be executed without running it
func (e *ExtractBuilder) DryRun() (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	return e.bin + " " + strings.Join(e.BuildArgs(), " "), nil
}

// GetPriority returns the task priority
func (e *ExtractBuilder) GetPriority() int {
	return e.priority
}

// GetTaskType returns the task type identifier
func (e *ExtractBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeExtract
}

// GetInputPath returns the input file path
func (e *ExtractBuilder) GetInputPath() string {
	return e.chunk.SourcePath
}

// GetOutputPath returns the output file path
func (e *ExtractBuilder) GetOutputPath() string {
	return e.outputPath
}
